// Package config reads the declarative operator-weight file consumed on
// every registry reload.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// ErrNegativeWeight marks a weight below zero in either table.
var ErrNegativeWeight = errors.New("operator weight must be non-negative")

// Config mirrors the two tables of the operator config file:
// custom_mutations drives the mutation weight table, builtin_weights
// overrides fields of the host's weight record.
type Config struct {
	CustomMutations map[string]float64 `toml:"custom_mutations"`
	BuiltinWeights  map[string]float64 `toml:"builtin_weights"`
}

// Load reads and validates the config at path. A missing file is not an
// error: it returns a zero Config with found=false, and the caller decides
// how loudly to report it. A file that exists but does not parse, or that
// carries a negative weight, is an error.
func Load(path string) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, false, nil
	}
	if err != nil {
		return Config{}, false, fmt.Errorf("read operator config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("parse operator config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, false, err
	}
	return cfg, true, nil
}

func (c Config) validate() error {
	if err := checkWeights("custom_mutations", c.CustomMutations); err != nil {
		return err
	}
	return checkWeights("builtin_weights", c.BuiltinWeights)
}

func checkWeights(table string, weights map[string]float64) error {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if weights[name] < 0 {
			return fmt.Errorf("%w: %s.%s = %v", ErrNegativeWeight, table, name, weights[name])
		}
	}
	return nil
}
