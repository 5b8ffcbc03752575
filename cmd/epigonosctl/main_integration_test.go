//go:build sqlite

package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadOperatorsClearSQLiteRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "epigonos.db")
	sourcePath := writeTestFile(t, "double_constants.go", doubleConstantsSrc)

	if err := run(context.Background(), []string{
		"load",
		"--store", "sqlite",
		"--db-path", dbPath,
		"--kind", "mutation",
		"--name", "DoubleConstants",
		"--file", sourcePath,
		"--weight", "0.6",
	}); err != nil {
		t.Fatalf("load command: %v", err)
	}

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"operators",
			"--store", "sqlite",
			"--db-path", dbPath,
		})
	})
	if err != nil {
		t.Fatalf("operators command: %v", err)
	}
	if !strings.Contains(out, "mutation name=DoubleConstants weight=0.6 enabled=true") {
		t.Fatalf("expected persisted mutation in operators output: %s", out)
	}

	if err := run(context.Background(), []string{
		"clear",
		"--store", "sqlite",
		"--db-path", dbPath,
		"--kind", "mutation",
	}); err != nil {
		t.Fatalf("clear command: %v", err)
	}

	out, err = captureStdout(func() error {
		return run(context.Background(), []string{
			"operators",
			"--store", "sqlite",
			"--db-path", dbPath,
		})
	})
	if err != nil {
		t.Fatalf("operators after clear: %v", err)
	}
	if strings.Contains(out, "DoubleConstants") {
		t.Fatalf("expected cleared mutation to be gone: %s", out)
	}
}

func TestSurvivalOverrideSQLiteRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "epigonos.db")
	sourcePath := writeTestFile(t, "first_position.go", `
import (
	"epigonos/model"
)

func FirstPosition(pop *model.Population, opts *model.Options, exclude []int) (int, error) {
	return 1, nil
}
`)

	if err := run(context.Background(), []string{
		"load",
		"--store", "sqlite",
		"--db-path", dbPath,
		"--kind", "survival",
		"--name", "FirstPosition",
		"--file", sourcePath,
	}); err != nil {
		t.Fatalf("load survival command: %v", err)
	}

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"operators",
			"--store", "sqlite",
			"--db-path", dbPath,
		})
	})
	if err != nil {
		t.Fatalf("operators command: %v", err)
	}
	if !strings.Contains(out, "survival active=FirstPosition") {
		t.Fatalf("expected persisted survival override: %s", out)
	}
}
