package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"

	"epigonos/internal/config"
	"epigonos/internal/storage"
	api "epigonos/pkg/epigonos"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "validate":
		return runValidate(ctx, args[1:])
	case "check":
		return runCheck(ctx, args[1:])
	case "load":
		return runLoad(ctx, args[1:])
	case "clear":
		return runClear(ctx, args[1:])
	case "reload":
		return runReload(ctx, args[1:])
	case "operators":
		return runOperators(ctx, args[1:])
	case "slots":
		return runSlots(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "epigonos.db", "sqlite database path")
	configPath := fs.String("config", "", "operator config TOML path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(api.Options{StoreKind: *storeKind, DBPath: *dbPath, ConfigPath: *configPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runValidate(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	configPath := fs.String("config", "", "operator config TOML path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return errors.New("validate requires --config")
	}

	cfg, found, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("operator config not found: %s", *configPath)
	}

	fmt.Printf("config=%s custom_mutations=%d builtin_weights=%d\n", *configPath, len(cfg.CustomMutations), len(cfg.BuiltinWeights))
	for _, name := range sortedWeightNames(cfg.CustomMutations) {
		fmt.Printf("custom name=%s weight=%g\n", name, cfg.CustomMutations[name])
	}
	for _, name := range sortedWeightNames(cfg.BuiltinWeights) {
		fmt.Printf("builtin name=%s weight=%g\n", name, cfg.BuiltinWeights[name])
	}
	return nil
}

func runCheck(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	kind := fs.String("kind", "mutation", "operator kind: mutation|selection|survival")
	name := fs.String("name", "", "function name the source must declare")
	file := fs.String("file", "", "operator source path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *file == "" {
		return errors.New("check requires --name and --file")
	}

	source, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	if err := api.CheckSource(*kind, *name, string(source)); err != nil {
		return err
	}
	fmt.Printf("ok kind=%s name=%s file=%s\n", *kind, *name, *file)
	return nil
}

func runLoad(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	kind := fs.String("kind", "mutation", "operator kind: mutation|selection|survival")
	name := fs.String("name", "", "function name the source must declare")
	file := fs.String("file", "", "operator source path")
	weight := fs.Float64("weight", 1.0, "mutation weight (ignored for selection|survival)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "epigonos.db", "sqlite database path")
	configPath := fs.String("config", "", "operator config TOML path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *file == "" {
		return errors.New("load requires --name and --file")
	}

	client, err := api.New(api.Options{StoreKind: *storeKind, DBPath: *dbPath, ConfigPath: *configPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	switch *kind {
	case "mutation":
		err = client.LoadMutationFile(ctx, *name, *file, *weight)
	case "selection":
		err = client.LoadSelectionFile(ctx, *name, *file)
	case "survival":
		err = client.LoadSurvivalFile(ctx, *name, *file)
	default:
		return fmt.Errorf("unknown operator kind: %s", *kind)
	}
	if err != nil {
		return err
	}
	fmt.Printf("loaded kind=%s name=%s file=%s\n", *kind, *name, *file)
	return nil
}

func runClear(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	kind := fs.String("kind", "all", "operator kind: mutation|selection|survival|all")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "epigonos.db", "sqlite database path")
	configPath := fs.String("config", "", "operator config TOML path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(api.Options{StoreKind: *storeKind, DBPath: *dbPath, ConfigPath: *configPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	switch *kind {
	case "mutation":
		err = client.ClearMutations(ctx)
	case "selection":
		err = client.ClearSelections(ctx)
	case "survival":
		err = client.ClearSurvivals(ctx)
	case "all":
		if err = client.ClearMutations(ctx); err == nil {
			if err = client.ClearSelections(ctx); err == nil {
				err = client.ClearSurvivals(ctx)
			}
		}
	default:
		return fmt.Errorf("unknown operator kind: %s", *kind)
	}
	if err != nil {
		return err
	}
	fmt.Printf("cleared kind=%s\n", *kind)
	return nil
}

func runReload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "epigonos.db", "sqlite database path")
	configPath := fs.String("config", "", "operator config TOML path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(api.Options{StoreKind: *storeKind, DBPath: *dbPath, ConfigPath: *configPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Reload(ctx); err != nil {
		return err
	}
	fmt.Printf("reloaded config=%s\n", *configPath)
	return nil
}

func runOperators(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("operators", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit registry contents as JSON")
	kind := fs.String("kind", "all", "show one registry: mutation|selection|survival|all")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "epigonos.db", "sqlite database path")
	configPath := fs.String("config", "", "operator config TOML path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch *kind {
	case "all", "mutation", "selection", "survival":
	default:
		return fmt.Errorf("unknown operator kind: %s", *kind)
	}
	showMutations := *kind == "all" || *kind == "mutation"
	showSelections := *kind == "all" || *kind == "selection"
	showSurvivals := *kind == "all" || *kind == "survival"

	client, err := api.New(api.Options{StoreKind: *storeKind, DBPath: *dbPath, ConfigPath: *configPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Operators(ctx)
	if err != nil {
		return err
	}

	if *jsonOut {
		type operatorsOut struct {
			AvailableMutations  []string           `json:"available_mutations,omitempty"`
			EnabledMutations    []string           `json:"enabled_mutations,omitempty"`
			MutationWeights     map[string]float64 `json:"mutation_weights,omitempty"`
			BuiltinOverrides    map[string]float64 `json:"builtin_overrides,omitempty"`
			AvailableSelections []string           `json:"available_selections,omitempty"`
			ActiveSelection     string             `json:"active_selection,omitempty"`
			AvailableSurvivals  []string           `json:"available_survivals,omitempty"`
			ActiveSurvival      string             `json:"active_survival,omitempty"`
		}
		var out operatorsOut
		if showMutations {
			out.AvailableMutations = summary.AvailableMutations
			out.EnabledMutations = summary.EnabledMutations
			out.MutationWeights = summary.MutationWeights
			out.BuiltinOverrides = summary.BuiltinOverrides
		}
		if showSelections {
			out.AvailableSelections = summary.AvailableSelections
			out.ActiveSelection = summary.ActiveSelection
		}
		if showSurvivals {
			out.AvailableSurvivals = summary.AvailableSurvivals
			out.ActiveSurvival = summary.ActiveSurvival
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if showMutations {
		enabled := make(map[string]bool, len(summary.EnabledMutations))
		for _, name := range summary.EnabledMutations {
			enabled[name] = true
		}
		for _, name := range summary.AvailableMutations {
			fmt.Printf("mutation name=%s weight=%g enabled=%t\n", name, summary.MutationWeights[name], enabled[name])
		}
		for _, name := range sortedWeightNames(summary.BuiltinOverrides) {
			fmt.Printf("builtin name=%s weight=%g\n", name, summary.BuiltinOverrides[name])
		}
	}
	if showSelections {
		fmt.Printf("selection active=%s available=%v\n", summary.ActiveSelection, summary.AvailableSelections)
	}
	if showSurvivals {
		fmt.Printf("survival active=%s available=%v\n", summary.ActiveSurvival, summary.AvailableSurvivals)
	}
	return nil
}

func runSlots(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("slots", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit slot assignment as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "epigonos.db", "sqlite database path")
	configPath := fs.String("config", "", "operator config TOML path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(api.Options{StoreKind: *storeKind, DBPath: *dbPath, ConfigPath: *configPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	slots, err := client.Slots(ctx)
	if err != nil {
		return err
	}

	if *jsonOut {
		type assignmentOut struct {
			Slot   int     `json:"slot"`
			Name   string  `json:"name"`
			Weight float64 `json:"weight"`
		}
		type slotsOut struct {
			Assignments []assignmentOut `json:"assignments"`
			Enabled     []string        `json:"enabled"`
			Truncated   bool            `json:"truncated"`
		}
		out := slotsOut{Enabled: slots.Enabled, Truncated: slots.Truncated}
		for _, a := range slots.Assignments {
			out.Assignments = append(out.Assignments, assignmentOut{Slot: a.Slot, Name: a.Name, Weight: a.Weight})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, a := range slots.Assignments {
		fmt.Printf("slot=%d name=%s weight=%g\n", a.Slot, a.Name, a.Weight)
	}
	fmt.Printf("enabled=%d assigned=%d truncated=%t\n", len(slots.Enabled), len(slots.Assignments), slots.Truncated)
	return nil
}

func sortedWeightNames(weights map[string]float64) []string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: epigonosctl <init|validate|check|load|clear|reload|operators|slots> [flags]", msg)
}
