package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"epigonos/internal/config"
)

const doubleConstantsSrc = `
import (
	"math/rand"

	"epigonos/expr"
	"epigonos/model"
)

func DoubleConstants(tree *expr.Node, opts *model.Options, nfeatures int, rng *rand.Rand) (*expr.Node, error) {
	out := tree.Copy()
	for _, n := range out.Nodes() {
		if n.IsConst {
			n.Value *= 2
		}
	}
	return out, nil
}
`

func writeTestFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunRejectsMissingAndUnknownCommands(t *testing.T) {
	if err := run(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "missing command") {
		t.Fatalf("expected missing command error, got %v", err)
	}
	if err := run(context.Background(), []string{"bogus"}); err == nil || !strings.Contains(err.Error(), "unknown command: bogus") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestInitCommandMemoryStore(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"init", "--store", "memory"})
	})
	if err != nil {
		t.Fatalf("init command: %v", err)
	}
	if !strings.Contains(out, "initialized store=memory") {
		t.Fatalf("unexpected init output: %s", out)
	}
}

func TestValidateCommandReportsTables(t *testing.T) {
	path := writeTestFile(t, "operators.toml", `
[custom_mutations]
prune_random_subtree = 0.4
hoist_random_subtree = 0.2

[builtin_weights]
mutate_constant = 0.5
`)
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"validate", "--config", path})
	})
	if err != nil {
		t.Fatalf("validate command: %v", err)
	}
	if !strings.Contains(out, "custom_mutations=2") || !strings.Contains(out, "builtin_weights=1") {
		t.Fatalf("unexpected validate output: %s", out)
	}
	if !strings.Contains(out, "custom name=hoist_random_subtree weight=0.2") {
		t.Fatalf("expected sorted custom rows: %s", out)
	}
	if !strings.Contains(out, "builtin name=mutate_constant weight=0.5") {
		t.Fatalf("expected builtin row: %s", out)
	}
}

func TestValidateCommandRejectsMissingAndNegative(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")
	err := run(context.Background(), []string{"validate", "--config", missing})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}

	negative := writeTestFile(t, "operators.toml", `
[custom_mutations]
prune_random_subtree = -0.5
`)
	err = run(context.Background(), []string{"validate", "--config", negative})
	if !errors.Is(err, config.ErrNegativeWeight) {
		t.Fatalf("expected negative weight error, got %v", err)
	}

	if err := run(context.Background(), []string{"validate"}); err == nil {
		t.Fatal("expected missing --config error")
	}
}

func TestCheckCommandAcceptsAndRejects(t *testing.T) {
	valid := writeTestFile(t, "double_constants.go", doubleConstantsSrc)
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"check", "--kind", "mutation", "--name", "DoubleConstants", "--file", valid})
	})
	if err != nil {
		t.Fatalf("check command: %v", err)
	}
	if !strings.Contains(out, "ok kind=mutation name=DoubleConstants") {
		t.Fatalf("unexpected check output: %s", out)
	}

	wrong := writeTestFile(t, "wrong.go", "func DoubleConstants(a int) int { return a }")
	if err := run(context.Background(), []string{"check", "--kind", "mutation", "--name", "DoubleConstants", "--file", wrong}); err == nil {
		t.Fatal("expected signature error")
	}

	if err := run(context.Background(), []string{"check", "--kind", "ranking", "--name", "DoubleConstants", "--file", valid}); err == nil {
		t.Fatal("expected unknown kind error")
	}

	if err := run(context.Background(), []string{"check", "--name", "DoubleConstants"}); err == nil {
		t.Fatal("expected missing --file error")
	}
}

func TestLoadCommandMemoryStore(t *testing.T) {
	path := writeTestFile(t, "double_constants.go", doubleConstantsSrc)
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"load", "--store", "memory", "--kind", "mutation", "--name", "DoubleConstants", "--file", path, "--weight", "0.6"})
	})
	if err != nil {
		t.Fatalf("load command: %v", err)
	}
	if !strings.Contains(out, "loaded kind=mutation name=DoubleConstants") {
		t.Fatalf("unexpected load output: %s", out)
	}

	if err := run(context.Background(), []string{"load", "--store", "memory", "--kind", "ranking", "--name", "X", "--file", path}); err == nil {
		t.Fatal("expected unknown kind error")
	}
	if err := run(context.Background(), []string{"load", "--store", "memory"}); err == nil {
		t.Fatal("expected missing --name error")
	}
}

func TestOperatorsCommandShowsConfiguredWeights(t *testing.T) {
	path := writeTestFile(t, "operators.toml", `
[custom_mutations]
prune_random_subtree = 0.4

[builtin_weights]
mutate_constant = 0.5
`)
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"operators", "--store", "memory", "--config", path})
	})
	if err != nil {
		t.Fatalf("operators command: %v", err)
	}
	if !strings.Contains(out, "mutation name=prune_random_subtree weight=0.4 enabled=true") {
		t.Fatalf("expected enabled mutation row: %s", out)
	}
	if !strings.Contains(out, "mutation name=swap_random_operands weight=0 enabled=false") {
		t.Fatalf("expected disabled mutation row: %s", out)
	}
	if !strings.Contains(out, "builtin name=mutate_constant weight=0.5") {
		t.Fatalf("expected builtin row: %s", out)
	}
	if !strings.Contains(out, "selection active=tournament") || !strings.Contains(out, "survival active=age_regularized") {
		t.Fatalf("expected default slot rows: %s", out)
	}
}

func TestOperatorsCommandJSON(t *testing.T) {
	path := writeTestFile(t, "operators.toml", `
[custom_mutations]
prune_random_subtree = 0.4
`)
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"operators", "--store", "memory", "--config", path, "--json"})
	})
	if err != nil {
		t.Fatalf("operators json command: %v", err)
	}
	if !strings.Contains(out, "\"enabled_mutations\"") || !strings.Contains(out, "\"active_selection\": \"tournament\"") {
		t.Fatalf("unexpected operators json output: %s", out)
	}
}

func TestOperatorsCommandKindFilter(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"operators", "--store", "memory", "--kind", "selection"})
	})
	if err != nil {
		t.Fatalf("operators kind filter: %v", err)
	}
	if !strings.Contains(out, "selection active=tournament") {
		t.Fatalf("expected selection row: %s", out)
	}
	if strings.Contains(out, "mutation name=") || strings.Contains(out, "survival active=") {
		t.Fatalf("filter leaked other registries: %s", out)
	}

	if err := run(context.Background(), []string{"operators", "--store", "memory", "--kind", "ranking"}); err == nil {
		t.Fatal("expected unknown kind error")
	}
}

func TestSlotsCommandShowsAssignments(t *testing.T) {
	path := writeTestFile(t, "operators.toml", `
[custom_mutations]
prune_random_subtree = 0.4
hoist_random_subtree = 0.2
`)
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"slots", "--store", "memory", "--config", path})
	})
	if err != nil {
		t.Fatalf("slots command: %v", err)
	}
	if !strings.Contains(out, "slot=1 name=hoist_random_subtree weight=0.2") {
		t.Fatalf("expected first slot row: %s", out)
	}
	if !strings.Contains(out, "slot=2 name=prune_random_subtree weight=0.4") {
		t.Fatalf("expected second slot row: %s", out)
	}
	if !strings.Contains(out, "enabled=2 assigned=2 truncated=false") {
		t.Fatalf("unexpected slots summary: %s", out)
	}
}

func TestReloadCommandMemoryStore(t *testing.T) {
	path := writeTestFile(t, "operators.toml", `
[custom_mutations]
prune_random_subtree = 0.4
`)
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"reload", "--store", "memory", "--config", path})
	})
	if err != nil {
		t.Fatalf("reload command: %v", err)
	}
	if !strings.Contains(out, "reloaded config=") {
		t.Fatalf("unexpected reload output: %s", out)
	}

	broken := writeTestFile(t, "broken.toml", "[custom_mutations\nbad = 1")
	if err := run(context.Background(), []string{"reload", "--store", "memory", "--config", broken}); err == nil {
		t.Fatal("expected malformed config error")
	}
}

func TestClearCommandMemoryStore(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"clear", "--store", "memory", "--kind", "all"})
	})
	if err != nil {
		t.Fatalf("clear command: %v", err)
	}
	if !strings.Contains(out, "cleared kind=all") {
		t.Fatalf("unexpected clear output: %s", out)
	}

	if err := run(context.Background(), []string{"clear", "--store", "memory", "--kind", "ranking"}); err == nil {
		t.Fatal("expected unknown kind error")
	}
}

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}
