//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStoreDynamicOperatorRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "epigonos.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.SaveDynamicOperator(ctx, testRecord("mutation", "double_constants", 0.7)); err != nil {
		t.Fatalf("save: %v", err)
	}

	record, ok, err := store.GetDynamicOperator(ctx, "mutation", "double_constants")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted operator")
	}
	if record.Weight != 0.7 || record.Source == "" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestSQLiteStoreUpsertAndList(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "epigonos.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	for _, name := range []string{"zeta", "alpha"} {
		if err := store.SaveDynamicOperator(ctx, testRecord("mutation", name, 0.5)); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	if err := store.SaveDynamicOperator(ctx, testRecord("mutation", "zeta", 0.9)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	records, err := store.ListDynamicOperators(ctx, "mutation")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("list length: got %d, want 2", len(records))
	}
	if records[0].Name != "alpha" || records[1].Name != "zeta" {
		t.Fatalf("list order: %+v", records)
	}
	if records[1].Weight != 0.9 {
		t.Fatalf("upsert weight: got %v, want 0.9", records[1].Weight)
	}
}

func TestSQLiteStoreDeleteByKind(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "epigonos.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.SaveDynamicOperator(ctx, testRecord("mutation", "m", 1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveDynamicOperator(ctx, testRecord("survival", "s", 1)); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.DeleteDynamicOperators(ctx, "mutation"); err != nil {
		t.Fatalf("delete kind: %v", err)
	}

	if _, ok, _ := store.GetDynamicOperator(ctx, "mutation", "m"); ok {
		t.Fatal("mutation record survived kind delete")
	}
	if _, ok, _ := store.GetDynamicOperator(ctx, "survival", "s"); !ok {
		t.Fatal("survival record lost by mutation kind delete")
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "epigonos.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveDynamicOperator(ctx, testRecord("mutation", "keeper", 0.4)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := NewSQLiteStore(dbPath)
	if err := reopened.Init(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() {
		_ = reopened.Close()
	})

	record, ok, err := reopened.GetDynamicOperator(ctx, "mutation", "keeper")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if !ok || record.Weight != 0.4 {
		t.Fatalf("record lost across reopen: ok=%v record=%+v", ok, record)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "epigonos.db"))

	if err := store.SaveDynamicOperator(context.Background(), testRecord("mutation", "m", 1)); err == nil {
		t.Fatal("save before init should fail")
	}
}
