package evo

import (
	"reflect"
	"strings"
	"testing"

	"epigonos/internal/model"
)

func TestAssignSlotsFillsInNameOrder(t *testing.T) {
	path := writeOperatorConfig(t, `
[custom_mutations]
prune_random_subtree = 0.4
hoist_random_subtree = 0.2
`)
	sys := New(path)
	slots := &model.MutationSlots{}
	weights := &model.MutationWeights{}

	enabled, err := sys.AssignSlots(slots, weights)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !reflect.DeepEqual(enabled, []string{StaticHoistRandomSubtree, StaticPruneRandomSubtree}) {
		t.Fatalf("unexpected enabled list: %v", enabled)
	}
	if slots.Names[0] != StaticHoistRandomSubtree || slots.Names[1] != StaticPruneRandomSubtree {
		t.Fatalf("unexpected slot assignment: %v", slots.Names)
	}
	if weights.Custom[0] != 0.2 || weights.Custom[1] != 0.4 {
		t.Fatalf("unexpected slot weights: %v", weights.Custom)
	}
	for i := 2; i < model.SlotCapacity; i++ {
		if slots.Names[i] != "" || weights.Custom[i] != 0 {
			t.Fatalf("slot %d should be empty: %q %v", i, slots.Names[i], weights.Custom[i])
		}
	}
}

func TestAssignSlotsTruncatesAtCapacity(t *testing.T) {
	buf := captureLogs(t)
	path := writeOperatorConfig(t, `
[custom_mutations]
append_random_operation = 0.1
hoist_random_subtree = 0.2
negate_random_constant = 0.3
perturb_all_constants = 0.4
prune_random_subtree = 0.5
replace_random_leaf = 0.6
swap_random_operands = 0.7
`)
	sys := New(path)
	slots := &model.MutationSlots{}
	weights := &model.MutationWeights{}

	enabled, err := sys.AssignSlots(slots, weights)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(enabled) != 7 {
		t.Fatalf("expected all 7 enabled names returned, got %v", enabled)
	}
	wantSlots := [model.SlotCapacity]string{
		StaticAppendRandomOperation,
		StaticHoistRandomSubtree,
		StaticNegateRandomConstant,
		StaticPerturbAllConstants,
		StaticPruneRandomSubtree,
	}
	if slots.Names != wantSlots {
		t.Fatalf("unexpected slots: %v", slots.Names)
	}
	if !strings.Contains(buf.String(), "exceed slot capacity") {
		t.Fatalf("expected truncation warning, got: %s", buf.String())
	}
}

func TestAssignSlotsAppliesBuiltinOverrides(t *testing.T) {
	path := writeOperatorConfig(t, `
[builtin_weights]
mutate_constant = 0.5
optimize = 0.25
no_such_builtin = 9.0
`)
	sys := New(path)
	slots := &model.MutationSlots{}
	weights := &model.MutationWeights{MutateOperator: 0.47, DoNothing: 0.2}

	if _, err := sys.AssignSlots(slots, weights); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if weights.MutateConstant != 0.5 {
		t.Fatalf("mutate_constant override not applied: %v", weights.MutateConstant)
	}
	if weights.Optimize != 0.25 {
		t.Fatalf("optimize override not applied: %v", weights.Optimize)
	}
	if weights.MutateOperator != 0.47 || weights.DoNothing != 0.2 {
		t.Fatalf("untouched fields changed: %+v", weights)
	}
}

func TestAssignSlotsClearsStaleAssignments(t *testing.T) {
	sys := New("")
	if err := sys.RegisterMutation("zz_custom", nativeDoubleConstants, 0.9); err != nil {
		t.Fatalf("register: %v", err)
	}
	slots := &model.MutationSlots{}
	weights := &model.MutationWeights{}
	if _, err := sys.AssignSlots(slots, weights); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if slots.Names[0] != "zz_custom" || weights.Custom[0] != 0.9 {
		t.Fatalf("expected zz_custom in slot 0: %v %v", slots.Names, weights.Custom)
	}

	sys.ClearDynamicMutations()
	if _, err := sys.AssignSlots(slots, weights); err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if slots.Names[0] != "" || weights.Custom[0] != 0 {
		t.Fatalf("stale assignment survived: %v %v", slots.Names, weights.Custom)
	}
}

func TestAssignSlotsValidation(t *testing.T) {
	sys := New("")
	if _, err := sys.AssignSlots(nil, &model.MutationWeights{}); err == nil {
		t.Fatal("expected nil slots error")
	}
	if _, err := sys.AssignSlots(&model.MutationSlots{}, nil); err == nil {
		t.Fatal("expected nil weights error")
	}
}

func TestApplyBuiltinWeightNormalizesNames(t *testing.T) {
	w := &model.MutationWeights{}
	if !applyBuiltinWeight(w, " Mutate-Constant ", 0.3) {
		t.Fatal("normalized name should match")
	}
	if w.MutateConstant != 0.3 {
		t.Fatalf("field not set: %v", w.MutateConstant)
	}
	if applyBuiltinWeight(w, "bogus", 1) {
		t.Fatal("unknown name should not match")
	}
}
