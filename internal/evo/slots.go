package evo

import (
	"errors"
	"strings"

	"epigonos/internal/log"
	"epigonos/internal/model"
)

// AssignSlots projects the enabled mutations onto the host's fixed-capacity
// slot map and weight record. Slots are cleared first, then filled in
// lexical name order; when more mutations are enabled than slots exist the
// extras are logged and skipped. Builtin weight overrides from the config
// file are applied onto the matching weight fields, with unknown names
// skipped silently. The returned list is every enabled name, including any
// that did not fit a slot.
func (s *System) AssignSlots(slots *model.MutationSlots, weights *model.MutationWeights) ([]string, error) {
	if slots == nil || weights == nil {
		return nil, errors.New("slot map and weight record are required")
	}
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range slots.Names {
		slots.Names[i] = ""
		weights.Custom[i] = 0
	}

	enabled := s.enabledMutationsLocked()
	assigned := len(enabled)
	if assigned > model.SlotCapacity {
		log.Warn("enabled mutations exceed slot capacity, extras will not dispatch",
			"enabled", len(enabled), "capacity", model.SlotCapacity)
		assigned = model.SlotCapacity
	}
	for i := 0; i < assigned; i++ {
		slots.Names[i] = enabled[i]
		weights.Custom[i] = s.weights[enabled[i]]
	}

	for _, name := range sortedKeys(s.builtinOverrides) {
		applyBuiltinWeight(weights, name, s.builtinOverrides[name])
	}
	return enabled, nil
}

func normalizeBuiltinWeightName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

// applyBuiltinWeight writes value onto the weight field the name denotes.
// Unknown names report false and leave the record untouched.
func applyBuiltinWeight(w *model.MutationWeights, name string, value float64) bool {
	switch normalizeBuiltinWeightName(name) {
	case "mutate_constant":
		w.MutateConstant = value
	case "mutate_operator":
		w.MutateOperator = value
	case "swap_operands":
		w.SwapOperands = value
	case "rotate_tree":
		w.RotateTree = value
	case "add_node":
		w.AddNode = value
	case "insert_node":
		w.InsertNode = value
	case "delete_node":
		w.DeleteNode = value
	case "simplify":
		w.Simplify = value
	case "randomize":
		w.Randomize = value
	case "do_nothing":
		w.DoNothing = value
	case "optimize":
		w.Optimize = value
	default:
		return false
	}
	return true
}
