// Package evo owns the operator plugin lifecycle for an expression-tree
// search: three named registries (mutation, selection, survival), the
// default algorithms behind the single-slot registries, dynamic loading of
// operator source, and the projection of enabled mutations onto the host's
// weight record.
package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"epigonos/internal/expr"
	"epigonos/internal/model"
	"epigonos/internal/stats"
)

// Kind tags the three operator namespaces. Names are independent between
// kinds: a mutation called "x" and a selection called "x" do not collide.
type Kind int

const (
	KindMutation Kind = iota
	KindSelection
	KindSurvival
)

func (k Kind) String() string {
	switch k {
	case KindMutation:
		return "mutation"
	case KindSelection:
		return "selection"
	case KindSurvival:
		return "survival"
	default:
		return "unknown"
	}
}

// ParseKind maps the wire names "mutation", "selection" and "survival" back
// to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "mutation":
		return KindMutation, nil
	case "selection":
		return KindSelection, nil
	case "survival":
		return KindSurvival, nil
	default:
		return 0, fmt.Errorf("unsupported operator kind: %q", s)
	}
}

// MutationFunc rewrites an expression tree. Implementations must treat the
// input tree as read-only and return either it or a fresh tree; the rng is
// the only sanctioned source of randomness.
type MutationFunc func(tree *expr.Node, opts *model.Options, nfeatures int, rng *rand.Rand) (*expr.Node, error)

// SelectionFunc picks a parent from the population. The dispatch layer
// copies the returned member before handing it to the host, so
// implementations may return population entries directly.
type SelectionFunc func(pop *model.Population, rs *stats.Running, opts *model.Options, rng *rand.Rand) (model.Member, error)

// SurvivalFunc picks the population position to replace, 1-based. Results
// outside 1..n are a contract violation the dispatch layer turns into
// ErrInvalidSurvivorPosition.
type SurvivalFunc func(pop *model.Population, opts *model.Options, exclude []int) (int, error)

// Origin records how an operator entered its registry.
type Origin string

const (
	OriginStatic  Origin = "static"
	OriginDynamic Origin = "dynamic"
)

var (
	// ErrBadSignature marks loaded source whose declared name is bound to a
	// function of the wrong shape for its kind.
	ErrBadSignature = errors.New("operator has wrong signature")
	// ErrInvalidSurvivorPosition marks a survival override that returned a
	// position outside 1..n. Callers must treat it as fatal; positions are
	// never clamped.
	ErrInvalidSurvivorPosition = errors.New("survivor position out of range")
)

const (
	mutationSignature  = "func(*expr.Node, *model.Options, int, *rand.Rand) (*expr.Node, error)"
	selectionSignature = "func(*model.Population, *stats.Running, *model.Options, *rand.Rand) (model.Member, error)"
	survivalSignature  = "func(*model.Population, *model.Options, []int) (int, error)"
)

// DefaultSelectionName and DefaultSurvivalName are the built-in algorithms
// reported by the availability listings.
const (
	DefaultSelectionName = "tournament"
	DefaultSurvivalName  = "age_regularized"
)

type registeredMutation struct {
	fn     MutationFunc
	origin Origin
}

// dynamicMutation is the retained form of a runtime registration. Entries
// survive Reload so dynamic operators and their weights are re-applied on
// top of whatever the config file says.
type dynamicMutation struct {
	name   string
	fn     MutationFunc
	weight float64
	source string
}

type dynamicSelection struct {
	name   string
	fn     SelectionFunc
	source string
}

type dynamicSurvival struct {
	name   string
	fn     SurvivalFunc
	source string
}
