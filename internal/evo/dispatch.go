package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"epigonos/internal/expr"
	"epigonos/internal/log"
	"epigonos/internal/model"
	"epigonos/internal/stats"
)

// DispatchMutation runs the mutation registered under name. An unregistered
// name is not an error: the tree comes back unchanged with a warning, so a
// stale config entry cannot abort a long search. The registry read lock is
// held across the operator call, which keeps loads and reloads from
// mutating state mid-operator.
func (s *System) DispatchMutation(name string, tree *expr.Node, opts *model.Options, nfeatures int, rng *rand.Rand) (*expr.Node, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.mutations[name]
	if !ok {
		log.Warn("mutation operator not registered, tree unchanged", "name", name)
		return tree, nil
	}
	return entry.fn(tree, opts, nfeatures, rng)
}

// DispatchMutationExpression unwraps the expression's tree, dispatches, and
// rewraps the result with the original metadata. The input expression is
// never modified.
func (s *System) DispatchMutationExpression(name string, ex *expr.Expression, opts *model.Options, nfeatures int, rng *rand.Rand) (*expr.Expression, error) {
	if ex == nil {
		return nil, errors.New("expression is required")
	}
	tree, err := s.DispatchMutation(name, ex.Tree, opts, nfeatures, rng)
	if err != nil {
		return nil, err
	}
	return ex.WithTree(tree), nil
}

// PickMutation draws an enabled mutation name with probability
// proportional to its effective weight, for hosts that let the registry
// drive operator choice. It fails when nothing is enabled.
func (s *System) PickMutation(rng *rand.Rand) (string, error) {
	if rng == nil {
		return "", errors.New("random source is required")
	}
	if err := s.ensureInitialized(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := s.enabledMutationsLocked()
	if len(names) == 0 {
		return "", errors.New("no mutations are enabled")
	}
	total := 0.0
	for _, name := range names {
		total += s.weights[name]
	}
	pick := rng.Float64() * total
	acc := 0.0
	for _, name := range names {
		acc += s.weights[name]
		if pick <= acc {
			return name, nil
		}
	}
	return names[len(names)-1], nil
}

// DispatchSelection picks a parent with the active selection override, or
// tournament selection when none is installed. The returned member is a
// copy detached from population storage.
func (s *System) DispatchSelection(pop *model.Population, rs *stats.Running, opts *model.Options, rng *rand.Rand) (model.Member, error) {
	if rng == nil {
		return model.Member{}, errors.New("random source is required")
	}
	if pop.N() == 0 {
		return model.Member{}, errors.New("population is empty")
	}
	if err := s.ensureInitialized(); err != nil {
		return model.Member{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selection == nil {
		return tournamentSelect(rng, pop, rs, opts)
	}
	member, err := s.selection(pop, rs, opts, rng)
	if err != nil {
		return model.Member{}, fmt.Errorf("selection %s: %w", s.selectionName, err)
	}
	return member.Copy(), nil
}

// DispatchSurvival picks the 1-based population position to replace with
// the active survival override, or age-regularized replacement when none is
// installed. An override result outside 1..n is fatal and reported as
// ErrInvalidSurvivorPosition, never clamped.
func (s *System) DispatchSurvival(pop *model.Population, opts *model.Options, exclude []int) (int, error) {
	if pop.N() == 0 {
		return 0, errors.New("population is empty")
	}
	if err := s.ensureInitialized(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.survival == nil {
		return oldestPosition(pop, exclude)
	}
	pos, err := s.survival(pop, opts, exclude)
	if err != nil {
		return 0, fmt.Errorf("survival %s: %w", s.survivalName, err)
	}
	if pos < 1 || pos > pop.N() {
		return 0, fmt.Errorf("%w: %s returned %d for population of %d", ErrInvalidSurvivorPosition, s.survivalName, pos, pop.N())
	}
	return pos, nil
}
