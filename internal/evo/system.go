package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"reflect"
	"sort"
	"sync"

	"epigonos/internal/config"
	"epigonos/internal/expr"
	"epigonos/internal/loader"
	"epigonos/internal/log"
	"epigonos/internal/model"
	"epigonos/internal/stats"
)

// System is the owning context for the three operator registries. All state
// lives on the instance; hosts that want a process-wide system wrap one in a
// platform hub. A single RWMutex serializes registry mutation against the
// dispatch read path.
type System struct {
	mu          sync.RWMutex
	configPath  string
	initialized bool

	// Live dispatch structures, rebuilt from scratch on every reload.
	mutations        map[string]registeredMutation
	weights          map[string]float64
	builtinOverrides map[string]float64

	// Retained runtime registrations, re-applied on top of each reload.
	dynamicMutations  []dynamicMutation
	dynamicSelections []dynamicSelection
	dynamicSurvivals  []dynamicSurvival

	// Active single-slot overrides; nil means the built-in default.
	selection     SelectionFunc
	selectionName string
	survival      SurvivalFunc
	survivalName  string
}

// New builds an operator system that reads configPath on every reload. An
// empty path runs without file configuration. No state is built until the
// first dispatch, listing, or explicit Reload.
func New(configPath string) *System {
	return &System{configPath: configPath}
}

// ConfigPath reports the config file consulted on reload.
func (s *System) ConfigPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configPath
}

// Reload rebuilds every live structure: the static operator set is
// re-seeded, retained dynamic registrations are re-applied without
// recompilation, the config file is re-read, and dynamic weights are laid
// down last so runtime registrations win over file configuration.
func (s *System) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

func (s *System) reloadLocked() error {
	s.mutations = make(map[string]registeredMutation)
	s.weights = make(map[string]float64)
	s.builtinOverrides = make(map[string]float64)

	s.registerStaticsLocked()

	for _, d := range s.dynamicMutations {
		s.mutations[d.name] = registeredMutation{fn: d.fn, origin: OriginDynamic}
	}

	if s.configPath != "" {
		cfg, found, err := config.Load(s.configPath)
		if err != nil {
			return err
		}
		if !found {
			log.Warn("operator config not found, continuing with empty configuration", "path", s.configPath)
		}
		for _, name := range sortedKeys(cfg.BuiltinWeights) {
			s.builtinOverrides[name] = cfg.BuiltinWeights[name]
		}
		for _, name := range sortedKeys(cfg.CustomMutations) {
			weight := cfg.CustomMutations[name]
			if weight == 0 {
				continue
			}
			if _, ok := s.mutations[name]; !ok {
				log.Debug("configured mutation is not registered, skipping", "name", name)
				continue
			}
			s.weights[name] = weight
		}
	}

	// Runtime registrations always win over file configuration.
	for _, d := range s.dynamicMutations {
		if d.weight > 0 {
			s.weights[d.name] = d.weight
		} else {
			delete(s.weights, d.name)
		}
	}

	if n := len(s.dynamicSelections); n > 0 {
		last := s.dynamicSelections[n-1]
		s.selection, s.selectionName = last.fn, last.name
	} else {
		s.selection, s.selectionName = nil, ""
	}
	if n := len(s.dynamicSurvivals); n > 0 {
		last := s.dynamicSurvivals[n-1]
		s.survival, s.survivalName = last.fn, last.name
	} else {
		s.survival, s.survivalName = nil, ""
	}

	s.initialized = true
	return nil
}

func (s *System) registerStaticsLocked() {
	for name, fn := range staticMutations() {
		s.mutations[name] = registeredMutation{fn: fn, origin: OriginStatic}
	}
}

// ensureInitialized performs the lazy first reload. Dispatch and listing
// call it before touching live structures.
func (s *System) ensureInitialized() error {
	s.mu.RLock()
	ready := s.initialized
	s.mu.RUnlock()
	if ready {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	return s.reloadLocked()
}

// LoadMutationFromString compiles source, binds the function declared by
// name, and registers it as a dynamic mutation with the given weight. A
// weight of zero registers the operator disabled. Nothing is registered when
// compilation or the signature check fails.
func (s *System) LoadMutationFromString(name, source string, weight float64) error {
	if err := validateLoad(name, weight); err != nil {
		return err
	}
	if err := s.ensureInitialized(); err != nil {
		return err
	}
	v, err := loader.Compile(name, source)
	if err != nil {
		return err
	}
	fn, err := asMutationFunc(name, v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertDynamicMutationLocked(dynamicMutation{name: name, fn: fn, weight: weight, source: source})
	s.mutations[name] = registeredMutation{fn: fn, origin: OriginDynamic}
	if weight > 0 {
		s.weights[name] = weight
	} else {
		delete(s.weights, name)
	}
	log.Info("loaded dynamic mutation", "name", name, "weight", weight)
	return nil
}

// LoadMutationFromFile reads operator source from path and delegates to
// LoadMutationFromString. A path that does not resolve fails without
// touching any registry state.
func (s *System) LoadMutationFromFile(name, path string, weight float64) error {
	source, err := readSource(path)
	if err != nil {
		return err
	}
	return s.LoadMutationFromString(name, source, weight)
}

// RegisterMutation registers a native function under name, skipping
// compilation. Native registrations behave exactly like loaded ones but
// carry no source text, so they cannot be persisted.
func (s *System) RegisterMutation(name string, fn MutationFunc, weight float64) error {
	if err := validateLoad(name, weight); err != nil {
		return err
	}
	if fn == nil {
		return errors.New("mutation function is required")
	}
	if err := s.ensureInitialized(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertDynamicMutationLocked(dynamicMutation{name: name, fn: fn, weight: weight})
	s.mutations[name] = registeredMutation{fn: fn, origin: OriginDynamic}
	if weight > 0 {
		s.weights[name] = weight
	} else {
		delete(s.weights, name)
	}
	return nil
}

func (s *System) upsertDynamicMutationLocked(d dynamicMutation) {
	for i := range s.dynamicMutations {
		if s.dynamicMutations[i].name == d.name {
			s.dynamicMutations[i] = d
			return
		}
	}
	s.dynamicMutations = append(s.dynamicMutations, d)
}

// LoadSelectionFromString compiles source and installs the declared
// function as the active selection override, replacing any previous one.
func (s *System) LoadSelectionFromString(name, source string) error {
	if name == "" {
		return errors.New("operator name is required")
	}
	if err := s.ensureInitialized(); err != nil {
		return err
	}
	v, err := loader.Compile(name, source)
	if err != nil {
		return err
	}
	fn, err := asSelectionFunc(name, v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertDynamicSelectionLocked(dynamicSelection{name: name, fn: fn, source: source})
	s.selection, s.selectionName = fn, name
	log.Info("loaded dynamic selection", "name", name)
	return nil
}

// LoadSelectionFromFile reads operator source from path and delegates to
// LoadSelectionFromString.
func (s *System) LoadSelectionFromFile(name, path string) error {
	source, err := readSource(path)
	if err != nil {
		return err
	}
	return s.LoadSelectionFromString(name, source)
}

// RegisterSelection installs a native selection override under name.
func (s *System) RegisterSelection(name string, fn SelectionFunc) error {
	if name == "" {
		return errors.New("operator name is required")
	}
	if fn == nil {
		return errors.New("selection function is required")
	}
	if err := s.ensureInitialized(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertDynamicSelectionLocked(dynamicSelection{name: name, fn: fn})
	s.selection, s.selectionName = fn, name
	return nil
}

func (s *System) upsertDynamicSelectionLocked(d dynamicSelection) {
	for i := range s.dynamicSelections {
		if s.dynamicSelections[i].name == d.name {
			s.dynamicSelections = append(s.dynamicSelections[:i], s.dynamicSelections[i+1:]...)
			break
		}
	}
	s.dynamicSelections = append(s.dynamicSelections, d)
}

// LoadSurvivalFromString compiles source and installs the declared function
// as the active survival override, replacing any previous one.
func (s *System) LoadSurvivalFromString(name, source string) error {
	if name == "" {
		return errors.New("operator name is required")
	}
	if err := s.ensureInitialized(); err != nil {
		return err
	}
	v, err := loader.Compile(name, source)
	if err != nil {
		return err
	}
	fn, err := asSurvivalFunc(name, v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertDynamicSurvivalLocked(dynamicSurvival{name: name, fn: fn, source: source})
	s.survival, s.survivalName = fn, name
	log.Info("loaded dynamic survival", "name", name)
	return nil
}

// LoadSurvivalFromFile reads operator source from path and delegates to
// LoadSurvivalFromString.
func (s *System) LoadSurvivalFromFile(name, path string) error {
	source, err := readSource(path)
	if err != nil {
		return err
	}
	return s.LoadSurvivalFromString(name, source)
}

// RegisterSurvival installs a native survival override under name.
func (s *System) RegisterSurvival(name string, fn SurvivalFunc) error {
	if name == "" {
		return errors.New("operator name is required")
	}
	if fn == nil {
		return errors.New("survival function is required")
	}
	if err := s.ensureInitialized(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertDynamicSurvivalLocked(dynamicSurvival{name: name, fn: fn})
	s.survival, s.survivalName = fn, name
	return nil
}

func (s *System) upsertDynamicSurvivalLocked(d dynamicSurvival) {
	for i := range s.dynamicSurvivals {
		if s.dynamicSurvivals[i].name == d.name {
			s.dynamicSurvivals = append(s.dynamicSurvivals[:i], s.dynamicSurvivals[i+1:]...)
			break
		}
	}
	s.dynamicSurvivals = append(s.dynamicSurvivals, d)
}

// ClearDynamicMutations drops every runtime mutation registration and its
// weight, leaving the static set intact. Config-file weights for static
// operators survive; weights for cleared names return on the next reload
// only if the config file names a static operator.
func (s *System) ClearDynamicMutations() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dynamicMutations = nil
	if s.mutations == nil {
		return
	}
	for name, entry := range s.mutations {
		if entry.origin != OriginDynamic {
			continue
		}
		delete(s.mutations, name)
		delete(s.weights, name)
	}
	s.registerStaticsLocked()
}

// ClearDynamicSelections drops every selection override; the next dispatch
// falls back to tournament selection.
func (s *System) ClearDynamicSelections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dynamicSelections = nil
	s.selection, s.selectionName = nil, ""
}

// ClearDynamicSurvivals drops every survival override; the next dispatch
// falls back to age-regularized replacement.
func (s *System) ClearDynamicSurvivals() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dynamicSurvivals = nil
	s.survival, s.survivalName = nil, ""
}

// ListAvailableMutations reports every registered mutation name, static and
// dynamic, in lexical order.
func (s *System) ListAvailableMutations() ([]string, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.mutations))
	for name := range s.mutations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ListEnabledMutations reports every mutation with a positive weight, in
// lexical order.
func (s *System) ListEnabledMutations() ([]string, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabledMutationsLocked(), nil
}

func (s *System) enabledMutationsLocked() []string {
	names := make([]string, 0, len(s.weights))
	for name, weight := range s.weights {
		if weight > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ListAvailableSelections reports the default algorithm plus every dynamic
// selection name, in lexical order.
func (s *System) ListAvailableSelections() ([]string, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := []string{DefaultSelectionName}
	for _, d := range s.dynamicSelections {
		names = append(names, d.name)
	}
	sort.Strings(names)
	return names, nil
}

// ListAvailableSurvivals reports the default algorithm plus every dynamic
// survival name, in lexical order.
func (s *System) ListAvailableSurvivals() ([]string, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := []string{DefaultSurvivalName}
	for _, d := range s.dynamicSurvivals {
		names = append(names, d.name)
	}
	sort.Strings(names)
	return names, nil
}

// ActiveSelectionName reports the active override name, or the default
// algorithm's name when no override is installed.
func (s *System) ActiveSelectionName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectionName == "" {
		return DefaultSelectionName
	}
	return s.selectionName
}

// ActiveSurvivalName reports the active override name, or the default
// algorithm's name when no override is installed.
func (s *System) ActiveSurvivalName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.survivalName == "" {
		return DefaultSurvivalName
	}
	return s.survivalName
}

// MutationWeight reports the effective weight for name. Disabled or unknown
// names report false.
func (s *System) MutationWeight(name string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	weight, ok := s.weights[name]
	return weight, ok
}

// MutationOrigin reports whether name is registered and, if so, how it got
// there.
func (s *System) MutationOrigin(name string) (Origin, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.mutations[name]
	if !ok {
		return "", false
	}
	return entry.origin, true
}

// WeightTable returns a copy of the effective name-to-weight table.
func (s *System) WeightTable() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	table := make(map[string]float64, len(s.weights))
	for name, weight := range s.weights {
		table[name] = weight
	}
	return table
}

// BuiltinOverrides returns a copy of the builtin weight overrides read from
// the config file.
func (s *System) BuiltinOverrides() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	overrides := make(map[string]float64, len(s.builtinOverrides))
	for name, weight := range s.builtinOverrides {
		overrides[name] = weight
	}
	return overrides
}

// DynamicOperatorSources reports the retained source-backed registrations
// for kind, in registration order. Native registrations carry no source and
// are omitted.
func (s *System) DynamicOperatorSources(kind Kind) []DynamicSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DynamicSource
	switch kind {
	case KindMutation:
		for _, d := range s.dynamicMutations {
			if d.source == "" {
				continue
			}
			out = append(out, DynamicSource{Name: d.name, Source: d.source, Weight: d.weight})
		}
	case KindSelection:
		for _, d := range s.dynamicSelections {
			if d.source == "" {
				continue
			}
			out = append(out, DynamicSource{Name: d.name, Source: d.source})
		}
	case KindSurvival:
		for _, d := range s.dynamicSurvivals {
			if d.source == "" {
				continue
			}
			out = append(out, DynamicSource{Name: d.name, Source: d.source})
		}
	}
	return out
}

// DynamicSource is a snapshot of one retained source-backed registration.
type DynamicSource struct {
	Name   string
	Source string
	Weight float64
}

func validateLoad(name string, weight float64) error {
	if name == "" {
		return errors.New("operator name is required")
	}
	if weight < 0 {
		return fmt.Errorf("mutation weight must be non-negative, got %v", weight)
	}
	return nil
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read operator source %s: %w", path, err)
	}
	return string(data), nil
}

// CheckSource compiles source and verifies it binds name to a function with
// kind's contract, without registering anything. Tooling uses this to vet
// operator files before a host loads them.
func CheckSource(kind Kind, name, source string) error {
	if name == "" {
		return errors.New("operator name is required")
	}
	v, err := loader.Compile(name, source)
	if err != nil {
		return err
	}
	switch kind {
	case KindMutation:
		_, err = asMutationFunc(name, v)
	case KindSelection:
		_, err = asSelectionFunc(name, v)
	case KindSurvival:
		_, err = asSurvivalFunc(name, v)
	default:
		err = fmt.Errorf("unsupported operator kind: %s", kind)
	}
	return err
}

func asMutationFunc(name string, v reflect.Value) (MutationFunc, error) {
	fn, ok := v.Interface().(func(*expr.Node, *model.Options, int, *rand.Rand) (*expr.Node, error))
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, want %s", ErrBadSignature, name, v.Type(), mutationSignature)
	}
	return MutationFunc(fn), nil
}

func asSelectionFunc(name string, v reflect.Value) (SelectionFunc, error) {
	fn, ok := v.Interface().(func(*model.Population, *stats.Running, *model.Options, *rand.Rand) (model.Member, error))
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, want %s", ErrBadSignature, name, v.Type(), selectionSignature)
	}
	return SelectionFunc(fn), nil
}

func asSurvivalFunc(name string, v reflect.Value) (SurvivalFunc, error) {
	fn, ok := v.Interface().(func(*model.Population, *model.Options, []int) (int, error))
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, want %s", ErrBadSignature, name, v.Type(), survivalSignature)
	}
	return SurvivalFunc(fn), nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
