// Package platform wires an operator system to durable storage and a
// process lifecycle. A Hub owns one registry system, restores persisted
// dynamic operators on startup, and persists every runtime registration so
// a restarted host comes back with the same operator set.
package platform

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"epigonos/internal/evo"
	"epigonos/internal/log"
	"epigonos/internal/model"
	"epigonos/internal/storage"
)

// Config assembles a hub: the store dynamic operators persist in, the
// operator config path handed to the registry system, and any support
// modules tied to the hub lifecycle.
type Config struct {
	Store          storage.Store
	ConfigPath     string
	SupportModules []SupportModule
}

// SupportModule is host machinery started with the hub and stopped with it.
type SupportModule interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type StopReason string

const (
	StopReasonNormal   StopReason = "normal"
	StopReasonShutdown StopReason = "shutdown"
)

// Hub owns the operator system between Init and Stop.
type Hub struct {
	store storage.Store

	mu             sync.RWMutex
	system         *evo.System
	configPath     string
	supportModules map[string]SupportModule
	started        bool
	lastStopReason StopReason

	config Config
}

var (
	defaultHubMu sync.Mutex
	defaultHub   *Hub
)

func NewHub(cfg Config) *Hub {
	return &Hub{
		store:          cfg.Store,
		configPath:     cfg.ConfigPath,
		supportModules: make(map[string]SupportModule),
		config:         cfg,
		lastStopReason: StopReasonNormal,
	}
}

// StartDefault initializes the process-wide hub, reusing a live one. Hosts
// that want several independent operator systems construct hubs directly.
func StartDefault(ctx context.Context, cfg Config) (*Hub, error) {
	defaultHubMu.Lock()
	defer defaultHubMu.Unlock()

	if defaultHub != nil && defaultHub.Started() {
		return defaultHub, nil
	}

	h := NewHub(cfg)
	if err := h.Init(ctx); err != nil {
		return nil, err
	}
	defaultHub = h
	return defaultHub, nil
}

// Default returns the process-wide hub if one is live.
func Default() (*Hub, bool) {
	defaultHubMu.Lock()
	h := defaultHub
	defaultHubMu.Unlock()

	if h == nil || !h.Started() {
		return nil, false
	}
	return h, true
}

// StopDefault stops and forgets the process-wide hub.
func StopDefault(reason StopReason) error {
	defaultHubMu.Lock()
	h := defaultHub
	defaultHubMu.Unlock()
	if h == nil {
		return nil
	}
	if err := h.StopWithReason(reason); err != nil {
		return err
	}
	defaultHubMu.Lock()
	if defaultHub == h {
		defaultHub = nil
	}
	defaultHubMu.Unlock()
	return nil
}

// Init brings the hub up: storage, support modules, then the operator
// system with every persisted dynamic operator restored. A record that no
// longer compiles aborts startup rather than silently dropping operators.
// Partially started support modules are rolled back on failure.
func (h *Hub) Init(ctx context.Context) error {
	if h.store == nil {
		return fmt.Errorf("store is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	if err := h.store.Init(ctx); err != nil {
		return err
	}

	startedModules := make([]SupportModule, 0, len(h.config.SupportModules))
	rollback := func() {
		stopSupportModules(ctx, startedModules)
		h.supportModules = make(map[string]SupportModule)
	}
	for i, module := range h.config.SupportModules {
		if module == nil {
			rollback()
			return fmt.Errorf("support module is nil at index %d", i)
		}
		name := module.Name()
		if name == "" {
			rollback()
			return fmt.Errorf("support module name is required at index %d", i)
		}
		if _, exists := h.supportModules[name]; exists {
			rollback()
			return fmt.Errorf("duplicate support module: %s", name)
		}
		if err := module.Start(ctx); err != nil {
			rollback()
			return fmt.Errorf("start support module %s: %w", name, err)
		}
		h.supportModules[name] = module
		startedModules = append(startedModules, module)
	}

	system := evo.New(h.configPath)
	if err := h.restoreOperators(ctx, system); err != nil {
		rollback()
		return err
	}
	if err := system.Reload(); err != nil {
		rollback()
		return err
	}

	h.system = system
	h.started = true
	return nil
}

func (h *Hub) restoreOperators(ctx context.Context, system *evo.System) error {
	for _, kind := range []evo.Kind{evo.KindMutation, evo.KindSelection, evo.KindSurvival} {
		records, err := h.store.ListDynamicOperators(ctx, kind.String())
		if err != nil {
			return fmt.Errorf("list %s operators: %w", kind, err)
		}
		for _, rec := range records {
			if err := loadRecord(system, kind, rec); err != nil {
				return fmt.Errorf("restore %s operator %s: %w", kind, rec.Name, err)
			}
		}
		if len(records) > 0 {
			log.Info("restored dynamic operators", "kind", kind.String(), "count", len(records))
		}
	}
	return nil
}

func loadRecord(system *evo.System, kind evo.Kind, rec model.DynamicOperatorRecord) error {
	switch kind {
	case evo.KindMutation:
		return system.LoadMutationFromString(rec.Name, rec.Source, rec.Weight)
	case evo.KindSelection:
		return system.LoadSelectionFromString(rec.Name, rec.Source)
	case evo.KindSurvival:
		return system.LoadSurvivalFromString(rec.Name, rec.Source)
	default:
		return fmt.Errorf("unsupported operator kind: %s", kind)
	}
}

// System returns the operator system, live between Init and Stop.
func (h *Hub) System() (*evo.System, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.started || h.system == nil {
		return nil, fmt.Errorf("hub is not initialized")
	}
	return h.system, nil
}

// Reload rebuilds the operator system from the static set, the retained
// dynamic registrations, and the config file.
func (h *Hub) Reload() error {
	system, err := h.System()
	if err != nil {
		return err
	}
	return system.Reload()
}

// LoadMutation registers a dynamic mutation and persists its source, so it
// survives a host restart.
func (h *Hub) LoadMutation(ctx context.Context, name, source string, weight float64) error {
	system, err := h.System()
	if err != nil {
		return err
	}
	if err := system.LoadMutationFromString(name, source, weight); err != nil {
		return err
	}
	return h.persist(ctx, evo.KindMutation, name, source, weight)
}

// LoadMutationFile reads operator source from path, registers it, and
// persists the source text.
func (h *Hub) LoadMutationFile(ctx context.Context, name, path string, weight float64) error {
	source, err := readOperatorSource(path)
	if err != nil {
		return err
	}
	return h.LoadMutation(ctx, name, source, weight)
}

// LoadSelection registers and persists a dynamic selection override.
func (h *Hub) LoadSelection(ctx context.Context, name, source string) error {
	system, err := h.System()
	if err != nil {
		return err
	}
	if err := system.LoadSelectionFromString(name, source); err != nil {
		return err
	}
	return h.persist(ctx, evo.KindSelection, name, source, 0)
}

// LoadSelectionFile reads operator source from path, registers it, and
// persists the source text.
func (h *Hub) LoadSelectionFile(ctx context.Context, name, path string) error {
	source, err := readOperatorSource(path)
	if err != nil {
		return err
	}
	return h.LoadSelection(ctx, name, source)
}

// LoadSurvival registers and persists a dynamic survival override.
func (h *Hub) LoadSurvival(ctx context.Context, name, source string) error {
	system, err := h.System()
	if err != nil {
		return err
	}
	if err := system.LoadSurvivalFromString(name, source); err != nil {
		return err
	}
	return h.persist(ctx, evo.KindSurvival, name, source, 0)
}

// LoadSurvivalFile reads operator source from path, registers it, and
// persists the source text.
func (h *Hub) LoadSurvivalFile(ctx context.Context, name, path string) error {
	source, err := readOperatorSource(path)
	if err != nil {
		return err
	}
	return h.LoadSurvival(ctx, name, source)
}

func (h *Hub) persist(ctx context.Context, kind evo.Kind, name, source string, weight float64) error {
	rec := model.NewDynamicOperatorRecord(kind.String(), name, source, weight)
	rec.SchemaVersion = storage.CurrentSchemaVersion
	rec.CodecVersion = storage.CurrentCodecVersion
	return h.store.SaveDynamicOperator(ctx, rec)
}

// ClearMutations drops every dynamic mutation from the live system and the
// store.
func (h *Hub) ClearMutations(ctx context.Context) error {
	system, err := h.System()
	if err != nil {
		return err
	}
	system.ClearDynamicMutations()
	return h.store.DeleteDynamicOperators(ctx, evo.KindMutation.String())
}

// ClearSelections drops every dynamic selection override from the live
// system and the store.
func (h *Hub) ClearSelections(ctx context.Context) error {
	system, err := h.System()
	if err != nil {
		return err
	}
	system.ClearDynamicSelections()
	return h.store.DeleteDynamicOperators(ctx, evo.KindSelection.String())
}

// ClearSurvivals drops every dynamic survival override from the live system
// and the store.
func (h *Hub) ClearSurvivals(ctx context.Context) error {
	system, err := h.System()
	if err != nil {
		return err
	}
	system.ClearDynamicSurvivals()
	return h.store.DeleteDynamicOperators(ctx, evo.KindSurvival.String())
}

func (h *Hub) Stop() {
	_ = h.StopWithReason(StopReasonNormal)
}

func (h *Hub) Shutdown() {
	_ = h.StopWithReason(StopReasonShutdown)
}

// StopWithReason stops support modules and releases the operator system.
// The store stays open; the owner that built it closes it.
func (h *Hub) StopWithReason(reason StopReason) error {
	if reason == "" {
		reason = StopReasonNormal
	}
	if !isValidStopReason(reason) {
		return fmt.Errorf("unsupported stop reason: %s", reason)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, module := range h.supportModules {
		if withReason, ok := module.(reasonAwareSupportModule); ok {
			_ = withReason.StopWithReason(context.Background(), reason)
		} else {
			_ = module.Stop(context.Background())
		}
	}

	h.started = false
	h.lastStopReason = reason
	h.system = nil
	h.supportModules = make(map[string]SupportModule)
	return nil
}

// ActiveSupportModules reports the started module names in lexical order.
func (h *Hub) ActiveSupportModules() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.supportModules))
	for name := range h.supportModules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *Hub) Started() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started
}

func (h *Hub) LastStopReason() StopReason {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastStopReason
}

type reasonAwareSupportModule interface {
	SupportModule
	StopWithReason(ctx context.Context, reason StopReason) error
}

func isValidStopReason(reason StopReason) bool {
	switch reason {
	case StopReasonNormal, StopReasonShutdown:
		return true
	default:
		return false
	}
}

func stopSupportModules(ctx context.Context, modules []SupportModule) {
	for i := len(modules) - 1; i >= 0; i-- {
		_ = modules[i].Stop(ctx)
	}
}

func readOperatorSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read operator source %s: %w", path, err)
	}
	return string(data), nil
}
