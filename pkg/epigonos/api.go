// Package epigonos is the embedding surface for the operator plugin
// system: construct a Client, load or clear dynamic operators, inspect the
// registries, and hand the underlying system to a search loop for
// dispatch.
package epigonos

import (
	"context"
	"errors"
	"math/rand"

	"epigonos/internal/evo"
	"epigonos/internal/expr"
	"epigonos/internal/model"
	"epigonos/internal/platform"
	"epigonos/internal/stats"
	"epigonos/internal/storage"
)

const defaultDBPath = "epigonos.db"

// Options configures a Client. Zero values select the default store kind
// for the build, the default database path, and no operator config file.
type Options struct {
	StoreKind  string
	DBPath     string
	ConfigPath string
}

// Client owns a hub and its store.
type Client struct {
	store      storage.Store
	hub        *platform.Hub
	configPath string
}

// OperatorsSummary is a point-in-time view of all three registries.
type OperatorsSummary struct {
	AvailableMutations  []string
	EnabledMutations    []string
	MutationWeights     map[string]float64
	BuiltinOverrides    map[string]float64
	AvailableSelections []string
	ActiveSelection     string
	AvailableSurvivals  []string
	ActiveSurvival      string
}

// SlotAssignment reports one filled host slot.
type SlotAssignment struct {
	Slot   int
	Name   string
	Weight float64
}

// SlotsSummary reports a slot-map projection: the filled slots, every
// enabled name, and whether any enabled mutations did not fit.
type SlotsSummary struct {
	Assignments []SlotAssignment
	Enabled     []string
	Truncated   bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		configPath: opts.ConfigPath,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init brings the hub up eagerly. Operations initialize lazily, so calling
// Init first is optional but surfaces storage and restore faults early.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureHub(ctx)
	return err
}

// Stop releases the hub; the client can be re-initialized afterwards.
func (c *Client) Stop() {
	if c.hub != nil {
		c.hub.Stop()
		c.hub = nil
	}
}

// System exposes the operator system for direct dispatch from a search
// loop.
func (c *Client) System(ctx context.Context) (*evo.System, error) {
	h, err := c.ensureHub(ctx)
	if err != nil {
		return nil, err
	}
	return h.System()
}

// DispatchMutation runs the named mutation on tree. Unknown names warn and
// return the input unchanged.
func (c *Client) DispatchMutation(ctx context.Context, name string, tree *expr.Node, opts *model.Options, nfeatures int, rng *rand.Rand) (*expr.Node, error) {
	system, err := c.System(ctx)
	if err != nil {
		return nil, err
	}
	return system.DispatchMutation(name, tree, opts, nfeatures, rng)
}

// DispatchMutationExpression runs the named mutation on the wrapped tree and
// rewraps the result under the same metadata.
func (c *Client) DispatchMutationExpression(ctx context.Context, name string, ex *expr.Expression, opts *model.Options, nfeatures int, rng *rand.Rand) (*expr.Expression, error) {
	system, err := c.System(ctx)
	if err != nil {
		return nil, err
	}
	return system.DispatchMutationExpression(name, ex, opts, nfeatures, rng)
}

// PickMutation draws an enabled mutation name with probability proportional
// to its weight.
func (c *Client) PickMutation(ctx context.Context, rng *rand.Rand) (string, error) {
	system, err := c.System(ctx)
	if err != nil {
		return "", err
	}
	return system.PickMutation(rng)
}

// DispatchSelection picks a parent with the active selection algorithm.
func (c *Client) DispatchSelection(ctx context.Context, pop *model.Population, rs *stats.Running, opts *model.Options, rng *rand.Rand) (model.Member, error) {
	system, err := c.System(ctx)
	if err != nil {
		return model.Member{}, err
	}
	return system.DispatchSelection(pop, rs, opts, rng)
}

// DispatchSurvival picks the 1-based population position to replace with
// the active survival algorithm.
func (c *Client) DispatchSurvival(ctx context.Context, pop *model.Population, opts *model.Options, exclude []int) (int, error) {
	system, err := c.System(ctx)
	if err != nil {
		return 0, err
	}
	return system.DispatchSurvival(pop, opts, exclude)
}

// LoadMutation registers and persists a dynamic mutation from source text.
func (c *Client) LoadMutation(ctx context.Context, name, source string, weight float64) error {
	h, err := c.ensureHub(ctx)
	if err != nil {
		return err
	}
	return h.LoadMutation(ctx, name, source, weight)
}

// LoadMutationFile registers and persists a dynamic mutation from a source
// file.
func (c *Client) LoadMutationFile(ctx context.Context, name, path string, weight float64) error {
	h, err := c.ensureHub(ctx)
	if err != nil {
		return err
	}
	return h.LoadMutationFile(ctx, name, path, weight)
}

// LoadSelection registers and persists a selection override from source
// text.
func (c *Client) LoadSelection(ctx context.Context, name, source string) error {
	h, err := c.ensureHub(ctx)
	if err != nil {
		return err
	}
	return h.LoadSelection(ctx, name, source)
}

// LoadSelectionFile registers and persists a selection override from a
// source file.
func (c *Client) LoadSelectionFile(ctx context.Context, name, path string) error {
	h, err := c.ensureHub(ctx)
	if err != nil {
		return err
	}
	return h.LoadSelectionFile(ctx, name, path)
}

// LoadSurvival registers and persists a survival override from source text.
func (c *Client) LoadSurvival(ctx context.Context, name, source string) error {
	h, err := c.ensureHub(ctx)
	if err != nil {
		return err
	}
	return h.LoadSurvival(ctx, name, source)
}

// LoadSurvivalFile registers and persists a survival override from a source
// file.
func (c *Client) LoadSurvivalFile(ctx context.Context, name, path string) error {
	h, err := c.ensureHub(ctx)
	if err != nil {
		return err
	}
	return h.LoadSurvivalFile(ctx, name, path)
}

// ClearMutations drops all dynamic mutations, live and persisted.
func (c *Client) ClearMutations(ctx context.Context) error {
	h, err := c.ensureHub(ctx)
	if err != nil {
		return err
	}
	return h.ClearMutations(ctx)
}

// ClearSelections drops all selection overrides, live and persisted.
func (c *Client) ClearSelections(ctx context.Context) error {
	h, err := c.ensureHub(ctx)
	if err != nil {
		return err
	}
	return h.ClearSelections(ctx)
}

// ClearSurvivals drops all survival overrides, live and persisted.
func (c *Client) ClearSurvivals(ctx context.Context) error {
	h, err := c.ensureHub(ctx)
	if err != nil {
		return err
	}
	return h.ClearSurvivals(ctx)
}

// Reload re-reads the operator config and rebuilds the registries.
func (c *Client) Reload(ctx context.Context) error {
	h, err := c.ensureHub(ctx)
	if err != nil {
		return err
	}
	return h.Reload()
}

// Operators reports the current registry contents.
func (c *Client) Operators(ctx context.Context) (OperatorsSummary, error) {
	system, err := c.System(ctx)
	if err != nil {
		return OperatorsSummary{}, err
	}

	available, err := system.ListAvailableMutations()
	if err != nil {
		return OperatorsSummary{}, err
	}
	enabled, err := system.ListEnabledMutations()
	if err != nil {
		return OperatorsSummary{}, err
	}
	selections, err := system.ListAvailableSelections()
	if err != nil {
		return OperatorsSummary{}, err
	}
	survivals, err := system.ListAvailableSurvivals()
	if err != nil {
		return OperatorsSummary{}, err
	}

	return OperatorsSummary{
		AvailableMutations:  available,
		EnabledMutations:    enabled,
		MutationWeights:     system.WeightTable(),
		BuiltinOverrides:    system.BuiltinOverrides(),
		AvailableSelections: selections,
		ActiveSelection:     system.ActiveSelectionName(),
		AvailableSurvivals:  survivals,
		ActiveSurvival:      system.ActiveSurvivalName(),
	}, nil
}

// AssignSlots projects the enabled mutations onto the caller's slot map and
// weight record, returning the full enabled list.
func (c *Client) AssignSlots(ctx context.Context, slots *model.MutationSlots, weights *model.MutationWeights) ([]string, error) {
	system, err := c.System(ctx)
	if err != nil {
		return nil, err
	}
	return system.AssignSlots(slots, weights)
}

// Slots projects the enabled mutations onto a fresh slot map and reports
// the assignment.
func (c *Client) Slots(ctx context.Context) (SlotsSummary, error) {
	system, err := c.System(ctx)
	if err != nil {
		return SlotsSummary{}, err
	}

	slots := &model.MutationSlots{}
	weights := &model.MutationWeights{}
	enabled, err := system.AssignSlots(slots, weights)
	if err != nil {
		return SlotsSummary{}, err
	}

	summary := SlotsSummary{
		Enabled:   enabled,
		Truncated: len(enabled) > model.SlotCapacity,
	}
	for i, name := range slots.Names {
		if name == "" {
			continue
		}
		summary.Assignments = append(summary.Assignments, SlotAssignment{
			Slot:   i + 1,
			Name:   name,
			Weight: weights.Custom[i],
		})
	}
	return summary, nil
}

// CheckSource verifies that source compiles and binds name to a function
// with the contract for kind ("mutation", "selection" or "survival"),
// without touching any registry.
func CheckSource(kind, name, source string) error {
	k, err := evo.ParseKind(kind)
	if err != nil {
		return err
	}
	return evo.CheckSource(k, name, source)
}

func (c *Client) ensureHub(ctx context.Context) (*platform.Hub, error) {
	if c.hub != nil {
		return c.hub, nil
	}
	if c.store == nil {
		return nil, errors.New("client store is not configured")
	}
	h := platform.NewHub(platform.Config{Store: c.store, ConfigPath: c.configPath})
	if err := h.Init(ctx); err != nil {
		return nil, err
	}
	c.hub = h
	return c.hub, nil
}
