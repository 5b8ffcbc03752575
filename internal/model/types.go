package model

import (
	"time"

	"github.com/google/uuid"

	"epigonos/internal/expr"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Member is one entry of the host's population. Birth is the host's
// monotonic generation counter; Ref identifies the member and Parent names
// the ref of its progenitor.
type Member struct {
	Tree   *expr.Expression `json:"tree"`
	Cost   float64          `json:"cost"`
	Loss   float64          `json:"loss"`
	Birth  int64            `json:"birth"`
	Ref    string           `json:"ref"`
	Parent string           `json:"parent,omitempty"`
}

// NewMember builds a member around tree with a freshly assigned ref.
func NewMember(tree *expr.Expression, cost, loss float64, birth int64, parent string) Member {
	return Member{
		Tree:   tree,
		Cost:   cost,
		Loss:   loss,
		Birth:  birth,
		Ref:    uuid.NewString(),
		Parent: parent,
	}
}

// Copy returns a member whose tree is deep-copied. Scalar fields, the ref
// included, carry over unchanged; callers that need a distinct identity
// assign a new ref themselves.
func (m Member) Copy() Member {
	out := m
	out.Tree = m.Tree.Copy()
	return out
}

// Population is the host's ordered collection of members.
type Population struct {
	Members []Member `json:"members"`
}

// N returns the population size.
func (p *Population) N() int {
	if p == nil {
		return 0
	}
	return len(p.Members)
}

// Options carries the host search settings this subsystem reads. The
// operator inventories feed the stock mutations; the tournament fields feed
// the default selection algorithm.
type Options struct {
	MaxSize                  int      `json:"maxsize"`
	PopulationSize           int      `json:"population_size"`
	TournamentSelectionN     int      `json:"tournament_selection_n"`
	TournamentSelectionP     float64  `json:"tournament_selection_p"`
	AdaptiveParsimonyScaling float64  `json:"adaptive_parsimony_scaling"`
	UseFrequencyInTournament bool     `json:"use_frequency_in_tournament"`
	UnaryOperators           []string `json:"unary_operators,omitempty"`
	BinaryOperators          []string `json:"binary_operators,omitempty"`
}

// Complexity measures a member's expression size under the given options.
// The measure is the plain node count; options are accepted so hosts with
// weighted complexity schemes keep a stable call shape.
func Complexity(m Member, _ *Options) int {
	if m.Tree == nil {
		return 0
	}
	return m.Tree.Tree.Count()
}

// SlotCapacity is the number of custom mutation slots the host weight
// record exposes.
const SlotCapacity = 5

// MutationSlots maps slot positions onto assigned operator names. An empty
// string marks an unassigned slot.
type MutationSlots struct {
	Names [SlotCapacity]string `json:"names"`
}

// MutationWeights is the host's operator weight record: one field per
// built-in mutation plus the weights of the assigned custom slots.
type MutationWeights struct {
	MutateConstant float64               `json:"mutate_constant"`
	MutateOperator float64               `json:"mutate_operator"`
	SwapOperands   float64               `json:"swap_operands"`
	RotateTree     float64               `json:"rotate_tree"`
	AddNode        float64               `json:"add_node"`
	InsertNode     float64               `json:"insert_node"`
	DeleteNode     float64               `json:"delete_node"`
	Simplify       float64               `json:"simplify"`
	Randomize      float64               `json:"randomize"`
	DoNothing      float64               `json:"do_nothing"`
	Optimize       float64               `json:"optimize"`
	Custom         [SlotCapacity]float64 `json:"custom"`
}

// DynamicOperatorRecord is the persisted form of a dynamically loaded
// operator: enough to re-register it after a process restart.
type DynamicOperatorRecord struct {
	VersionedRecord
	Kind         string  `json:"kind"`
	Name         string  `json:"name"`
	Source       string  `json:"source"`
	Weight       float64 `json:"weight"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// NewDynamicOperatorRecord stamps a record with the current UTC time.
func NewDynamicOperatorRecord(kind, name, source string, weight float64) DynamicOperatorRecord {
	return DynamicOperatorRecord{
		Kind:         kind,
		Name:         name,
		Source:       source,
		Weight:       weight,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339),
	}
}
