package evo

import (
	"errors"
	"math/rand"

	"epigonos/internal/expr"
	"epigonos/internal/model"
)

// Names of the static mutation set seeded on every reload.
const (
	StaticPruneRandomSubtree    = "prune_random_subtree"
	StaticHoistRandomSubtree    = "hoist_random_subtree"
	StaticAppendRandomOperation = "append_random_operation"
	StaticPerturbAllConstants   = "perturb_all_constants"
	StaticNegateRandomConstant  = "negate_random_constant"
	StaticReplaceRandomLeaf     = "replace_random_leaf"
	StaticSwapRandomOperands    = "swap_random_operands"
)

// perturbationScale bounds the relative step PerturbAllConstants takes.
const perturbationScale = 0.1

func staticMutations() map[string]MutationFunc {
	return map[string]MutationFunc{
		StaticPruneRandomSubtree:    PruneRandomSubtree,
		StaticHoistRandomSubtree:    HoistRandomSubtree,
		StaticAppendRandomOperation: AppendRandomOperation,
		StaticPerturbAllConstants:   PerturbAllConstants,
		StaticNegateRandomConstant:  NegateRandomConstant,
		StaticReplaceRandomLeaf:     ReplaceRandomLeaf,
		StaticSwapRandomOperands:    SwapRandomOperands,
	}
}

// PruneRandomSubtree replaces a random interior node with one of the leaves
// beneath it, shrinking the tree. Leaf-only trees pass through unchanged.
func PruneRandomSubtree(tree *expr.Node, _ *model.Options, _ int, rng *rand.Rand) (*expr.Node, error) {
	if tree == nil {
		return nil, errors.New("tree is required")
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	mutated := tree.Copy()
	interior := interiorNodes(mutated)
	if len(interior) == 0 {
		return mutated, nil
	}
	target := interior[rng.Intn(len(interior))]
	leaves := leafNodes(target)
	overwriteNode(target, leaves[rng.Intn(len(leaves))])
	return mutated, nil
}

// HoistRandomSubtree promotes a random subtree to the root, discarding
// everything above it.
func HoistRandomSubtree(tree *expr.Node, _ *model.Options, _ int, rng *rand.Rand) (*expr.Node, error) {
	if tree == nil {
		return nil, errors.New("tree is required")
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	mutated := tree.Copy()
	return expr.Sample(rng, mutated), nil
}

// AppendRandomOperation wraps the root in a random operation drawn from the
// host's operator inventories. Binary operations receive a fresh random
// leaf as their second operand. Trees already at the size limit, and hosts
// with empty inventories, pass through unchanged.
func AppendRandomOperation(tree *expr.Node, opts *model.Options, nfeatures int, rng *rand.Rand) (*expr.Node, error) {
	if tree == nil {
		return nil, errors.New("tree is required")
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if opts == nil {
		return nil, errors.New("options are required")
	}
	mutated := tree.Copy()
	if opts.MaxSize > 0 && mutated.Count() >= opts.MaxSize {
		return mutated, nil
	}
	total := len(opts.UnaryOperators) + len(opts.BinaryOperators)
	if total == 0 {
		return mutated, nil
	}
	pick := rng.Intn(total)
	if pick < len(opts.UnaryOperators) {
		return expr.NewUnary(opts.UnaryOperators[pick], mutated), nil
	}
	op := opts.BinaryOperators[pick-len(opts.UnaryOperators)]
	return expr.NewBinary(op, mutated, randomLeaf(rng, nfeatures)), nil
}

// PerturbAllConstants scales every constant in the tree by an independent
// Gaussian factor. Trees without constants pass through unchanged.
func PerturbAllConstants(tree *expr.Node, _ *model.Options, _ int, rng *rand.Rand) (*expr.Node, error) {
	if tree == nil {
		return nil, errors.New("tree is required")
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	mutated := tree.Copy()
	for _, n := range mutated.Nodes() {
		if n.IsConst {
			n.Value *= 1 + perturbationScale*rng.NormFloat64()
		}
	}
	return mutated, nil
}

// NegateRandomConstant flips the sign of one random constant. Trees without
// constants pass through unchanged.
func NegateRandomConstant(tree *expr.Node, _ *model.Options, _ int, rng *rand.Rand) (*expr.Node, error) {
	if tree == nil {
		return nil, errors.New("tree is required")
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	mutated := tree.Copy()
	consts := constantNodes(mutated)
	if len(consts) == 0 {
		return mutated, nil
	}
	consts[rng.Intn(len(consts))].Value *= -1
	return mutated, nil
}

// ReplaceRandomLeaf overwrites one random leaf with a fresh random feature
// or constant.
func ReplaceRandomLeaf(tree *expr.Node, _ *model.Options, nfeatures int, rng *rand.Rand) (*expr.Node, error) {
	if tree == nil {
		return nil, errors.New("tree is required")
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	mutated := tree.Copy()
	leaves := leafNodes(mutated)
	overwriteNode(leaves[rng.Intn(len(leaves))], randomLeaf(rng, nfeatures))
	return mutated, nil
}

// SwapRandomOperands exchanges the operands of one random binary node.
// Trees without binary nodes pass through unchanged.
func SwapRandomOperands(tree *expr.Node, _ *model.Options, _ int, rng *rand.Rand) (*expr.Node, error) {
	if tree == nil {
		return nil, errors.New("tree is required")
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	mutated := tree.Copy()
	binaries := binaryNodes(mutated)
	if len(binaries) == 0 {
		return mutated, nil
	}
	target := binaries[rng.Intn(len(binaries))]
	target.L, target.R = target.R, target.L
	return mutated, nil
}

func interiorNodes(root *expr.Node) []*expr.Node {
	var out []*expr.Node
	for _, n := range root.Nodes() {
		if n.Degree > 0 {
			out = append(out, n)
		}
	}
	return out
}

func leafNodes(root *expr.Node) []*expr.Node {
	var out []*expr.Node
	for _, n := range root.Nodes() {
		if n.Degree == 0 {
			out = append(out, n)
		}
	}
	return out
}

func constantNodes(root *expr.Node) []*expr.Node {
	var out []*expr.Node
	for _, n := range root.Nodes() {
		if n.IsConst {
			out = append(out, n)
		}
	}
	return out
}

func binaryNodes(root *expr.Node) []*expr.Node {
	var out []*expr.Node
	for _, n := range root.Nodes() {
		if n.Degree == 2 {
			out = append(out, n)
		}
	}
	return out
}

// randomLeaf builds a fresh feature or constant leaf. Without features only
// constants are produced.
func randomLeaf(rng *rand.Rand, nfeatures int) *expr.Node {
	if nfeatures > 0 && rng.Intn(2) == 0 {
		return expr.NewFeature(rng.Intn(nfeatures) + 1)
	}
	return expr.NewConstant(rng.NormFloat64())
}

// overwriteNode copies src's content onto dst in place, so dst's parent
// keeps pointing at the right child.
func overwriteNode(dst, src *expr.Node) {
	dst.Degree = src.Degree
	dst.IsConst = src.IsConst
	dst.Value = src.Value
	dst.Feature = src.Feature
	dst.Op = src.Op
	dst.L = src.L
	dst.R = src.R
}
