// Package expr holds the expression-tree representation the evolutionary
// operators rewrite, together with the node primitives exposed to
// dynamically loaded operator code: construction, sampling, child access,
// copying, and size accounting.
package expr

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Node is one node of an expression tree. Degree 0 is a leaf holding either
// a constant value or a 1-based feature reference; degree 1 and 2 are
// operator applications named by Op with children L and, for degree 2, R.
type Node struct {
	Degree  int     `json:"degree"`
	IsConst bool    `json:"is_const,omitempty"`
	Value   float64 `json:"value,omitempty"`
	Feature int     `json:"feature,omitempty"`
	Op      string  `json:"op,omitempty"`
	L       *Node   `json:"l,omitempty"`
	R       *Node   `json:"r,omitempty"`
}

// NewConstant returns a leaf holding a constant value.
func NewConstant(value float64) *Node {
	return &Node{Degree: 0, IsConst: true, Value: value}
}

// NewFeature returns a leaf referencing a feature column. Features are
// 1-based to match the host's data layout.
func NewFeature(feature int) *Node {
	return &Node{Degree: 0, Feature: feature}
}

// NewUnary returns a degree-1 node applying op to child.
func NewUnary(op string, child *Node) *Node {
	return &Node{Degree: 1, Op: op, L: child}
}

// NewBinary returns a degree-2 node applying op to left and right.
func NewBinary(op string, left, right *Node) *Node {
	return &Node{Degree: 2, Op: op, L: left, R: right}
}

// Copy returns a deep copy of the tree rooted at n.
func (n *Node) Copy() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Degree:  n.Degree,
		IsConst: n.IsConst,
		Value:   n.Value,
		Feature: n.Feature,
		Op:      n.Op,
	}
	out.L = n.L.Copy()
	out.R = n.R.Copy()
	return out
}

// Count returns the number of nodes in the tree rooted at n.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	return 1 + n.L.Count() + n.R.Count()
}

// Depth returns the height of the tree rooted at n; a lone leaf has depth 1.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	left := n.L.Depth()
	right := n.R.Depth()
	if right > left {
		left = right
	}
	return 1 + left
}

// Nodes collects every node of the tree in pre-order.
func (n *Node) Nodes() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, n.Count())
	var walk func(*Node)
	walk = func(cur *Node) {
		if cur == nil {
			return
		}
		out = append(out, cur)
		walk(cur.L)
		walk(cur.R)
	}
	walk(n)
	return out
}

// Sample returns a uniformly random node of the tree rooted at root.
func Sample(rng *rand.Rand, root *Node) *Node {
	nodes := root.Nodes()
	if len(nodes) == 0 {
		return nil
	}
	return nodes[rng.Intn(len(nodes))]
}

// Child returns the i-th child of n, 1-based; nil when i is outside
// 1..Degree.
func (n *Node) Child(i int) *Node {
	if n == nil {
		return nil
	}
	switch {
	case i == 1 && n.Degree >= 1:
		return n.L
	case i == 2 && n.Degree == 2:
		return n.R
	default:
		return nil
	}
}

// SetChild replaces the i-th child of n, 1-based, reporting whether the
// position exists.
func (n *Node) SetChild(i int, child *Node) bool {
	if n == nil {
		return false
	}
	switch {
	case i == 1 && n.Degree >= 1:
		n.L = child
		return true
	case i == 2 && n.Degree == 2:
		n.R = child
		return true
	default:
		return false
	}
}

// Equal reports whether the trees rooted at n and m are structurally
// identical.
func (n *Node) Equal(m *Node) bool {
	if n == nil || m == nil {
		return n == m
	}
	if n.Degree != m.Degree || n.IsConst != m.IsConst || n.Op != m.Op {
		return false
	}
	if n.IsConst && n.Value != m.Value {
		return false
	}
	if !n.IsConst && n.Degree == 0 && n.Feature != m.Feature {
		return false
	}
	return n.L.Equal(m.L) && n.R.Equal(m.R)
}

// String renders the tree as an infix formula, features as x1, x2, ...
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	switch n.Degree {
	case 0:
		if n.IsConst {
			b.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
		} else {
			fmt.Fprintf(b, "x%d", n.Feature)
		}
	case 1:
		b.WriteString(n.Op)
		b.WriteByte('(')
		n.L.render(b)
		b.WriteByte(')')
	default:
		b.WriteByte('(')
		n.L.render(b)
		b.WriteByte(' ')
		b.WriteString(n.Op)
		b.WriteByte(' ')
		n.R.render(b)
		b.WriteByte(')')
	}
}
