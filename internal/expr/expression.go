package expr

// Meta carries the host-side context a tree is interpreted under: the
// feature names and the operator inventories mutations may draw from.
type Meta struct {
	FeatureNames []string `json:"feature_names,omitempty"`
	Unary        []string `json:"unary,omitempty"`
	Binary       []string `json:"binary,omitempty"`
}

// Expression wraps a tree together with its metadata. Dispatch entry points
// that accept an Expression unwrap the tree, mutate it, and rewrap the
// result under the same metadata.
type Expression struct {
	Tree *Node `json:"tree"`
	Meta Meta  `json:"meta"`
}

// NewExpression wraps tree under meta.
func NewExpression(tree *Node, meta Meta) *Expression {
	return &Expression{Tree: tree, Meta: meta}
}

// WithTree returns a new Expression holding tree under the receiver's
// metadata. The receiver is not modified.
func (e *Expression) WithTree(tree *Node) *Expression {
	return &Expression{Tree: tree, Meta: e.Meta}
}

// Copy returns a deep copy of the expression. Metadata slices are shared;
// they are read-only by convention.
func (e *Expression) Copy() *Expression {
	if e == nil {
		return nil
	}
	return &Expression{Tree: e.Tree.Copy(), Meta: e.Meta}
}
