package entities

import (
	"treeservice/domain/core/valueobjects"
	pkgerrors "treeservice/pkg/errors"
)

// Node is a unit of a decision graph. Nodes live in a store shared by every
// tree; a tree only names a root and reaches the rest through children.
type Node struct {
	id                 valueobjects.NodeID
	title              string
	description        string
	modelAttributes    valueobjects.Attributes
	conditionAttribute string
	children           []valueobjects.NodeID
}

// NewNode creates a node after validating its ids.
// Children may reference nodes that do not exist yet.
func NewNode(id, title, description string, attrs valueobjects.Attributes, condition string, children []string) (*Node, error) {
	nodeID, err := valueobjects.NewNodeIDFromString(id)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	childIDs := make([]valueobjects.NodeID, 0, len(children))
	for _, c := range children {
		childID, err := valueobjects.NewNodeIDFromString(c)
		if err != nil {
			return nil, pkgerrors.NewValidationError("node " + id + ": child ID cannot be empty")
		}
		childIDs = append(childIDs, childID)
	}

	if attrs == nil {
		attrs = valueobjects.Attributes{}
	}
	for key, v := range attrs {
		if !v.IsValid() {
			return nil, pkgerrors.NewValidationError("node " + id + ": attribute " + key + " has no value")
		}
	}

	return &Node{
		id:                 nodeID,
		title:              title,
		description:        description,
		modelAttributes:    attrs.Clone(),
		conditionAttribute: condition,
		children:           childIDs,
	}, nil
}

// ReconstructNode rebuilds a node from storage without validation
func ReconstructNode(id, title, description string, attrs valueobjects.Attributes, condition string, children []string) *Node {
	childIDs := make([]valueobjects.NodeID, 0, len(children))
	for _, c := range children {
		childID, err := valueobjects.NewNodeIDFromString(c)
		if err != nil {
			continue
		}
		childIDs = append(childIDs, childID)
	}
	if attrs == nil {
		attrs = valueobjects.Attributes{}
	}
	nodeID, _ := valueobjects.NewNodeIDFromString(id)
	return &Node{
		id:                 nodeID,
		title:              title,
		description:        description,
		modelAttributes:    attrs,
		conditionAttribute: condition,
		children:           childIDs,
	}
}

func (n *Node) ID() valueobjects.NodeID { return n.id }

func (n *Node) Title() string { return n.title }

func (n *Node) Description() string { return n.description }

// ModelAttributes returns a copy of the node's attributes
func (n *Node) ModelAttributes() valueobjects.Attributes { return n.modelAttributes.Clone() }

// ConditionAttribute returns the condition text; empty means unconditional
func (n *Node) ConditionAttribute() string { return n.conditionAttribute }

// HasCondition reports whether the node carries a condition
func (n *Node) HasCondition() bool { return n.conditionAttribute != "" }

// Children returns the ordered child ids
func (n *Node) Children() []valueobjects.NodeID {
	out := make([]valueobjects.NodeID, len(n.children))
	copy(out, n.children)
	return out
}

// ChildIDs returns the child ids as strings
func (n *Node) ChildIDs() []string {
	out := make([]string, len(n.children))
	for i, c := range n.children {
		out[i] = c.String()
	}
	return out
}

// Equal reports whether two nodes hold identical definitions
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if !n.id.Equals(other.id) || n.title != other.title || n.description != other.description ||
		n.conditionAttribute != other.conditionAttribute || len(n.children) != len(other.children) {
		return false
	}
	for i := range n.children {
		if !n.children[i].Equals(other.children[i]) {
			return false
		}
	}
	return n.modelAttributes.Equal(other.modelAttributes)
}
