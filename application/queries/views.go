package queries

import (
	"treeservice/domain/core/entities"
	"treeservice/domain/core/valueobjects"
	"treeservice/domain/resolution"
)

// NodeView is a node as returned to clients. ConditionResolved is absent on
// plain node lookups, which do not run resolution.
type NodeView struct {
	ID                 string                  `json:"id"`
	Title              string                  `json:"title"`
	Description        string                  `json:"description"`
	ModelAttributes    valueobjects.Attributes `json:"modelAttributes"`
	ConditionAttribute string                  `json:"conditionAttribute"`
	Children           []string                `json:"children"`
	ConditionResolved  *bool                   `json:"conditionResolved,omitempty"`
}

// NewNodeView maps a node without resolution state
func NewNodeView(n *entities.Node) NodeView {
	return NodeView{
		ID:                 n.ID().String(),
		Title:              n.Title(),
		Description:        n.Description(),
		ModelAttributes:    n.ModelAttributes(),
		ConditionAttribute: n.ConditionAttribute(),
		Children:           n.ChildIDs(),
	}
}

// NewResolvedNodeView maps a node with its resolved flag
func NewResolvedNodeView(n *entities.Node, resolved bool) NodeView {
	v := NewNodeView(n)
	v.ConditionResolved = &resolved
	return v
}

// ResolvedNodeViews maps every reachable node in discovery order
func ResolvedNodeViews(res *resolution.Result) []NodeView {
	out := make([]NodeView, 0, res.Len())
	for _, n := range res.Nodes() {
		out = append(out, NewResolvedNodeView(n, res.Resolved(n.ID())))
	}
	return out
}

// TreeView is a tree with resolved nodes
type TreeView struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"projectId"`
	Title      string     `json:"title"`
	RootNodeID string     `json:"rootNodeId"`
	Nodes      []NodeView `json:"nodes"`
}

// NewTreeView maps a tree; nodes may be nil for a tree without a pass
func NewTreeView(t *entities.Tree, nodes []NodeView) TreeView {
	if nodes == nil {
		nodes = []NodeView{}
	}
	return TreeView{
		ID:         t.ID(),
		ProjectID:  t.ProjectID(),
		Title:      t.Title(),
		RootNodeID: t.RootNodeID(),
		Nodes:      nodes,
	}
}

// TreeSummary is a tree in a listing
type TreeSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// TreeList wraps tree summaries
type TreeList struct {
	Trees []TreeSummary `json:"trees"`
}

// DagRoot identifies the tree a DAG was read from
type DagRoot struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	RootNodeID string `json:"rootNodeId"`
}

// DagView is the flattened reachable subgraph of a tree
type DagView struct {
	Root      DagRoot    `json:"root"`
	Direction string     `json:"direction"`
	Nodes     []NodeView `json:"nodes"`
}

// ProjectView is a project as returned to clients
type ProjectView struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	SelectedConfigID string `json:"selectedConfig,omitempty"`
	SelectedModelID  string `json:"selectedModel,omitempty"`
}

// NewProjectView maps a project
func NewProjectView(p *entities.Project) ProjectView {
	return ProjectView{
		ID:               p.ID(),
		Title:            p.Title(),
		SelectedConfigID: p.SelectedConfigID(),
		SelectedModelID:  p.SelectedModelID(),
	}
}

// ProjectList wraps project views
type ProjectList struct {
	Projects []ProjectView `json:"projects"`
}

// ModelSelection is a project's selected model
type ModelSelection struct {
	ModelID string `json:"modelId"`
}

// ModelList wraps the model catalog
type ModelList struct {
	Models []entities.Model `json:"models"`
}

// ConfigView is a configuration as returned to clients
type ConfigView struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name,omitempty"`
	Attributes valueobjects.Attributes `json:"attributes"`
}

// NewConfigView maps a configuration
func NewConfigView(c *entities.Configuration) ConfigView {
	return ConfigView{
		ID:         c.ID(),
		Name:       c.Name(),
		Attributes: c.Attributes(),
	}
}

// ConfigIDList lists configuration ids of a project
type ConfigIDList struct {
	IDs []string `json:"ids"`
}
