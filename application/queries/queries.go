package queries

import (
	pkgerrors "treeservice/pkg/errors"
)

// DirectionDown follows children edges; it is the only supported direction
const DirectionDown = "down"

func required(value, name string) error {
	if value == "" {
		return pkgerrors.NewValidationError(name + " is required")
	}
	return nil
}

// GetTreeQuery reads a tree with every reachable node resolved
type GetTreeQuery struct {
	UserID    string
	ProjectID string
	TreeID    string
}

// Validate validates the GetTreeQuery
func (q GetTreeQuery) Validate() error {
	if err := required(q.ProjectID, "project ID"); err != nil {
		return err
	}
	return required(q.TreeID, "tree ID")
}

// ListTreesQuery lists the trees of a project
type ListTreesQuery struct {
	UserID    string
	ProjectID string
}

// Validate validates the ListTreesQuery
func (q ListTreesQuery) Validate() error {
	return required(q.ProjectID, "project ID")
}

// GetTreeDagQuery reads the flattened reachable subgraph of a tree
type GetTreeDagQuery struct {
	UserID    string
	ProjectID string
	TreeID    string
	Direction string
}

// Validate validates the GetTreeDagQuery
func (q GetTreeDagQuery) Validate() error {
	if err := required(q.ProjectID, "project ID"); err != nil {
		return err
	}
	if err := required(q.TreeID, "tree ID"); err != nil {
		return err
	}
	if q.Direction != DirectionDown {
		return pkgerrors.NewValidationError("unsupported direction " + q.Direction + ", only " + DirectionDown + " is available")
	}
	return nil
}

// GetNodeQuery reads one stored node by its global id
type GetNodeQuery struct {
	NodeID string
}

// Validate validates the GetNodeQuery
func (q GetNodeQuery) Validate() error {
	return required(q.NodeID, "node ID")
}

// GetProjectQuery reads a project
type GetProjectQuery struct {
	UserID    string
	ProjectID string
}

// Validate validates the GetProjectQuery
func (q GetProjectQuery) Validate() error {
	return required(q.ProjectID, "project ID")
}

// ListProjectsQuery lists the projects visible to a user
type ListProjectsQuery struct {
	UserID string
}

// Validate validates the ListProjectsQuery
func (q ListProjectsQuery) Validate() error { return nil }

// GetProjectModelQuery reads the model a project uses
type GetProjectModelQuery struct {
	UserID    string
	ProjectID string
}

// Validate validates the GetProjectModelQuery
func (q GetProjectModelQuery) Validate() error {
	return required(q.ProjectID, "project ID")
}

// ListModelsQuery lists the model catalog
type ListModelsQuery struct{}

// Validate validates the ListModelsQuery
func (q ListModelsQuery) Validate() error { return nil }

// GetSelectedConfigQuery reads a project's active configuration
type GetSelectedConfigQuery struct {
	UserID    string
	ProjectID string
}

// Validate validates the GetSelectedConfigQuery
func (q GetSelectedConfigQuery) Validate() error {
	return required(q.ProjectID, "project ID")
}

// GetConfigQuery reads one configuration
type GetConfigQuery struct {
	UserID    string
	ProjectID string
	ConfigID  string
}

// Validate validates the GetConfigQuery
func (q GetConfigQuery) Validate() error {
	if err := required(q.ProjectID, "project ID"); err != nil {
		return err
	}
	return required(q.ConfigID, "config ID")
}

// ListConfigsQuery lists configuration ids of a project
type ListConfigsQuery struct {
	UserID    string
	ProjectID string
}

// Validate validates the ListConfigsQuery
func (q ListConfigsQuery) Validate() error {
	return required(q.ProjectID, "project ID")
}
