package commands

import (
	"strconv"
	"strings"

	"treeservice/domain/core/valueobjects"
	pkgerrors "treeservice/pkg/errors"
)

func required(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return pkgerrors.NewValidationError(name + " is required")
	}
	return nil
}

// CreateProjectCommand creates a project
type CreateProjectCommand struct {
	UserID string
	Title  string
}

// Validate validates the CreateProjectCommand
func (c CreateProjectCommand) Validate() error {
	return required(c.Title, "title")
}

// UpdateProjectCommand renames a project
type UpdateProjectCommand struct {
	UserID    string
	ProjectID string
	Title     string
}

// Validate validates the UpdateProjectCommand
func (c UpdateProjectCommand) Validate() error {
	if err := required(c.ProjectID, "project ID"); err != nil {
		return err
	}
	return required(c.Title, "title")
}

// SelectModelCommand sets the model a project uses
type SelectModelCommand struct {
	UserID    string
	ProjectID string
	ModelID   string
}

// Validate validates the SelectModelCommand
func (c SelectModelCommand) Validate() error {
	if err := required(c.ProjectID, "project ID"); err != nil {
		return err
	}
	return required(c.ModelID, "modelId")
}

// CreateTreeCommand adds an empty tree to a project
type CreateTreeCommand struct {
	UserID    string
	ProjectID string
	Title     string
}

// Validate validates the CreateTreeCommand
func (c CreateTreeCommand) Validate() error {
	if err := required(c.ProjectID, "project ID"); err != nil {
		return err
	}
	return required(c.Title, "title")
}

// NodeInput is one node of a tree write
type NodeInput struct {
	ID                 string                  `json:"id" validate:"required"`
	Title              string                  `json:"title"`
	Description        string                  `json:"description"`
	ModelAttributes    valueobjects.Attributes `json:"modelAttributes"`
	ConditionAttribute string                  `json:"conditionAttribute"`
	Children           []string                `json:"children" validate:"dive,required"`
}

// WriteTreeCommand upserts a node set and repoints a tree's root
type WriteTreeCommand struct {
	UserID     string
	ProjectID  string
	TreeID     string
	Title      string
	Nodes      []NodeInput
	RootNodeID string
}

// Validate validates the WriteTreeCommand
func (c WriteTreeCommand) Validate() error {
	if err := required(c.ProjectID, "project ID"); err != nil {
		return err
	}
	if err := required(c.TreeID, "tree ID"); err != nil {
		return err
	}
	if err := required(c.Title, "title"); err != nil {
		return err
	}
	for i, n := range c.Nodes {
		if n.ID == "" {
			return pkgerrors.NewValidationError("nodes[" + strconv.Itoa(i) + "].id is required")
		}
	}
	return nil
}

// UndoTreeCommand restores a tree to its previous write
type UndoTreeCommand struct {
	UserID    string
	ProjectID string
	TreeID    string
}

// Validate validates the UndoTreeCommand
func (c UndoTreeCommand) Validate() error {
	if err := required(c.ProjectID, "project ID"); err != nil {
		return err
	}
	return required(c.TreeID, "tree ID")
}

// CreateConfigCommand creates a configuration
type CreateConfigCommand struct {
	UserID     string
	ProjectID  string
	Name       string
	Attributes valueobjects.Attributes
}

// Validate validates the CreateConfigCommand
func (c CreateConfigCommand) Validate() error {
	return required(c.ProjectID, "project ID")
}

// UpdateConfigCommand replaces a configuration's attributes
type UpdateConfigCommand struct {
	UserID     string
	ProjectID  string
	ConfigID   string
	Name       string
	Attributes valueobjects.Attributes
}

// Validate validates the UpdateConfigCommand
func (c UpdateConfigCommand) Validate() error {
	if err := required(c.ProjectID, "project ID"); err != nil {
		return err
	}
	return required(c.ConfigID, "config ID")
}

// SelectConfigCommand activates a configuration for a project
type SelectConfigCommand struct {
	UserID    string
	ProjectID string
	ConfigID  string
}

// Validate validates the SelectConfigCommand
func (c SelectConfigCommand) Validate() error {
	if err := required(c.ProjectID, "project ID"); err != nil {
		return err
	}
	return required(c.ConfigID, "desiredConfig")
}
