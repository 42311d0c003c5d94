package entities

import (
	"time"

	"treeservice/domain/core/valueobjects"
	pkgerrors "treeservice/pkg/errors"
)

// Configuration is a named attribute context that node conditions are
// evaluated against.
type Configuration struct {
	id         string
	projectID  string
	name       string
	attributes valueobjects.Attributes
	updatedAt  time.Time
}

// NewConfiguration creates a configuration owned by projectID
func NewConfiguration(projectID, name string, attrs valueobjects.Attributes) (*Configuration, error) {
	if projectID == "" {
		return nil, pkgerrors.NewValidationError("projectID cannot be empty")
	}
	if err := validateAttributes(attrs); err != nil {
		return nil, err
	}
	if attrs == nil {
		attrs = valueobjects.Attributes{}
	}
	return &Configuration{
		id:         valueobjects.NewEntityID(),
		projectID:  projectID,
		name:       name,
		attributes: attrs.Clone(),
		updatedAt:  time.Now().UTC(),
	}, nil
}

// ReconstructConfiguration rebuilds a configuration from storage
func ReconstructConfiguration(id, projectID, name string, attrs valueobjects.Attributes, updatedAt time.Time) *Configuration {
	if attrs == nil {
		attrs = valueobjects.Attributes{}
	}
	return &Configuration{
		id:         id,
		projectID:  projectID,
		name:       name,
		attributes: attrs,
		updatedAt:  updatedAt,
	}
}

func (c *Configuration) ID() string           { return c.id }
func (c *Configuration) ProjectID() string    { return c.projectID }
func (c *Configuration) Name() string         { return c.name }
func (c *Configuration) UpdatedAt() time.Time { return c.updatedAt }

// Attributes returns a copy of the attribute map
func (c *Configuration) Attributes() valueobjects.Attributes { return c.attributes.Clone() }

// Replace overwrites the name and attributes. An empty name keeps the old one.
func (c *Configuration) Replace(name string, attrs valueobjects.Attributes) error {
	if err := validateAttributes(attrs); err != nil {
		return err
	}
	if attrs == nil {
		attrs = valueobjects.Attributes{}
	}
	if name != "" {
		c.name = name
	}
	c.attributes = attrs.Clone()
	c.updatedAt = time.Now().UTC()
	return nil
}

func validateAttributes(attrs valueobjects.Attributes) error {
	for key, v := range attrs {
		if key == "" {
			return pkgerrors.NewValidationError("attribute names cannot be empty")
		}
		if !v.IsValid() {
			return pkgerrors.NewValidationError("attribute " + key + " has no value")
		}
	}
	return nil
}
