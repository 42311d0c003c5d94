package entities

import (
	"strings"
	"time"

	"treeservice/domain/core/valueobjects"
	"treeservice/domain/events"
	pkgerrors "treeservice/pkg/errors"
)

// Project owns trees and configurations and points at the active configuration.
type Project struct {
	id               string
	title            string
	ownerID          string
	selectedConfigID string
	selectedModelID  string
	createdAt        time.Time
	updatedAt        time.Time
	version          int64

	events []events.DomainEvent
}

// NewProject creates a project with no selected configuration
func NewProject(title, ownerID string) (*Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, pkgerrors.NewValidationError("title is required")
	}
	now := time.Now().UTC()
	return &Project{
		id:        valueobjects.NewEntityID(),
		title:     title,
		ownerID:   ownerID,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructProject rebuilds a project from storage
func ReconstructProject(id, title, ownerID, selectedConfigID, selectedModelID string, createdAt, updatedAt time.Time, version int64) *Project {
	return &Project{
		id:               id,
		title:            title,
		ownerID:          ownerID,
		selectedConfigID: selectedConfigID,
		selectedModelID:  selectedModelID,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
		version:          version,
	}
}

func (p *Project) ID() string               { return p.id }
func (p *Project) Title() string            { return p.title }
func (p *Project) OwnerID() string          { return p.ownerID }
func (p *Project) SelectedConfigID() string { return p.selectedConfigID }
func (p *Project) SelectedModelID() string  { return p.selectedModelID }
func (p *Project) CreatedAt() time.Time     { return p.createdAt }
func (p *Project) UpdatedAt() time.Time     { return p.updatedAt }

// Version returns the stored version the project was read at, for
// optimistic locking. A project that was never saved is at zero.
func (p *Project) Version() int64 { return p.version }

// SetVersion records the version storage assigned on save
func (p *Project) SetVersion(v int64) { p.version = v }

// HasSelectedConfig reports whether a configuration is active
func (p *Project) HasSelectedConfig() bool { return p.selectedConfigID != "" }

// Rename changes the project title
func (p *Project) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return pkgerrors.NewValidationError("title is required")
	}
	p.title = title
	p.updatedAt = time.Now().UTC()
	return nil
}

// SelectConfig activates cfg. The configuration must belong to this project.
func (p *Project) SelectConfig(cfg *Configuration) error {
	if cfg == nil {
		return pkgerrors.NewValidationError("configuration is required")
	}
	if cfg.ProjectID() != p.id {
		return pkgerrors.NewValidationError("configuration " + cfg.ID() + " does not belong to project " + p.id)
	}
	previous := p.selectedConfigID
	p.selectedConfigID = cfg.ID()
	p.updatedAt = time.Now().UTC()
	p.events = append(p.events, events.NewConfigSelected(p.id, cfg.ID(), previous, p.updatedAt))
	return nil
}

// SelectModel sets the project's risk model from the catalog
func (p *Project) SelectModel(modelID string) error {
	if _, ok := FindModel(modelID); !ok {
		return pkgerrors.NewValidationError("unknown model " + modelID)
	}
	p.selectedModelID = modelID
	p.updatedAt = time.Now().UTC()
	return nil
}

// GetUncommittedEvents returns events raised since the last MarkEventsAsCommitted
func (p *Project) GetUncommittedEvents() []events.DomainEvent {
	return p.events
}

// MarkEventsAsCommitted clears pending events
func (p *Project) MarkEventsAsCommitted() {
	p.events = nil
}
