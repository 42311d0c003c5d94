package entities

import (
	"strings"
	"time"

	"treeservice/domain/core/valueobjects"
	"treeservice/domain/events"
	pkgerrors "treeservice/pkg/errors"
)

// Tree is a named root pointer into the shared node graph, scoped to a project.
type Tree struct {
	id         string
	projectID  string
	title      string
	rootNodeID string
	createdAt  time.Time
	updatedAt  time.Time

	events []events.DomainEvent
}

// NewTree creates an empty tree with no root
func NewTree(projectID, title string) (*Tree, error) {
	if projectID == "" {
		return nil, pkgerrors.NewValidationError("projectID cannot be empty")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, pkgerrors.NewValidationError("title is required")
	}

	now := time.Now().UTC()
	t := &Tree{
		id:        valueobjects.NewEntityID(),
		projectID: projectID,
		title:     title,
		createdAt: now,
		updatedAt: now,
	}
	t.addEvent(events.NewTreeCreated(t.id, projectID, title, now))
	return t, nil
}

// ReconstructTree rebuilds a tree from storage
func ReconstructTree(id, projectID, title, rootNodeID string, createdAt, updatedAt time.Time) *Tree {
	return &Tree{
		id:         id,
		projectID:  projectID,
		title:      title,
		rootNodeID: rootNodeID,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (t *Tree) ID() string           { return t.id }
func (t *Tree) ProjectID() string    { return t.projectID }
func (t *Tree) Title() string        { return t.title }
func (t *Tree) RootNodeID() string   { return t.rootNodeID }
func (t *Tree) HasRoot() bool        { return t.rootNodeID != "" }
func (t *Tree) CreatedAt() time.Time { return t.createdAt }
func (t *Tree) UpdatedAt() time.Time { return t.updatedAt }

// Rewrite points the tree at a new root and title. The root may name a node
// that does not exist; reads then traverse nothing.
func (t *Tree) Rewrite(title, rootNodeID string, nodeIDs []string, version int) {
	t.title = title
	t.rootNodeID = rootNodeID
	t.updatedAt = time.Now().UTC()
	t.addEvent(events.NewTreeWritten(t.id, t.projectID, rootNodeID, nodeIDs, version, t.updatedAt))
}

// Restore rolls the tree back to a previous revision
func (t *Tree) Restore(rev *TreeRevision) {
	t.title = rev.Title()
	t.rootNodeID = rev.RootNodeID()
	t.updatedAt = time.Now().UTC()
	t.addEvent(events.NewTreeUndone(t.id, t.projectID, rev.Version(), t.updatedAt))
}

func (t *Tree) addEvent(e events.DomainEvent) {
	t.events = append(t.events, e)
}

// GetUncommittedEvents returns events raised since the last MarkEventsAsCommitted
func (t *Tree) GetUncommittedEvents() []events.DomainEvent {
	return t.events
}

// MarkEventsAsCommitted clears pending events
func (t *Tree) MarkEventsAsCommitted() {
	t.events = nil
}
