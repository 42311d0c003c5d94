package events

import (
	"time"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	TypeTreeCreated    = "tree.created"
	TypeTreeWritten    = "tree.written"
	TypeTreeUndone     = "tree.undone"
	TypeConfigSelected = "project.config_selected"
)

// Tree Events

// TreeCreated is raised when an empty tree is added to a project
type TreeCreated struct {
	BaseEvent
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
}

// NewTreeCreated creates a TreeCreated event
func NewTreeCreated(treeID, projectID, title string, timestamp time.Time) TreeCreated {
	return TreeCreated{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   TypeTreeCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		ProjectID: projectID,
		Title:     title,
	}
}

// TreeWritten is raised after a tree write upserted its nodes and root
type TreeWritten struct {
	BaseEvent
	ProjectID  string   `json:"project_id"`
	RootNodeID string   `json:"root_node_id"`
	NodeIDs    []string `json:"node_ids"`
}

// NewTreeWritten creates a TreeWritten event
func NewTreeWritten(treeID, projectID, rootNodeID string, nodeIDs []string, version int, timestamp time.Time) TreeWritten {
	return TreeWritten{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   TypeTreeWritten,
			Timestamp:   timestamp,
			Version:     version,
		},
		ProjectID:  projectID,
		RootNodeID: rootNodeID,
		NodeIDs:    nodeIDs,
	}
}

// TreeUndone is raised when a tree is rolled back to its previous write
type TreeUndone struct {
	BaseEvent
	ProjectID       string `json:"project_id"`
	RestoredVersion int    `json:"restored_version"`
}

// NewTreeUndone creates a TreeUndone event
func NewTreeUndone(treeID, projectID string, restoredVersion int, timestamp time.Time) TreeUndone {
	return TreeUndone{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   TypeTreeUndone,
			Timestamp:   timestamp,
			Version:     restoredVersion,
		},
		ProjectID:       projectID,
		RestoredVersion: restoredVersion,
	}
}

// Project Events

// ConfigSelected is raised when a project switches its active configuration
type ConfigSelected struct {
	BaseEvent
	ConfigID         string `json:"config_id"`
	PreviousConfigID string `json:"previous_config_id,omitempty"`
}

// NewConfigSelected creates a ConfigSelected event
func NewConfigSelected(projectID, configID, previous string, timestamp time.Time) ConfigSelected {
	return ConfigSelected{
		BaseEvent: BaseEvent{
			AggregateID: projectID,
			EventType:   TypeConfigSelected,
			Timestamp:   timestamp,
			Version:     1,
		},
		ConfigID:         configID,
		PreviousConfigID: previous,
	}
}
