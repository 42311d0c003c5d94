package ports

import (
	"context"
	"time"

	"treeservice/domain/core/entities"
	"treeservice/domain/core/valueobjects"
	"treeservice/domain/events"
)

// NodeReader reads from the shared node store
type NodeReader interface {
	// GetByID retrieves a node or returns a not found error
	GetByID(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error)

	// GetMany retrieves the stored nodes among ids; missing ids are omitted
	GetMany(ctx context.Context, ids []valueobjects.NodeID) (map[valueobjects.NodeID]*entities.Node, error)
}

// NodeRepository defines the interface for node persistence.
// Nodes are global: they are not owned by any tree and are never deleted.
type NodeRepository interface {
	NodeReader

	// Upsert inserts or fully replaces the node stored under its id
	Upsert(ctx context.Context, node *entities.Node) error

	// UpsertBatch upserts all nodes atomically
	UpsertBatch(ctx context.Context, nodes []*entities.Node) error
}

// TreeReader reads tree records
type TreeReader interface {
	GetByID(ctx context.Context, projectID, treeID string) (*entities.Tree, error)
	ListByProject(ctx context.Context, projectID string) ([]*entities.Tree, error)
}

// TreeRepository defines the interface for tree persistence
type TreeRepository interface {
	TreeReader
	Save(ctx context.Context, tree *entities.Tree) error
}

// ProjectReader reads projects
type ProjectReader interface {
	GetByID(ctx context.Context, projectID string) (*entities.Project, error)
	List(ctx context.Context) ([]*entities.Project, error)
}

// ProjectRepository defines the interface for project persistence
type ProjectRepository interface {
	ProjectReader
	Save(ctx context.Context, project *entities.Project) error
}

// ConfigurationReader reads configurations
type ConfigurationReader interface {
	GetByID(ctx context.Context, projectID, configID string) (*entities.Configuration, error)
	ListByProject(ctx context.Context, projectID string) ([]*entities.Configuration, error)
}

// ConfigurationRepository defines the interface for configuration persistence
type ConfigurationRepository interface {
	ConfigurationReader
	Save(ctx context.Context, cfg *entities.Configuration) error
}

// RevisionRepository keeps the write history of each tree
type RevisionRepository interface {
	// Append stores rev; its version must be greater than any stored one
	Append(ctx context.Context, rev *entities.TreeRevision) error

	// Latest returns up to limit revisions, newest first
	Latest(ctx context.Context, treeID string, limit int) ([]*entities.TreeRevision, error)

	// Delete removes one revision
	Delete(ctx context.Context, treeID string, version int) error
}

// Snapshot is a coherent read view across the stores a resolution pass needs
type Snapshot interface {
	Nodes() NodeReader
	Trees() TreeReader
	Projects() ProjectReader
	Configurations() ConfigurationReader
}

// Snapshotter runs fn against a single consistent snapshot
type Snapshotter interface {
	View(ctx context.Context, fn func(Snapshot) error) error
}

// EventPublisher publishes domain events to the outside world
type EventPublisher interface {
	Publish(ctx context.Context, events ...events.DomainEvent) error
}

// ResolutionMetrics records resolution passes
type ResolutionMetrics interface {
	ObserveResolution(mode string, nodes int, duration time.Duration)
	ObserveTreeWrite(nodes int)
}
