package entities

import "time"

// TreeRevision records one tree write so it can be undone.
type TreeRevision struct {
	treeID     string
	version    int
	title      string
	rootNodeID string
	nodes      []*Node
	createdAt  time.Time
}

// NewTreeRevision captures the payload of a tree write
func NewTreeRevision(treeID string, version int, title, rootNodeID string, nodes []*Node) *TreeRevision {
	return &TreeRevision{
		treeID:     treeID,
		version:    version,
		title:      title,
		rootNodeID: rootNodeID,
		nodes:      nodes,
		createdAt:  time.Now().UTC(),
	}
}

// ReconstructTreeRevision rebuilds a revision from storage
func ReconstructTreeRevision(treeID string, version int, title, rootNodeID string, nodes []*Node, createdAt time.Time) *TreeRevision {
	return &TreeRevision{
		treeID:     treeID,
		version:    version,
		title:      title,
		rootNodeID: rootNodeID,
		nodes:      nodes,
		createdAt:  createdAt,
	}
}

func (r *TreeRevision) TreeID() string       { return r.treeID }
func (r *TreeRevision) Version() int         { return r.version }
func (r *TreeRevision) Title() string        { return r.title }
func (r *TreeRevision) RootNodeID() string   { return r.rootNodeID }
func (r *TreeRevision) Nodes() []*Node       { return r.nodes }
func (r *TreeRevision) CreatedAt() time.Time { return r.createdAt }
