package kvrepo

import (
	"context"

	"treeservice/application/ports"
	"treeservice/infrastructure/persistence/abstractions"
)

// Snapshotter serves resolution passes from a single store view
type Snapshotter struct {
	store abstractions.Store
}

var _ ports.Snapshotter = (*Snapshotter)(nil)

func NewSnapshotter(store abstractions.Store) *Snapshotter {
	return &Snapshotter{store: store}
}

// View implements ports.Snapshotter
func (s *Snapshotter) View(ctx context.Context, fn func(ports.Snapshot) error) error {
	return s.store.View(ctx, func(r abstractions.Reader) error {
		return fn(snapshot{r: r})
	})
}

type snapshot struct {
	r abstractions.Reader
}

func (s snapshot) Nodes() ports.NodeReader                   { return nodeReader{r: s.r} }
func (s snapshot) Trees() ports.TreeReader                   { return treeReader{r: s.r} }
func (s snapshot) Projects() ports.ProjectReader             { return projectReader{r: s.r} }
func (s snapshot) Configurations() ports.ConfigurationReader { return configReader{r: s.r} }
