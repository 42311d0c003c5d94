package kvrepo

import (
	"context"

	"treeservice/application/ports"
	"treeservice/domain/core/entities"
	"treeservice/infrastructure/persistence/abstractions"
	pkgerrors "treeservice/pkg/errors"
)

// RevisionRepository keeps tree history in one partition per tree. Versions
// are zero padded so sort key order is version order.
type RevisionRepository struct {
	store abstractions.Store
}

var _ ports.RevisionRepository = (*RevisionRepository)(nil)

func NewRevisionRepository(store abstractions.Store) *RevisionRepository {
	return &RevisionRepository{store: store}
}

func (r *RevisionRepository) Append(ctx context.Context, rev *entities.TreeRevision) error {
	nodes := make([]nodeRecord, 0, len(rev.Nodes()))
	for _, n := range rev.Nodes() {
		nodes = append(nodes, newNodeRecord(n))
	}
	item, err := encode(revisionKey(rev.TreeID(), rev.Version()), entityRevision, revisionRecord{
		TreeID:     rev.TreeID(),
		Version:    rev.Version(),
		Title:      rev.Title(),
		RootNodeID: rev.RootNodeID(),
		Nodes:      nodes,
		CreatedAt:  rev.CreatedAt(),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("append revision", err)
	}
	if err := r.store.Put(ctx, item); err != nil {
		return pkgerrors.NewDatabaseError("append revision", err)
	}
	return nil
}

func (r *RevisionRepository) Latest(ctx context.Context, treeID string, limit int) ([]*entities.TreeRevision, error) {
	items, err := r.store.Query(ctx, treePrefix+treeID, historyPrefix, abstractions.QueryOptions{
		Limit:      limit,
		Descending: true,
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list revisions", err)
	}

	revs := make([]*entities.TreeRevision, 0, len(items))
	for _, item := range items {
		var rec revisionRecord
		if err := decode(item, &rec); err != nil {
			return nil, pkgerrors.NewDatabaseError("list revisions", err)
		}
		nodes := make([]*entities.Node, 0, len(rec.Nodes))
		for _, n := range rec.Nodes {
			nodes = append(nodes, n.toEntity())
		}
		revs = append(revs, entities.ReconstructTreeRevision(rec.TreeID, rec.Version, rec.Title, rec.RootNodeID, nodes, rec.CreatedAt))
	}
	return revs, nil
}

func (r *RevisionRepository) Delete(ctx context.Context, treeID string, version int) error {
	if err := r.store.Delete(ctx, revisionKey(treeID, version)); err != nil {
		return pkgerrors.NewDatabaseError("delete revision", err)
	}
	return nil
}
