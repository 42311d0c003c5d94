package kvrepo

import (
	"context"
	"errors"

	"treeservice/application/ports"
	"treeservice/domain/core/entities"
	"treeservice/infrastructure/persistence/abstractions"
	pkgerrors "treeservice/pkg/errors"
)

type treeReader struct {
	r abstractions.Reader
}

func (tr treeReader) GetByID(ctx context.Context, projectID, treeID string) (*entities.Tree, error) {
	item, err := tr.r.Get(ctx, treeKey(projectID, treeID))
	if errors.Is(err, abstractions.ErrNotFound) {
		return nil, pkgerrors.NewNotFoundError("tree")
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get tree", err)
	}
	return decodeTree(item)
}

func (tr treeReader) ListByProject(ctx context.Context, projectID string) ([]*entities.Tree, error) {
	items, err := tr.r.Query(ctx, projectPrefix+projectID, treePrefix, abstractions.QueryOptions{})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list trees", err)
	}
	trees := make([]*entities.Tree, 0, len(items))
	for _, item := range items {
		t, err := decodeTree(item)
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	return trees, nil
}

func decodeTree(item abstractions.Item) (*entities.Tree, error) {
	var rec treeRecord
	if err := decode(item, &rec); err != nil {
		return nil, pkgerrors.NewDatabaseError("get tree", err)
	}
	return entities.ReconstructTree(rec.ID, rec.ProjectID, rec.Title, rec.RootNodeID, rec.CreatedAt, rec.UpdatedAt), nil
}

// TreeRepository stores tree records under their project
type TreeRepository struct {
	treeReader
	store abstractions.Store
}

var _ ports.TreeRepository = (*TreeRepository)(nil)

func NewTreeRepository(store abstractions.Store) *TreeRepository {
	return &TreeRepository{treeReader: treeReader{r: store}, store: store}
}

func (r *TreeRepository) Save(ctx context.Context, tree *entities.Tree) error {
	item, err := encode(treeKey(tree.ProjectID(), tree.ID()), entityTree, treeRecord{
		ID:         tree.ID(),
		ProjectID:  tree.ProjectID(),
		Title:      tree.Title(),
		RootNodeID: tree.RootNodeID(),
		CreatedAt:  tree.CreatedAt(),
		UpdatedAt:  tree.UpdatedAt(),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("save tree", err)
	}
	if err := r.store.Put(ctx, item); err != nil {
		return pkgerrors.NewDatabaseError("save tree", err)
	}
	return nil
}
