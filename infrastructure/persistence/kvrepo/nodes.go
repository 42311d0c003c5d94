package kvrepo

import (
	"context"
	"errors"

	"treeservice/application/ports"
	"treeservice/domain/core/entities"
	"treeservice/domain/core/valueobjects"
	"treeservice/infrastructure/persistence/abstractions"
	pkgerrors "treeservice/pkg/errors"
)

type nodeReader struct {
	r abstractions.Reader
}

func (nr nodeReader) GetByID(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	item, err := nr.r.Get(ctx, nodeKey(id.String()))
	if errors.Is(err, abstractions.ErrNotFound) {
		return nil, pkgerrors.NewNotFoundError("node")
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get node", err)
	}
	var rec nodeRecord
	if err := decode(item, &rec); err != nil {
		return nil, pkgerrors.NewDatabaseError("get node", err)
	}
	return rec.toEntity(), nil
}

func (nr nodeReader) GetMany(ctx context.Context, ids []valueobjects.NodeID) (map[valueobjects.NodeID]*entities.Node, error) {
	keys := make([]abstractions.Key, len(ids))
	for i, id := range ids {
		keys[i] = nodeKey(id.String())
	}
	items, err := nr.r.BatchGet(ctx, keys)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get nodes", err)
	}

	out := make(map[valueobjects.NodeID]*entities.Node, len(items))
	for _, item := range items {
		var rec nodeRecord
		if err := decode(item, &rec); err != nil {
			return nil, pkgerrors.NewDatabaseError("get nodes", err)
		}
		n := rec.toEntity()
		out[n.ID()] = n
	}
	return out, nil
}

// NodeRepository stores nodes in the shared namespace
type NodeRepository struct {
	nodeReader
	store abstractions.Store
}

var _ ports.NodeRepository = (*NodeRepository)(nil)

// NewNodeRepository creates a node repository over store
func NewNodeRepository(store abstractions.Store) *NodeRepository {
	return &NodeRepository{nodeReader: nodeReader{r: store}, store: store}
}

// Upsert replaces the node stored under its id
func (r *NodeRepository) Upsert(ctx context.Context, node *entities.Node) error {
	return r.UpsertBatch(ctx, []*entities.Node{node})
}

// UpsertBatch replaces all nodes in one atomic write
func (r *NodeRepository) UpsertBatch(ctx context.Context, nodes []*entities.Node) error {
	items := make([]abstractions.Item, 0, len(nodes))
	for _, n := range nodes {
		item, err := encode(nodeKey(n.ID().String()), entityNode, newNodeRecord(n))
		if err != nil {
			return pkgerrors.NewDatabaseError("upsert nodes", err)
		}
		items = append(items, item)
	}
	if err := r.store.PutBatch(ctx, items); err != nil {
		return pkgerrors.NewDatabaseError("upsert nodes", err)
	}
	return nil
}
