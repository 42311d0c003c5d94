package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"treeservice/application/commands"
	"treeservice/application/ports"
	"treeservice/application/queries"
	"treeservice/application/sagas"
	"treeservice/application/services"
	"treeservice/domain/core/entities"
	pkgerrors "treeservice/pkg/errors"
)

// TreeHandler handles tree commands
type TreeHandler struct {
	projectRepo  ports.ProjectRepository
	treeRepo     ports.TreeRepository
	nodeRepo     ports.NodeRepository
	revisionRepo ports.RevisionRepository
	resolver     *services.TreeResolver
	publisher    ports.EventPublisher
	metrics      ports.ResolutionMetrics
	logger       *zap.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(
	projectRepo ports.ProjectRepository,
	treeRepo ports.TreeRepository,
	nodeRepo ports.NodeRepository,
	revisionRepo ports.RevisionRepository,
	resolver *services.TreeResolver,
	publisher ports.EventPublisher,
	metrics ports.ResolutionMetrics,
	logger *zap.Logger,
) *TreeHandler {
	return &TreeHandler{
		projectRepo:  projectRepo,
		treeRepo:     treeRepo,
		nodeRepo:     nodeRepo,
		revisionRepo: revisionRepo,
		resolver:     resolver,
		publisher:    publisher,
		metrics:      metrics,
		logger:       logger,
	}
}

// HandleCreate executes the create tree command
func (h *TreeHandler) HandleCreate(ctx context.Context, cmd commands.CreateTreeCommand) (*queries.TreeView, error) {
	if _, err := services.LoadProject(ctx, h.projectRepo, cmd.UserID, cmd.ProjectID); err != nil {
		return nil, err
	}

	tree, err := entities.NewTree(cmd.ProjectID, cmd.Title)
	if err != nil {
		return nil, err
	}

	if err := h.treeRepo.Save(ctx, tree); err != nil {
		return nil, fmt.Errorf("failed to save tree: %w", err)
	}

	publishEvents(ctx, h.publisher, h.logger, tree)

	h.logger.Info("Tree created",
		zap.String("projectID", cmd.ProjectID),
		zap.String("treeID", tree.ID()),
	)

	view := queries.NewTreeView(tree, nil)
	return &view, nil
}

// HandleWrite executes the write tree command: the payload nodes are
// upserted, the tree is pointed at the new root and the write is recorded
// for undo. The result echoes exactly the payload nodes, resolved against
// the full reachable graph.
func (h *TreeHandler) HandleWrite(ctx context.Context, cmd commands.WriteTreeCommand) (*queries.TreeView, error) {
	nodes, err := buildNodes(cmd.Nodes)
	if err != nil {
		return nil, err
	}

	if _, err := services.LoadProject(ctx, h.projectRepo, cmd.UserID, cmd.ProjectID); err != nil {
		return nil, err
	}
	tree, err := h.treeRepo.GetByID(ctx, cmd.ProjectID, cmd.TreeID)
	if err != nil {
		return nil, err
	}

	version, err := h.nextVersion(ctx, tree.ID())
	if err != nil {
		return nil, err
	}

	original := snapshotTree(tree)
	tree.Rewrite(cmd.Title, cmd.RootNodeID, nodeIDs(nodes), version)
	rev := entities.NewTreeRevision(tree.ID(), version, cmd.Title, cmd.RootNodeID, nodes)

	// Upserted nodes are shared and stay; only the tree record rolls back.
	err = sagas.NewBuilder("tree.write", h.logger).
		WithStep("upsert nodes", func(ctx context.Context) error {
			if len(nodes) == 0 {
				return nil
			}
			if err := h.nodeRepo.UpsertBatch(ctx, nodes); err != nil {
				return fmt.Errorf("failed to upsert nodes: %w", err)
			}
			return nil
		}).
		WithCompensableStep("save tree", func(ctx context.Context) error {
			if err := h.treeRepo.Save(ctx, tree); err != nil {
				return fmt.Errorf("failed to save tree: %w", err)
			}
			return nil
		}, func(ctx context.Context) error {
			return h.treeRepo.Save(ctx, original)
		}).
		WithStep("record revision", func(ctx context.Context) error {
			if err := h.revisionRepo.Append(ctx, rev); err != nil {
				return fmt.Errorf("failed to record tree revision: %w", err)
			}
			return nil
		}).
		Build().
		Execute(ctx)
	if err != nil {
		return nil, err
	}

	publishEvents(ctx, h.publisher, h.logger, tree)
	if h.metrics != nil {
		h.metrics.ObserveTreeWrite(len(nodes))
	}

	h.logger.Info("Tree written",
		zap.String("projectID", cmd.ProjectID),
		zap.String("treeID", tree.ID()),
		zap.String("rootNodeID", cmd.RootNodeID),
		zap.Int("nodes", len(nodes)),
		zap.Int("version", version),
	)

	if len(nodes) == 0 {
		view := queries.NewTreeView(tree, nil)
		return &view, nil
	}

	resolved, err := h.resolver.ResolveTree(ctx, cmd.UserID, cmd.ProjectID, cmd.TreeID)
	if err != nil {
		return nil, err
	}

	views := make([]queries.NodeView, 0, len(nodes))
	for _, n := range nodes {
		// Prefer the snapshot's copy so the view matches what was resolved.
		if stored, ok := resolved.Result.Node(n.ID()); ok {
			views = append(views, queries.NewResolvedNodeView(stored, resolved.Result.Resolved(n.ID())))
			continue
		}
		views = append(views, queries.NewResolvedNodeView(n, false))
	}

	view := queries.NewTreeView(resolved.Tree, views)
	return &view, nil
}

// HandleUndo executes the undo tree command. It drops the latest write and
// re-applies the one before it.
func (h *TreeHandler) HandleUndo(ctx context.Context, cmd commands.UndoTreeCommand) (*queries.TreeView, error) {
	if _, err := services.LoadProject(ctx, h.projectRepo, cmd.UserID, cmd.ProjectID); err != nil {
		return nil, err
	}
	tree, err := h.treeRepo.GetByID(ctx, cmd.ProjectID, cmd.TreeID)
	if err != nil {
		return nil, err
	}

	revs, err := h.revisionRepo.Latest(ctx, tree.ID(), 2)
	if err != nil {
		return nil, fmt.Errorf("failed to load tree history: %w", err)
	}
	if len(revs) < 2 {
		return nil, pkgerrors.NewConflictError("Nothing to undo")
	}
	latest, previous := revs[0], revs[1]

	original := snapshotTree(tree)
	tree.Restore(previous)

	err = sagas.NewBuilder("tree.undo", h.logger).
		WithCompensableStep("restore nodes", func(ctx context.Context) error {
			return upsertAll(ctx, h.nodeRepo, previous.Nodes(), "failed to restore nodes")
		}, func(ctx context.Context) error {
			return upsertAll(ctx, h.nodeRepo, latest.Nodes(), "failed to reapply nodes")
		}).
		WithCompensableStep("save tree", func(ctx context.Context) error {
			if err := h.treeRepo.Save(ctx, tree); err != nil {
				return fmt.Errorf("failed to save tree: %w", err)
			}
			return nil
		}, func(ctx context.Context) error {
			return h.treeRepo.Save(ctx, original)
		}).
		WithStep("drop revision", func(ctx context.Context) error {
			if err := h.revisionRepo.Delete(ctx, tree.ID(), latest.Version()); err != nil {
				return fmt.Errorf("failed to drop tree revision: %w", err)
			}
			return nil
		}).
		Build().
		Execute(ctx)
	if err != nil {
		return nil, err
	}

	publishEvents(ctx, h.publisher, h.logger, tree)

	h.logger.Info("Tree write undone",
		zap.String("projectID", cmd.ProjectID),
		zap.String("treeID", tree.ID()),
		zap.Int("restoredVersion", previous.Version()),
	)

	resolved, err := h.resolver.ResolveTree(ctx, cmd.UserID, cmd.ProjectID, cmd.TreeID)
	if err != nil {
		return nil, err
	}
	view := queries.NewTreeView(resolved.Tree, queries.ResolvedNodeViews(resolved.Result))
	return &view, nil
}

func (h *TreeHandler) nextVersion(ctx context.Context, treeID string) (int, error) {
	revs, err := h.revisionRepo.Latest(ctx, treeID, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to load tree history: %w", err)
	}
	if len(revs) == 0 {
		return 1, nil
	}
	return revs[0].Version() + 1, nil
}

// buildNodes validates the payload. A node id repeated in one payload keeps
// its last definition and its first position.
func buildNodes(inputs []commands.NodeInput) ([]*entities.Node, error) {
	index := make(map[string]int, len(inputs))
	nodes := make([]*entities.Node, 0, len(inputs))
	for _, in := range inputs {
		n, err := entities.NewNode(in.ID, in.Title, in.Description, in.ModelAttributes, in.ConditionAttribute, in.Children)
		if err != nil {
			return nil, err
		}
		if i, ok := index[in.ID]; ok {
			nodes[i] = n
			continue
		}
		index[in.ID] = len(nodes)
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// snapshotTree copies the persisted fields of t for compensation
func snapshotTree(t *entities.Tree) *entities.Tree {
	return entities.ReconstructTree(t.ID(), t.ProjectID(), t.Title(), t.RootNodeID(), t.CreatedAt(), t.UpdatedAt())
}

func upsertAll(ctx context.Context, repo ports.NodeRepository, nodes []*entities.Node, msg string) error {
	if len(nodes) == 0 {
		return nil
	}
	if err := repo.UpsertBatch(ctx, nodes); err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return nil
}

func nodeIDs(nodes []*entities.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID().String()
	}
	return ids
}
