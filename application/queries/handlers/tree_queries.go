package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"treeservice/application/ports"
	"treeservice/application/queries"
	"treeservice/application/services"
)

// TreeQueryHandler answers tree and node reads
type TreeQueryHandler struct {
	projectRepo ports.ProjectRepository
	treeRepo    ports.TreeRepository
	nodeRepo    ports.NodeRepository
	resolver    *services.TreeResolver
	logger      *zap.Logger
}

// NewTreeQueryHandler creates a new tree query handler
func NewTreeQueryHandler(
	projectRepo ports.ProjectRepository,
	treeRepo ports.TreeRepository,
	nodeRepo ports.NodeRepository,
	resolver *services.TreeResolver,
	logger *zap.Logger,
) *TreeQueryHandler {
	return &TreeQueryHandler{
		projectRepo: projectRepo,
		treeRepo:    treeRepo,
		nodeRepo:    nodeRepo,
		resolver:    resolver,
		logger:      logger,
	}
}

// HandleGetTree returns the tree with all reachable nodes resolved
func (h *TreeQueryHandler) HandleGetTree(ctx context.Context, q queries.GetTreeQuery) (*queries.TreeView, error) {
	resolved, err := h.resolver.ResolveTree(ctx, q.UserID, q.ProjectID, q.TreeID)
	if err != nil {
		return nil, err
	}
	view := queries.NewTreeView(resolved.Tree, queries.ResolvedNodeViews(resolved.Result))
	return &view, nil
}

// HandleGetTreeDag returns the flattened reachable subgraph
func (h *TreeQueryHandler) HandleGetTreeDag(ctx context.Context, q queries.GetTreeDagQuery) (*queries.DagView, error) {
	resolved, err := h.resolver.ResolveTree(ctx, q.UserID, q.ProjectID, q.TreeID)
	if err != nil {
		return nil, err
	}
	return &queries.DagView{
		Root: queries.DagRoot{
			ID:         resolved.Tree.ID(),
			Title:      resolved.Tree.Title(),
			RootNodeID: resolved.Tree.RootNodeID(),
		},
		Direction: q.Direction,
		Nodes:     queries.ResolvedNodeViews(resolved.Result),
	}, nil
}

// HandleListTrees lists a project's trees
func (h *TreeQueryHandler) HandleListTrees(ctx context.Context, q queries.ListTreesQuery) (*queries.TreeList, error) {
	if _, err := services.LoadProject(ctx, h.projectRepo, q.UserID, q.ProjectID); err != nil {
		return nil, err
	}
	trees, err := h.treeRepo.ListByProject(ctx, q.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}

	out := &queries.TreeList{Trees: make([]queries.TreeSummary, 0, len(trees))}
	for _, t := range trees {
		out.Trees = append(out.Trees, queries.TreeSummary{ID: t.ID(), Title: t.Title()})
	}
	return out, nil
}

// HandleGetNode returns a stored node without resolving it
func (h *TreeQueryHandler) HandleGetNode(ctx context.Context, q queries.GetNodeQuery) (*queries.NodeView, error) {
	id, err := parseNodeID(q.NodeID)
	if err != nil {
		return nil, err
	}
	node, err := h.nodeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := queries.NewNodeView(node)
	return &view, nil
}
