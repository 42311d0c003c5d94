package handlers

import (
	"context"

	"treeservice/application/queries"
	"treeservice/application/queries/bus"
)

// Register wires every query handler into the bus
func Register(b *bus.QueryBus, trees *TreeQueryHandler, projects *ProjectQueryHandler) error {
	registrations := []struct {
		query   bus.Query
		handler bus.QueryHandlerFunc
	}{
		{queries.GetTreeQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return trees.HandleGetTree(ctx, q.(queries.GetTreeQuery))
		}},
		{queries.GetTreeDagQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return trees.HandleGetTreeDag(ctx, q.(queries.GetTreeDagQuery))
		}},
		{queries.ListTreesQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return trees.HandleListTrees(ctx, q.(queries.ListTreesQuery))
		}},
		{queries.GetNodeQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return trees.HandleGetNode(ctx, q.(queries.GetNodeQuery))
		}},
		{queries.ListProjectsQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return projects.HandleListProjects(ctx, q.(queries.ListProjectsQuery))
		}},
		{queries.GetProjectQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return projects.HandleGetProject(ctx, q.(queries.GetProjectQuery))
		}},
		{queries.GetProjectModelQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return projects.HandleGetProjectModel(ctx, q.(queries.GetProjectModelQuery))
		}},
		{queries.ListModelsQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return projects.HandleListModels(ctx, q.(queries.ListModelsQuery))
		}},
		{queries.GetSelectedConfigQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return projects.HandleGetSelectedConfig(ctx, q.(queries.GetSelectedConfigQuery))
		}},
		{queries.GetConfigQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return projects.HandleGetConfig(ctx, q.(queries.GetConfigQuery))
		}},
		{queries.ListConfigsQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return projects.HandleListConfigs(ctx, q.(queries.ListConfigsQuery))
		}},
	}

	for _, r := range registrations {
		if err := b.Register(r.query, r.handler); err != nil {
			return err
		}
	}
	return nil
}
