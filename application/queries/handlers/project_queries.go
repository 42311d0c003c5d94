package handlers

import (
	"context"
	"fmt"

	"treeservice/application/ports"
	"treeservice/application/queries"
	"treeservice/application/services"
	"treeservice/domain/core/entities"
	"treeservice/domain/core/valueobjects"
	pkgerrors "treeservice/pkg/errors"
)

// ProjectQueryHandler answers project, model and configuration reads
type ProjectQueryHandler struct {
	projectRepo ports.ProjectRepository
	configRepo  ports.ConfigurationRepository
}

// NewProjectQueryHandler creates a new project query handler
func NewProjectQueryHandler(projectRepo ports.ProjectRepository, configRepo ports.ConfigurationRepository) *ProjectQueryHandler {
	return &ProjectQueryHandler{
		projectRepo: projectRepo,
		configRepo:  configRepo,
	}
}

// HandleListProjects lists projects visible to the caller
func (h *ProjectQueryHandler) HandleListProjects(ctx context.Context, q queries.ListProjectsQuery) (*queries.ProjectList, error) {
	projects, err := h.projectRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	out := &queries.ProjectList{Projects: make([]queries.ProjectView, 0, len(projects))}
	for _, p := range projects {
		if services.VisibleTo(p, q.UserID) {
			out.Projects = append(out.Projects, queries.NewProjectView(p))
		}
	}
	return out, nil
}

// HandleGetProject reads one project
func (h *ProjectQueryHandler) HandleGetProject(ctx context.Context, q queries.GetProjectQuery) (*queries.ProjectView, error) {
	project, err := services.LoadProject(ctx, h.projectRepo, q.UserID, q.ProjectID)
	if err != nil {
		return nil, err
	}
	view := queries.NewProjectView(project)
	return &view, nil
}

// HandleGetProjectModel reads the model a project uses
func (h *ProjectQueryHandler) HandleGetProjectModel(ctx context.Context, q queries.GetProjectModelQuery) (*queries.ModelSelection, error) {
	project, err := services.LoadProject(ctx, h.projectRepo, q.UserID, q.ProjectID)
	if err != nil {
		return nil, err
	}
	return &queries.ModelSelection{ModelID: project.SelectedModelID()}, nil
}

// HandleListModels returns the model catalog
func (h *ProjectQueryHandler) HandleListModels(_ context.Context, _ queries.ListModelsQuery) (*queries.ModelList, error) {
	return &queries.ModelList{Models: entities.Models()}, nil
}

// HandleGetSelectedConfig returns the active configuration. Unlike
// resolution, which degrades silently, this fails when nothing is selected.
func (h *ProjectQueryHandler) HandleGetSelectedConfig(ctx context.Context, q queries.GetSelectedConfigQuery) (*queries.ConfigView, error) {
	project, err := services.LoadProject(ctx, h.projectRepo, q.UserID, q.ProjectID)
	if err != nil {
		return nil, err
	}
	if !project.HasSelectedConfig() {
		return nil, pkgerrors.NewNoConfigSelectedError(project.ID())
	}
	cfg, err := h.configRepo.GetByID(ctx, project.ID(), project.SelectedConfigID())
	if err != nil {
		return nil, err
	}
	view := queries.NewConfigView(cfg)
	return &view, nil
}

// HandleGetConfig reads one configuration
func (h *ProjectQueryHandler) HandleGetConfig(ctx context.Context, q queries.GetConfigQuery) (*queries.ConfigView, error) {
	if _, err := services.LoadProject(ctx, h.projectRepo, q.UserID, q.ProjectID); err != nil {
		return nil, err
	}
	cfg, err := h.configRepo.GetByID(ctx, q.ProjectID, q.ConfigID)
	if err != nil {
		return nil, err
	}
	view := queries.NewConfigView(cfg)
	return &view, nil
}

// HandleListConfigs lists configuration ids
func (h *ProjectQueryHandler) HandleListConfigs(ctx context.Context, q queries.ListConfigsQuery) (*queries.ConfigIDList, error) {
	if _, err := services.LoadProject(ctx, h.projectRepo, q.UserID, q.ProjectID); err != nil {
		return nil, err
	}
	configs, err := h.configRepo.ListByProject(ctx, q.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	out := &queries.ConfigIDList{IDs: make([]string, 0, len(configs))}
	for _, c := range configs {
		out.IDs = append(out.IDs, c.ID())
	}
	return out, nil
}

func parseNodeID(raw string) (valueobjects.NodeID, error) {
	id, err := valueobjects.NewNodeIDFromString(raw)
	if err != nil {
		return valueobjects.NodeID{}, pkgerrors.NewValidationError(err.Error())
	}
	return id, nil
}
