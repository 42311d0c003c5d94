package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"treeservice/application/commands"
	"treeservice/application/ports"
	"treeservice/application/queries"
	"treeservice/domain/core/entities"
)

// ProjectHandler handles project commands
type ProjectHandler struct {
	projectRepo ports.ProjectRepository
	logger      *zap.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectRepo ports.ProjectRepository, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectRepo: projectRepo,
		logger:      logger,
	}
}

// HandleCreate executes the create project command
func (h *ProjectHandler) HandleCreate(ctx context.Context, cmd commands.CreateProjectCommand) (*queries.ProjectView, error) {
	project, err := entities.NewProject(cmd.Title, cmd.UserID)
	if err != nil {
		return nil, err
	}

	if err := h.projectRepo.Save(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}

	h.logger.Info("Project created",
		zap.String("projectID", project.ID()),
		zap.String("userID", cmd.UserID),
	)

	view := queries.NewProjectView(project)
	return &view, nil
}

// HandleUpdate executes the rename project command
func (h *ProjectHandler) HandleUpdate(ctx context.Context, cmd commands.UpdateProjectCommand) (*queries.ProjectView, error) {
	project, err := updateProject(ctx, h.projectRepo, h.logger, cmd.UserID, cmd.ProjectID, func(p *entities.Project) error {
		return p.Rename(cmd.Title)
	})
	if err != nil {
		return nil, err
	}

	view := queries.NewProjectView(project)
	return &view, nil
}

// HandleSelectModel executes the select model command
func (h *ProjectHandler) HandleSelectModel(ctx context.Context, cmd commands.SelectModelCommand) (*queries.ModelSelection, error) {
	project, err := updateProject(ctx, h.projectRepo, h.logger, cmd.UserID, cmd.ProjectID, func(p *entities.Project) error {
		return p.SelectModel(cmd.ModelID)
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("Project model selected",
		zap.String("projectID", project.ID()),
		zap.String("modelID", cmd.ModelID),
	)

	return &queries.ModelSelection{ModelID: project.SelectedModelID()}, nil
}
