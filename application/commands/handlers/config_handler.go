package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"treeservice/application/commands"
	"treeservice/application/ports"
	"treeservice/application/queries"
	"treeservice/application/services"
	"treeservice/domain/core/entities"
)

// ConfigHandler handles configuration commands
type ConfigHandler struct {
	projectRepo ports.ProjectRepository
	configRepo  ports.ConfigurationRepository
	publisher   ports.EventPublisher
	logger      *zap.Logger
}

// NewConfigHandler creates a new configuration handler
func NewConfigHandler(
	projectRepo ports.ProjectRepository,
	configRepo ports.ConfigurationRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ConfigHandler {
	return &ConfigHandler{
		projectRepo: projectRepo,
		configRepo:  configRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

// HandleCreate executes the create configuration command
func (h *ConfigHandler) HandleCreate(ctx context.Context, cmd commands.CreateConfigCommand) (*queries.ConfigView, error) {
	if _, err := services.LoadProject(ctx, h.projectRepo, cmd.UserID, cmd.ProjectID); err != nil {
		return nil, err
	}

	cfg, err := entities.NewConfiguration(cmd.ProjectID, cmd.Name, cmd.Attributes)
	if err != nil {
		return nil, err
	}

	if err := h.configRepo.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save configuration: %w", err)
	}

	h.logger.Info("Configuration created",
		zap.String("projectID", cmd.ProjectID),
		zap.String("configID", cfg.ID()),
		zap.Int("attributes", len(cmd.Attributes)),
	)

	view := queries.NewConfigView(cfg)
	return &view, nil
}

// HandleUpdate executes the replace configuration command
func (h *ConfigHandler) HandleUpdate(ctx context.Context, cmd commands.UpdateConfigCommand) (*queries.ConfigView, error) {
	if _, err := services.LoadProject(ctx, h.projectRepo, cmd.UserID, cmd.ProjectID); err != nil {
		return nil, err
	}

	cfg, err := h.configRepo.GetByID(ctx, cmd.ProjectID, cmd.ConfigID)
	if err != nil {
		return nil, err
	}

	if err := cfg.Replace(cmd.Name, cmd.Attributes); err != nil {
		return nil, err
	}

	if err := h.configRepo.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save configuration: %w", err)
	}

	view := queries.NewConfigView(cfg)
	return &view, nil
}

// HandleSelect executes the select configuration command. The configuration
// is looked up under the project, so one from another project is not found.
func (h *ConfigHandler) HandleSelect(ctx context.Context, cmd commands.SelectConfigCommand) (*queries.ConfigView, error) {
	var cfg *entities.Configuration
	project, err := updateProject(ctx, h.projectRepo, h.logger, cmd.UserID, cmd.ProjectID, func(p *entities.Project) error {
		var err error
		if cfg, err = h.configRepo.GetByID(ctx, cmd.ProjectID, cmd.ConfigID); err != nil {
			return err
		}
		return p.SelectConfig(cfg)
	})
	if err != nil {
		return nil, err
	}

	publishEvents(ctx, h.publisher, h.logger, project)

	h.logger.Info("Configuration selected",
		zap.String("projectID", project.ID()),
		zap.String("configID", cfg.ID()),
	)

	view := queries.NewConfigView(cfg)
	return &view, nil
}
