package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"treeservice/application/ports"
	"treeservice/application/services"
	"treeservice/domain/core/entities"
	pkgerrors "treeservice/pkg/errors"
)

// maxProjectWriteAttempts bounds retries of a project read-modify-write
const maxProjectWriteAttempts = 5

// updateProject loads the project, applies mutate and saves it. A save that
// lost a race with another writer is retried from a fresh read, so two
// changes to different fields of one project both land.
func updateProject(
	ctx context.Context,
	repo ports.ProjectRepository,
	logger *zap.Logger,
	userID, projectID string,
	mutate func(*entities.Project) error,
) (*entities.Project, error) {
	var lastErr error
	for attempt := 1; attempt <= maxProjectWriteAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		project, err := services.LoadProject(ctx, repo, userID, projectID)
		if err != nil {
			return nil, err
		}
		if err := mutate(project); err != nil {
			return nil, err
		}

		err = repo.Save(ctx, project)
		if err == nil {
			return project, nil
		}
		if !pkgerrors.IsStaleWrite(err) {
			return nil, fmt.Errorf("failed to save project: %w", err)
		}

		lastErr = err
		logger.Debug("Project write raced, retrying",
			zap.String("projectID", projectID),
			zap.Int("attempt", attempt),
		)
	}
	return nil, lastErr
}
