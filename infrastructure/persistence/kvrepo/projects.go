package kvrepo

import (
	"context"
	"errors"

	"treeservice/application/ports"
	"treeservice/domain/core/entities"
	"treeservice/infrastructure/persistence/abstractions"
	pkgerrors "treeservice/pkg/errors"
)

type projectReader struct {
	r abstractions.Reader
}

func (pr projectReader) GetByID(ctx context.Context, projectID string) (*entities.Project, error) {
	item, err := pr.r.Get(ctx, projectKey(projectID))
	if errors.Is(err, abstractions.ErrNotFound) {
		return nil, pkgerrors.NewNotFoundError("project")
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get project", err)
	}
	return decodeProject(item)
}

func (pr projectReader) List(ctx context.Context) ([]*entities.Project, error) {
	items, err := pr.r.Query(ctx, projectsPartition, projectPrefix, abstractions.QueryOptions{})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list projects", err)
	}
	projects := make([]*entities.Project, 0, len(items))
	for _, item := range items {
		p, err := decodeProject(item)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func decodeProject(item abstractions.Item) (*entities.Project, error) {
	var rec projectRecord
	if err := decode(item, &rec); err != nil {
		return nil, pkgerrors.NewDatabaseError("get project", err)
	}
	return entities.ReconstructProject(rec.ID, rec.Title, rec.OwnerID, rec.SelectedConfigID, rec.SelectedModelID, rec.CreatedAt, rec.UpdatedAt, item.Version), nil
}

// ProjectRepository stores projects in a single partition
type ProjectRepository struct {
	projectReader
	store abstractions.Store
}

var _ ports.ProjectRepository = (*ProjectRepository)(nil)

func NewProjectRepository(store abstractions.Store) *ProjectRepository {
	return &ProjectRepository{projectReader: projectReader{r: store}, store: store}
}

// Save writes the project only if nobody saved it since it was read.
// A lost race returns a stale write error.
func (r *ProjectRepository) Save(ctx context.Context, project *entities.Project) error {
	item, err := encode(projectKey(project.ID()), entityProject, projectRecord{
		ID:               project.ID(),
		Title:            project.Title(),
		OwnerID:          project.OwnerID(),
		SelectedConfigID: project.SelectedConfigID(),
		SelectedModelID:  project.SelectedModelID(),
		CreatedAt:        project.CreatedAt(),
		UpdatedAt:        project.UpdatedAt(),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("save project", err)
	}
	err = r.store.PutIfVersion(ctx, item, project.Version())
	if errors.Is(err, abstractions.ErrConflict) {
		return pkgerrors.NewStaleWriteError("project")
	}
	if err != nil {
		return pkgerrors.NewDatabaseError("save project", err)
	}
	project.SetVersion(project.Version() + 1)
	return nil
}
