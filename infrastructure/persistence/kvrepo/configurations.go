package kvrepo

import (
	"context"
	"errors"

	"treeservice/application/ports"
	"treeservice/domain/core/entities"
	"treeservice/infrastructure/persistence/abstractions"
	pkgerrors "treeservice/pkg/errors"
)

type configReader struct {
	r abstractions.Reader
}

func (cr configReader) GetByID(ctx context.Context, projectID, configID string) (*entities.Configuration, error) {
	item, err := cr.r.Get(ctx, configKey(projectID, configID))
	if errors.Is(err, abstractions.ErrNotFound) {
		return nil, pkgerrors.NewNotFoundError("config")
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get config", err)
	}
	return decodeConfig(item)
}

func (cr configReader) ListByProject(ctx context.Context, projectID string) ([]*entities.Configuration, error) {
	items, err := cr.r.Query(ctx, projectPrefix+projectID, configPrefix, abstractions.QueryOptions{})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list configs", err)
	}
	configs := make([]*entities.Configuration, 0, len(items))
	for _, item := range items {
		c, err := decodeConfig(item)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, nil
}

func decodeConfig(item abstractions.Item) (*entities.Configuration, error) {
	var rec configRecord
	if err := decode(item, &rec); err != nil {
		return nil, pkgerrors.NewDatabaseError("get config", err)
	}
	return entities.ReconstructConfiguration(rec.ID, rec.ProjectID, rec.Name, rec.Attributes, rec.UpdatedAt), nil
}

// ConfigurationRepository stores configurations under their project
type ConfigurationRepository struct {
	configReader
	store abstractions.Store
}

var _ ports.ConfigurationRepository = (*ConfigurationRepository)(nil)

func NewConfigurationRepository(store abstractions.Store) *ConfigurationRepository {
	return &ConfigurationRepository{configReader: configReader{r: store}, store: store}
}

func (r *ConfigurationRepository) Save(ctx context.Context, cfg *entities.Configuration) error {
	item, err := encode(configKey(cfg.ProjectID(), cfg.ID()), entityConfig, configRecord{
		ID:         cfg.ID(),
		ProjectID:  cfg.ProjectID(),
		Name:       cfg.Name(),
		Attributes: cfg.Attributes(),
		UpdatedAt:  cfg.UpdatedAt(),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("save config", err)
	}
	if err := r.store.Put(ctx, item); err != nil {
		return pkgerrors.NewDatabaseError("save config", err)
	}
	return nil
}
