//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"treeservice/application/ports"
	"treeservice/infrastructure/config"
	"treeservice/infrastructure/persistence/kvrepo"
)

// RepositorySet binds the key-value repositories to their ports
var RepositorySet = wire.NewSet(
	kvrepo.NewProjectRepository,
	kvrepo.NewTreeRepository,
	kvrepo.NewNodeRepository,
	kvrepo.NewConfigurationRepository,
	kvrepo.NewRevisionRepository,
	kvrepo.NewSnapshotter,
	wire.Bind(new(ports.ProjectRepository), new(*kvrepo.ProjectRepository)),
	wire.Bind(new(ports.TreeRepository), new(*kvrepo.TreeRepository)),
	wire.Bind(new(ports.NodeRepository), new(*kvrepo.NodeRepository)),
	wire.Bind(new(ports.ConfigurationRepository), new(*kvrepo.ConfigurationRepository)),
	wire.Bind(new(ports.RevisionRepository), new(*kvrepo.RevisionRepository)),
	wire.Bind(new(ports.Snapshotter), new(*kvrepo.Snapshotter)),
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfigLoader,
	ProvideStore,
	RepositorySet,
	ProvideEventPublisher,
	ProvideMetrics,
	ProvideResolutionMetrics,
	ProvideTracer,
	ProvideTreeResolver,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideErrorHandler,
	ProvideJWTValidator,
	ProvideRateLimiter,
	ProvideReadinessCheck,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
