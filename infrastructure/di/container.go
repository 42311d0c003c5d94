package di

import (
	"go.uber.org/zap"

	"treeservice/application/commands/bus"
	querybus "treeservice/application/queries/bus"
	"treeservice/infrastructure/config"
	"treeservice/infrastructure/observability"
	"treeservice/infrastructure/persistence/abstractions"
	"treeservice/interfaces/http/rest"
	"treeservice/pkg/auth"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      abstractions.Store
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Metrics    *observability.Collector
	Limiter    *auth.KeyedLimiter
	Router     *rest.Router
}
