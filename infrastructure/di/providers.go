package di

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"treeservice/application/commands/bus"
	cmdhandlers "treeservice/application/commands/handlers"
	"treeservice/application/ports"
	querybus "treeservice/application/queries/bus"
	queryhandlers "treeservice/application/queries/handlers"
	"treeservice/application/services"
	"treeservice/infrastructure/config"
	"treeservice/infrastructure/messaging"
	"treeservice/infrastructure/observability"
	"treeservice/infrastructure/persistence/abstractions"
	badgerstore "treeservice/infrastructure/persistence/badger"
	dynamostore "treeservice/infrastructure/persistence/dynamodb"
	"treeservice/infrastructure/persistence/memory"
	"treeservice/interfaces/http/rest"
	"treeservice/pkg/auth"
	pkgerrors "treeservice/pkg/errors"
	pkgobservability "treeservice/pkg/observability"
)

const serviceName = "treeservice"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}

	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// AWSConfigLoader loads the shared AWS configuration on first use, so
// deployments that never touch AWS never resolve credentials.
type AWSConfigLoader func(ctx context.Context) (aws.Config, error)

// ProvideAWSConfigLoader creates a memoized AWS configuration loader
func ProvideAWSConfigLoader(cfg *config.Config) AWSConfigLoader {
	var (
		once   sync.Once
		awsCfg aws.Config
		err    error
	)
	return func(ctx context.Context) (aws.Config, error) {
		once.Do(func() {
			awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		})
		return awsCfg, err
	}
}

// ProvideStore opens the storage driver named by the configuration. The
// cleanup closes it.
func ProvideStore(ctx context.Context, cfg *config.Config, loadAWS AWSConfigLoader, logger *zap.Logger) (abstractions.Store, func(), error) {
	var (
		store abstractions.Store
		err   error
	)

	switch cfg.StorageDriver {
	case config.StorageMemory:
		store = memory.New()
	case config.StorageBadger:
		store, err = badgerstore.Open(badgerstore.Config{
			Path:       cfg.BadgerPath,
			InMemory:   cfg.BadgerInMemory,
			SyncWrites: cfg.IsProduction(),
			GCInterval: cfg.BadgerGC,
			Logger:     logger,
		})
	case config.StorageDynamoDB:
		store, err = openDynamoDB(ctx, cfg, loadAWS, logger)
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Storage ready", zap.String("driver", cfg.StorageDriver))
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}
	return store, cleanup, nil
}

func openDynamoDB(ctx context.Context, cfg *config.Config, loadAWS AWSConfigLoader, logger *zap.Logger) (abstractions.Store, error) {
	awsCfg, err := loadAWS(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
	store := dynamostore.NewStore(client, cfg.DynamoDBTable, logger)

	// A local endpoint (DynamoDB Local, LocalStack) starts empty.
	if cfg.DynamoDBEndpoint != "" {
		if err := store.EnsureTable(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// ProvideEventPublisher publishes to EventBridge when events are enabled
// and to the log otherwise.
func ProvideEventPublisher(ctx context.Context, cfg *config.Config, loadAWS AWSConfigLoader, logger *zap.Logger) (ports.EventPublisher, error) {
	if !cfg.EnableEvents {
		return messaging.NewLogPublisher(logger), nil
	}
	awsCfg, err := loadAWS(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return messaging.NewEventBridgePublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger), nil
}

// ProvideMetrics creates the Prometheus collector, or nil when metrics are off
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector(serviceName)
}

// ProvideResolutionMetrics exposes the collector to the application layer
func ProvideResolutionMetrics(c *observability.Collector) ports.ResolutionMetrics {
	if c == nil {
		return nil
	}
	return c
}

// ProvideTracer creates the tracer used by the command bus
func ProvideTracer() *pkgobservability.Tracer {
	return pkgobservability.NewTracer(serviceName)
}

// ProvideTreeResolver creates the resolution service
func ProvideTreeResolver(snapshots ports.Snapshotter, metrics ports.ResolutionMetrics, logger *zap.Logger) *services.TreeResolver {
	return services.NewTreeResolver(snapshots, metrics, logger)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	projectRepo ports.ProjectRepository,
	treeRepo ports.TreeRepository,
	nodeRepo ports.NodeRepository,
	configRepo ports.ConfigurationRepository,
	revisionRepo ports.RevisionRepository,
	resolver *services.TreeResolver,
	publisher ports.EventPublisher,
	metrics ports.ResolutionMetrics,
	tracer *pkgobservability.Tracer,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.TracingMiddleware(tracer),
		bus.LoggingMiddleware(logger),
	)

	err := cmdhandlers.Register(commandBus,
		cmdhandlers.NewProjectHandler(projectRepo, logger),
		cmdhandlers.NewTreeHandler(projectRepo, treeRepo, nodeRepo, revisionRepo, resolver, publisher, metrics, logger),
		cmdhandlers.NewConfigHandler(projectRepo, configRepo, publisher, logger),
	)
	if err != nil {
		return nil, fmt.Errorf("register command handlers: %w", err)
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	projectRepo ports.ProjectRepository,
	treeRepo ports.TreeRepository,
	nodeRepo ports.NodeRepository,
	configRepo ports.ConfigurationRepository,
	resolver *services.TreeResolver,
	tracer *pkgobservability.Tracer,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(
		querybus.TracingMiddleware(tracer),
		querybus.LoggingMiddleware(logger),
	)

	err := queryhandlers.Register(queryBus,
		queryhandlers.NewTreeQueryHandler(projectRepo, treeRepo, nodeRepo, resolver, logger),
		queryhandlers.NewProjectQueryHandler(projectRepo, configRepo),
	)
	if err != nil {
		return nil, fmt.Errorf("register query handlers: %w", err)
	}
	return queryBus, nil
}

// ProvideErrorHandler creates the HTTP error handler. Development builds
// echo unexpected error text to the client.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideJWTValidator creates the token validator, or nil when auth is off
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if !cfg.AuthEnabled {
		return nil, nil
	}
	var audience []string
	if cfg.JWTAudience != "" {
		audience = []string{cfg.JWTAudience}
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  audience,
	})
}

// ProvideRateLimiter creates the per-caller limiter, or nil when disabled
func ProvideRateLimiter(cfg *config.Config) *auth.KeyedLimiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	return auth.NewKeyedLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}

// ProvideReadinessCheck checks the store with a read
func ProvideReadinessCheck(store abstractions.Store) rest.ReadinessCheck {
	key := abstractions.Key{PK: "HEALTH", SK: "CHECK"}
	return func(ctx context.Context) error {
		_, err := store.Get(ctx, key)
		if err != nil && !errors.Is(err, abstractions.ErrNotFound) {
			return err
		}
		return nil
	}
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	validator *auth.JWTValidator,
	limiter *auth.KeyedLimiter,
	metrics *observability.Collector,
	ready rest.ReadinessCheck,
	logger *zap.Logger,
) *rest.Router {
	opts := rest.Options{
		Validator:    validator,
		Metrics:      metrics,
		Ready:        ready,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}
	if limiter != nil {
		opts.Limiter = limiter
	}
	if cfg.EnableCORS {
		opts.CORSOrigins = cfg.CORSAllowedOrigins
	}
	return rest.NewRouter(commandBus, queryBus, errs, logger, opts)
}
