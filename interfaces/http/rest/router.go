package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"treeservice/application/commands/bus"
	querybus "treeservice/application/queries/bus"
	"treeservice/infrastructure/observability"
	"treeservice/interfaces/http/rest/handlers"
	"treeservice/interfaces/http/rest/middleware"
	"treeservice/pkg/auth"
	"treeservice/pkg/common"
	pkgerrors "treeservice/pkg/errors"
)

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// DefaultMaxBodyBytes bounds request bodies when Options leaves it unset
const DefaultMaxBodyBytes int64 = 4 << 20

// Options holds the optional pieces of the router
type Options struct {
	// Validator enables bearer token auth; nil falls back to X-User-ID
	Validator *auth.JWTValidator

	// Limiter rate limits API routes; nil disables it
	Limiter auth.RateLimiter

	// Metrics records HTTP metrics and serves /metrics; nil disables both
	Metrics *observability.Collector

	// CORSOrigins enables CORS for the listed origins when non-empty
	CORSOrigins []string

	// MaxBodyBytes caps request bodies; zero uses DefaultMaxBodyBytes
	MaxBodyBytes int64

	Ready ReadinessCheck
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
	opts       Options
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
	opts Options,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errs,
		logger:     logger,
		opts:       opts,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	var observer middleware.HTTPObserver
	if rt.opts.Metrics != nil {
		observer = rt.opts.Metrics
	}

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger, observer))
	router.Use(middleware.Recover(rt.errors, rt.logger))

	if len(rt.opts.CORSOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.UserIDHeader},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: !containsWildcard(rt.opts.CORSOrigins),
			MaxAge:           300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.Handle(w, r, pkgerrors.NewNotFoundError("route"))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		common.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.Metrics.Handler())
	}

	projects := handlers.NewProjectHandler(rt.commandBus, rt.queryBus, rt.errors)
	trees := handlers.NewTreeHandler(rt.commandBus, rt.queryBus, rt.errors)
	configs := handlers.NewConfigHandler(rt.commandBus, rt.queryBus, rt.errors)

	router.Group(func(r chi.Router) {
		if rt.opts.Validator != nil {
			r.Use(middleware.Authenticate(rt.opts.Validator, rt.errors, rt.logger))
		} else {
			r.Use(middleware.Identify())
		}
		if rt.opts.Limiter != nil {
			r.Use(middleware.RateLimit(rt.opts.Limiter, rt.errors, rt.logger))
		}
		maxBody := rt.opts.MaxBodyBytes
		if maxBody <= 0 {
			maxBody = DefaultMaxBodyBytes
		}
		r.Use(middleware.LimitBody(maxBody))

		r.Get("/models", projects.ListModels)
		r.Get("/nodes/{nodeID}", trees.GetNode)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projects.ListProjects)
			r.Post("/", projects.CreateProject)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", projects.GetProject)
				r.Put("/", projects.UpdateProject)

				r.Get("/model", projects.GetModel)
				r.Put("/model", projects.SelectModel)

				r.Get("/config", configs.GetSelectedConfig)
				r.Put("/config", configs.SelectConfig)

				r.Route("/configs", func(r chi.Router) {
					r.Get("/", configs.ListConfigs)
					r.Post("/", configs.CreateConfig)
					r.Get("/{configID}", configs.GetConfig)
					r.Put("/{configID}", configs.UpdateConfig)
				})

				r.Route("/trees", func(r chi.Router) {
					r.Get("/", trees.ListTrees)
					r.Post("/", trees.CreateTree)
					r.Get("/{treeID}", trees.GetTree)
					r.Put("/{treeID}", trees.WriteTree)
					r.Put("/{treeID}/undo", trees.UndoTree)
					r.Get("/{treeID}/dag/{direction}", trees.GetDag)
				})
			})
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if rt.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.opts.Ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
