package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"treeservice/application/ports"
	"treeservice/domain/core/entities"
	"treeservice/domain/expression"
	"treeservice/domain/resolution"
	pkgerrors "treeservice/pkg/errors"
)

// ResolvedTree is a tree together with one resolution pass over it.
type ResolvedTree struct {
	Project *entities.Project
	Tree    *entities.Tree
	Result  *resolution.Result
}

// TreeResolver runs resolution passes against a consistent snapshot.
type TreeResolver struct {
	snapshots ports.Snapshotter
	metrics   ports.ResolutionMetrics
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewTreeResolver creates a new tree resolver
func NewTreeResolver(snapshots ports.Snapshotter, metrics ports.ResolutionMetrics, logger *zap.Logger) *TreeResolver {
	return &TreeResolver{
		snapshots: snapshots,
		metrics:   metrics,
		logger:    logger,
		tracer:    otel.Tracer("treeservice/resolution"),
	}
}

// ResolveTree loads the project, the tree, the selected configuration and
// the reachable nodes from one snapshot and resolves them.
func (s *TreeResolver) ResolveTree(ctx context.Context, ownerID, projectID, treeID string) (*ResolvedTree, error) {
	ctx, span := s.tracer.Start(ctx, "resolution.ResolveTree", trace.WithAttributes(
		attribute.String("project.id", projectID),
		attribute.String("tree.id", treeID),
	))
	defer span.End()

	start := time.Now()
	var out ResolvedTree
	err := s.snapshots.View(ctx, func(snap ports.Snapshot) error {
		project, err := LoadProject(ctx, snap.Projects(), ownerID, projectID)
		if err != nil {
			return err
		}
		tree, err := snap.Trees().GetByID(ctx, projectID, treeID)
		if err != nil {
			return err
		}
		evalCtx, err := selectContext(ctx, snap.Configurations(), project)
		if err != nil {
			return err
		}
		result, err := resolution.Resolve(ctx, snap.Nodes(), tree.RootNodeID(), evalCtx)
		if err != nil {
			return pkgerrors.NewDatabaseError("resolve tree", err)
		}

		out = ResolvedTree{Project: project, Tree: tree, Result: result}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	elapsed := time.Since(start)
	mode := string(out.Result.Mode())
	span.SetAttributes(
		attribute.String("resolution.mode", mode),
		attribute.Int("resolution.nodes", out.Result.Len()),
	)
	if s.metrics != nil {
		s.metrics.ObserveResolution(mode, out.Result.Len(), elapsed)
	}
	s.logger.Debug("Resolved tree",
		zap.String("projectID", projectID),
		zap.String("treeID", treeID),
		zap.String("mode", mode),
		zap.Int("nodes", out.Result.Len()),
		zap.Int("resolved", len(out.Result.ResolvedIDs())),
		zap.Duration("duration", elapsed),
	)
	return &out, nil
}

// selectContext binds the project's selected configuration. A project with
// no selection, or whose selection no longer loads, resolves unbound.
func selectContext(ctx context.Context, configs ports.ConfigurationReader, project *entities.Project) (expression.Context, error) {
	if !project.HasSelectedConfig() {
		return expression.Unbound(), nil
	}
	cfg, err := configs.GetByID(ctx, project.ID(), project.SelectedConfigID())
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return expression.Unbound(), nil
		}
		return expression.Context{}, err
	}
	return expression.Bound(cfg.Attributes()), nil
}

// LoadProject reads a project and hides it from users who do not own it.
// Projects without an owner, and callers without a user, skip the check.
func LoadProject(ctx context.Context, projects ports.ProjectReader, ownerID, projectID string) (*entities.Project, error) {
	project, err := projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !VisibleTo(project, ownerID) {
		return nil, pkgerrors.NewNotFoundError("project")
	}
	return project, nil
}

// VisibleTo reports whether ownerID may see project
func VisibleTo(project *entities.Project, ownerID string) bool {
	return ownerID == "" || project.OwnerID() == "" || project.OwnerID() == ownerID
}
