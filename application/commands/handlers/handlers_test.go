package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"treeservice/application/commands"
	"treeservice/application/ports"
	"treeservice/application/queries"
	"treeservice/application/services"
	"treeservice/domain/core/entities"
	"treeservice/domain/core/valueobjects"
	"treeservice/domain/events"
	"treeservice/infrastructure/persistence/kvrepo"
	"treeservice/infrastructure/persistence/memory"
	pkgerrors "treeservice/pkg/errors"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// failingRevisions fails every Append
type failingRevisions struct {
	ports.RevisionRepository
}

func (failingRevisions) Append(context.Context, *entities.TreeRevision) error {
	return errors.New("disk full")
}

// pausingProjects holds the first caller of GetByID after its read until
// release is closed, so another write can land in between.
type pausingProjects struct {
	ports.ProjectRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func newPausingProjects(repo ports.ProjectRepository) *pausingProjects {
	return &pausingProjects{ProjectRepository: repo, read: make(chan struct{}), release: make(chan struct{})}
}

func (p *pausingProjects) GetByID(ctx context.Context, projectID string) (*entities.Project, error) {
	project, err := p.ProjectRepository.GetByID(ctx, projectID)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return project, err
}

type fixture struct {
	projects  *kvrepo.ProjectRepository
	trees     *kvrepo.TreeRepository
	nodes     *kvrepo.NodeRepository
	configs   *kvrepo.ConfigurationRepository
	revisions ports.RevisionRepository
	resolver  *services.TreeResolver
	publisher *mockPublisher
}

func newFixture() *fixture {
	store := memory.New()
	return &fixture{
		projects:  kvrepo.NewProjectRepository(store),
		trees:     kvrepo.NewTreeRepository(store),
		nodes:     kvrepo.NewNodeRepository(store),
		configs:   kvrepo.NewConfigurationRepository(store),
		revisions: kvrepo.NewRevisionRepository(store),
		resolver:  services.NewTreeResolver(kvrepo.NewSnapshotter(store), nil, zap.NewNop()),
		publisher: &mockPublisher{},
	}
}

func (f *fixture) treeHandler() *TreeHandler {
	return NewTreeHandler(f.projects, f.trees, f.nodes, f.revisions, f.resolver, f.publisher, nil, zap.NewNop())
}

func (f *fixture) seed(t *testing.T) (projectID, treeID string) {
	t.Helper()
	ctx := context.Background()
	p, err := NewProjectHandler(f.projects, zap.NewNop()).HandleCreate(ctx, commands.CreateProjectCommand{Title: "p"})
	require.NoError(t, err)

	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	tr, err := f.treeHandler().HandleCreate(ctx, commands.CreateTreeCommand{ProjectID: p.ID, Title: "t"})
	require.NoError(t, err)
	return p.ID, tr.ID
}

func writeCmd(projectID, treeID, title, root string, nodes ...commands.NodeInput) commands.WriteTreeCommand {
	return commands.WriteTreeCommand{ProjectID: projectID, TreeID: treeID, Title: title, RootNodeID: root, Nodes: nodes}
}

func TestTreeHandler_WritePublishesAndEchoesPayload(t *testing.T) {
	f := newFixture()
	projectID, treeID := f.seed(t)

	f.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(evts []events.DomainEvent) bool {
		return len(evts) == 1 && evts[0].GetEventType() == events.TypeTreeWritten
	})).Return(nil).Once()

	view, err := f.treeHandler().HandleWrite(context.Background(), writeCmd(projectID, treeID, "t", "a",
		commands.NodeInput{ID: "a", ConditionAttribute: "1 == 1", Children: []string{"b"}},
		commands.NodeInput{ID: "b"},
	))
	require.NoError(t, err)
	require.Len(t, view.Nodes, 2)
	assert.Equal(t, "a", view.RootNodeID)
	f.publisher.AssertExpectations(t)

	// A repeated id keeps its last definition
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	view, err = f.treeHandler().HandleWrite(context.Background(), writeCmd(projectID, treeID, "t", "a",
		commands.NodeInput{ID: "a", Title: "first"},
		commands.NodeInput{ID: "a", Title: "second"},
	))
	require.NoError(t, err)
	require.Len(t, view.Nodes, 1)
	assert.Equal(t, "second", view.Nodes[0].Title)
}

func TestTreeHandler_PublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture()
	projectID, treeID := f.seed(t)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	_, err := f.treeHandler().HandleWrite(context.Background(), writeCmd(projectID, treeID, "t", ""))
	assert.NoError(t, err)
}

func TestTreeHandler_WriteRollsBackTreeWhenHistoryFails(t *testing.T) {
	f := newFixture()
	projectID, treeID := f.seed(t)
	f.revisions = failingRevisions{f.revisions}

	_, err := f.treeHandler().HandleWrite(context.Background(), writeCmd(projectID, treeID, "renamed", "x",
		commands.NodeInput{ID: "x"},
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	tree, err := f.trees.GetByID(context.Background(), projectID, treeID)
	require.NoError(t, err)
	assert.Equal(t, "t", tree.Title())
	assert.Empty(t, tree.RootNodeID())

	// Nodes are global and idempotent, so they stay
	id, err := valueobjects.NewNodeIDFromString("x")
	require.NoError(t, err)
	_, err = f.nodes.GetByID(context.Background(), id)
	assert.NoError(t, err)
}

func TestTreeHandler_Undo(t *testing.T) {
	f := newFixture()
	projectID, treeID := f.seed(t)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	h := f.treeHandler()
	ctx := context.Background()

	_, err := h.HandleUndo(ctx, commands.UndoTreeCommand{ProjectID: projectID, TreeID: treeID})
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeConflict))

	_, err = h.HandleWrite(ctx, writeCmd(projectID, treeID, "one", "n", commands.NodeInput{ID: "n", Title: "v1"}))
	require.NoError(t, err)
	_, err = h.HandleWrite(ctx, writeCmd(projectID, treeID, "two", "n", commands.NodeInput{ID: "n", Title: "v2"}))
	require.NoError(t, err)

	view, err := h.HandleUndo(ctx, commands.UndoTreeCommand{ProjectID: projectID, TreeID: treeID})
	require.NoError(t, err)
	assert.Equal(t, "one", view.Title)
	require.Len(t, view.Nodes, 1)
	assert.Equal(t, "v1", view.Nodes[0].Title)

	_, err = h.HandleUndo(ctx, commands.UndoTreeCommand{ProjectID: projectID, TreeID: treeID})
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeConflict), "only one write is left")
}

func TestConfigHandler_SelectConfig(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p, err := NewProjectHandler(f.projects, zap.NewNop()).HandleCreate(ctx, commands.CreateProjectCommand{Title: "p", UserID: "u1"})
	require.NoError(t, err)

	h := NewConfigHandler(f.projects, f.configs, f.publisher, zap.NewNop())
	cfg, err := h.HandleCreate(ctx, commands.CreateConfigCommand{
		UserID:     "u1",
		ProjectID:  p.ID,
		Attributes: valueobjects.Attributes{"k": valueobjects.IntValue(1)},
	})
	require.NoError(t, err)

	f.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(evts []events.DomainEvent) bool {
		return len(evts) == 1 && evts[0].GetEventType() == events.TypeConfigSelected
	})).Return(nil).Once()

	selected, err := h.HandleSelect(ctx, commands.SelectConfigCommand{UserID: "u1", ProjectID: p.ID, ConfigID: cfg.ID})
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, selected.ID)
	f.publisher.AssertExpectations(t)

	_, err = h.HandleSelect(ctx, commands.SelectConfigCommand{UserID: "u2", ProjectID: p.ID, ConfigID: cfg.ID})
	assert.True(t, pkgerrors.IsNotFound(err), "other users cannot see the project")

	_, err = h.HandleSelect(ctx, commands.SelectConfigCommand{UserID: "u1", ProjectID: p.ID, ConfigID: "nope"})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestProjectWrites_InterleavedRenameKeepsSelection(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	p, err := NewProjectHandler(f.projects, zap.NewNop()).HandleCreate(ctx, commands.CreateProjectCommand{Title: "p", UserID: "u1"})
	require.NoError(t, err)
	configs := NewConfigHandler(f.projects, f.configs, f.publisher, zap.NewNop())
	cfg, err := configs.HandleCreate(ctx, commands.CreateConfigCommand{UserID: "u1", ProjectID: p.ID})
	require.NoError(t, err)

	paused := newPausingProjects(f.projects)
	type renameResult struct {
		view *queries.ProjectView
		err  error
	}
	done := make(chan renameResult, 1)
	go func() {
		view, err := NewProjectHandler(paused, zap.NewNop()).HandleUpdate(ctx, commands.UpdateProjectCommand{
			UserID: "u1", ProjectID: p.ID, Title: "renamed",
		})
		done <- renameResult{view, err}
	}()

	<-paused.read
	_, err = configs.HandleSelect(ctx, commands.SelectConfigCommand{UserID: "u1", ProjectID: p.ID, ConfigID: cfg.ID})
	require.NoError(t, err)
	close(paused.release)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "renamed", res.view.Title)
	assert.Equal(t, cfg.ID, res.view.SelectedConfigID)

	got, err := f.projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title())
	assert.Equal(t, cfg.ID, got.SelectedConfigID())
}

func TestProjectWrites_InterleavedModelSelectKeepsConfig(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	projects := NewProjectHandler(f.projects, zap.NewNop())
	p, err := projects.HandleCreate(ctx, commands.CreateProjectCommand{Title: "p"})
	require.NoError(t, err)
	cfg, err := NewConfigHandler(f.projects, f.configs, f.publisher, zap.NewNop()).
		HandleCreate(ctx, commands.CreateConfigCommand{ProjectID: p.ID})
	require.NoError(t, err)

	// The select reads first and pauses; the model change lands meanwhile
	paused := newPausingProjects(f.projects)
	done := make(chan error, 1)
	go func() {
		_, err := NewConfigHandler(paused, f.configs, f.publisher, zap.NewNop()).
			HandleSelect(ctx, commands.SelectConfigCommand{ProjectID: p.ID, ConfigID: cfg.ID})
		done <- err
	}()

	<-paused.read
	model := entities.Models()[1].ID
	_, err = projects.HandleSelectModel(ctx, commands.SelectModelCommand{ProjectID: p.ID, ModelID: model})
	require.NoError(t, err)
	close(paused.release)
	require.NoError(t, <-done)

	got, err := f.projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model, got.SelectedModelID())
	assert.Equal(t, cfg.ID, got.SelectedConfigID())
}

func TestUpdateProject_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p, err := NewProjectHandler(f.projects, zap.NewNop()).HandleCreate(ctx, commands.CreateProjectCommand{Title: "p"})
	require.NoError(t, err)

	attempts := 0
	_, err = updateProject(ctx, f.projects, zap.NewNop(), "", p.ID, func(project *entities.Project) error {
		attempts++
		// Another writer always lands between this read and the save
		other, err := f.projects.GetByID(ctx, p.ID)
		require.NoError(t, err)
		require.NoError(t, other.Rename("other"))
		require.NoError(t, f.projects.Save(ctx, other))
		return project.Rename("mine")
	})
	assert.True(t, pkgerrors.IsStaleWrite(err))
	assert.Equal(t, maxProjectWriteAttempts, attempts)
}
