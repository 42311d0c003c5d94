package kvrepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treeservice/application/ports"
	"treeservice/domain/core/entities"
	"treeservice/domain/core/valueobjects"
	"treeservice/infrastructure/persistence/memory"
	pkgerrors "treeservice/pkg/errors"
)

func mustNode(t *testing.T, id, condition string, children ...string) *entities.Node {
	t.Helper()
	n, err := entities.NewNode(id, "title "+id, "desc", valueobjects.Attributes{
		"likelihood": valueobjects.IntValue(3),
		"name":       valueobjects.StringValue("x"),
		"enabled":    valueobjects.BoolValue(true),
	}, condition, children)
	require.NoError(t, err)
	return n
}

func nodeID(t *testing.T, id string) valueobjects.NodeID {
	t.Helper()
	nid, err := valueobjects.NewNodeIDFromString(id)
	require.NoError(t, err)
	return nid
}

func TestNodeRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewNodeRepository(memory.New())

	a := mustNode(t, "a", "config['x'] == 1", "b", "c")
	b := mustNode(t, "b", "")
	require.NoError(t, repo.UpsertBatch(ctx, []*entities.Node{a, b}))

	got, err := repo.GetByID(ctx, nodeID(t, "a"))
	require.NoError(t, err)
	assert.True(t, a.Equal(got))
	assert.Equal(t, []string{"b", "c"}, got.ChildIDs())

	many, err := repo.GetMany(ctx, []valueobjects.NodeID{nodeID(t, "a"), nodeID(t, "b"), nodeID(t, "c")})
	require.NoError(t, err)
	assert.Len(t, many, 2)
	assert.True(t, b.Equal(many[nodeID(t, "b")]))

	_, err = repo.GetByID(ctx, nodeID(t, "c"))
	assert.True(t, pkgerrors.IsNotFound(err))

	replaced := mustNode(t, "a", "")
	require.NoError(t, repo.Upsert(ctx, replaced))
	got, err = repo.GetByID(ctx, nodeID(t, "a"))
	require.NoError(t, err)
	assert.Empty(t, got.ChildIDs())
	assert.False(t, got.HasCondition())
}

func TestProjectTreeAndConfigRepositories(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	projects := NewProjectRepository(store)
	trees := NewTreeRepository(store)
	configs := NewConfigurationRepository(store)

	p, err := entities.NewProject("Risks", "user-1")
	require.NoError(t, err)
	cfg, err := entities.NewConfiguration(p.ID(), "prod", valueobjects.Attributes{"x": valueobjects.IntValue(1)})
	require.NoError(t, err)
	require.NoError(t, p.SelectConfig(cfg))
	require.NoError(t, projects.Save(ctx, p))
	require.NoError(t, configs.Save(ctx, cfg))

	tree, err := entities.NewTree(p.ID(), "Main")
	require.NoError(t, err)
	tree.Rewrite("Main", "root", []string{"root"}, 1)
	require.NoError(t, trees.Save(ctx, tree))

	gotProject, err := projects.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, "Risks", gotProject.Title())
	assert.Equal(t, "user-1", gotProject.OwnerID())
	assert.Equal(t, cfg.ID(), gotProject.SelectedConfigID())

	list, err := projects.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	gotTree, err := trees.GetByID(ctx, p.ID(), tree.ID())
	require.NoError(t, err)
	assert.Equal(t, "root", gotTree.RootNodeID())

	_, err = trees.GetByID(ctx, "other-project", tree.ID())
	assert.True(t, pkgerrors.IsNotFound(err))

	treeList, err := trees.ListByProject(ctx, p.ID())
	require.NoError(t, err)
	assert.Len(t, treeList, 1)

	gotCfg, err := configs.GetByID(ctx, p.ID(), cfg.ID())
	require.NoError(t, err)
	assert.True(t, cfg.Attributes().Equal(gotCfg.Attributes()))
	assert.Equal(t, "prod", gotCfg.Name())

	cfgList, err := configs.ListByProject(ctx, p.ID())
	require.NoError(t, err)
	assert.Len(t, cfgList, 1)
}

func TestRevisionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRevisionRepository(memory.New())

	for v := 1; v <= 12; v++ {
		rev := entities.NewTreeRevision("t1", v, "title", "root", []*entities.Node{mustNode(t, "root", "")})
		require.NoError(t, repo.Append(ctx, rev))
	}

	latest, err := repo.Latest(ctx, "t1", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 12, latest[0].Version())
	assert.Equal(t, 11, latest[1].Version())
	require.Len(t, latest[0].Nodes(), 1)
	assert.Equal(t, "root", latest[0].Nodes()[0].ID().String())

	require.NoError(t, repo.Delete(ctx, "t1", 12))
	latest, err = repo.Latest(ctx, "t1", 1)
	require.NoError(t, err)
	assert.Equal(t, 11, latest[0].Version())

	none, err := repo.Latest(ctx, "t2", 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSnapshotter(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, NewNodeRepository(store).Upsert(ctx, mustNode(t, "a", "")))

	err := NewSnapshotter(store).View(ctx, func(s ports.Snapshot) error {
		n, err := s.Nodes().GetByID(ctx, nodeID(t, "a"))
		require.NoError(t, err)
		assert.Equal(t, "title a", n.Title())

		_, err = s.Projects().GetByID(ctx, "missing")
		assert.True(t, pkgerrors.IsNotFound(err))
		return nil
	})
	require.NoError(t, err)
}

func TestProjectRepository_RejectsStaleSave(t *testing.T) {
	ctx := context.Background()
	projects := NewProjectRepository(memory.New())

	p, err := entities.NewProject("Risks", "user-1")
	require.NoError(t, err)
	require.NoError(t, projects.Save(ctx, p))
	assert.Equal(t, int64(1), p.Version())

	first, err := projects.GetByID(ctx, p.ID())
	require.NoError(t, err)
	second, err := projects.GetByID(ctx, p.ID())
	require.NoError(t, err)

	require.NoError(t, first.Rename("first"))
	require.NoError(t, projects.Save(ctx, first))

	require.NoError(t, second.Rename("second"))
	err = projects.Save(ctx, second)
	assert.True(t, pkgerrors.IsStaleWrite(err))

	got, err := projects.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title())
	assert.Equal(t, int64(2), got.Version())
}
