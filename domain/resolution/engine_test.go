package resolution

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treeservice/domain/core/entities"
	"treeservice/domain/core/valueobjects"
	"treeservice/domain/expression"
)

func node(t *testing.T, id, condition string, children ...string) *entities.Node {
	t.Helper()
	n, err := entities.NewNode(id, "node "+id, "", nil, condition, children)
	require.NoError(t, err)
	return n
}

func loaderOf(nodes ...*entities.Node) MapLoader {
	m := make(MapLoader, len(nodes))
	for _, n := range nodes {
		m[n.ID()] = n
	}
	return m
}

func nid(s string) valueobjects.NodeID {
	id, _ := valueobjects.NewNodeIDFromString(s)
	return id
}

func resolvedSet(res *Result) []string {
	out := []string{}
	for _, id := range res.ResolvedIDs() {
		out = append(out, id.String())
	}
	return out
}

func scenarioNodes(t *testing.T) MapLoader {
	return loaderOf(
		node(t, "0", "150 == 150", "1", "2", "3", "4"),
		node(t, "1", ""),
		node(t, "2", ""),
		node(t, "3", "125 == 150"),
		node(t, "4", "config['otttther'] == true"),
	)
}

func scenarioConfig() expression.Context {
	return expression.Bound(valueobjects.Attributes{
		"test":  valueobjects.StringValue("150"),
		"other": valueobjects.BoolValue(true),
	})
}

func TestResolve_Scenario(t *testing.T) {
	res, err := Resolve(context.Background(), scenarioNodes(t), "0", scenarioConfig())
	require.NoError(t, err)

	assert.Equal(t, ModeBound, res.Mode())
	assert.Equal(t, 5, res.Len())
	assert.Equal(t, []string{"0", "1", "2"}, resolvedSet(res))
	assert.False(t, res.Resolved(nid("3")))
	assert.False(t, res.Resolved(nid("4")))

	cond, ok := res.Condition(nid("4"))
	require.True(t, ok)
	assert.True(t, cond.IsResolved(), "a missing key is a local false, not a failure")
}

func TestResolve_UnboundIsAllFalse(t *testing.T) {
	res, err := Resolve(context.Background(), scenarioNodes(t), "0", expression.Unbound())
	require.NoError(t, err)

	assert.Equal(t, ModeUnbound, res.Mode())
	assert.Equal(t, 5, res.Len())
	assert.Empty(t, resolvedSet(res))

	cond, ok := res.Condition(nid("2"))
	require.True(t, ok)
	assert.ErrorIs(t, cond.Err(), expression.ErrUnbound)
}

func TestResolve_OrOverParents(t *testing.T) {
	// 0 -> a (false) -> shared
	// 0 -> b (true)  -> shared
	loader := loaderOf(
		node(t, "0", "", "a", "b"),
		node(t, "a", "1 == 2", "shared"),
		node(t, "b", "", "shared"),
		node(t, "shared", ""),
	)

	res, err := Resolve(context.Background(), loader, "0", expression.Bound(nil))
	require.NoError(t, err)
	assert.True(t, res.Resolved(nid("shared")))
	assert.ElementsMatch(t, []valueobjects.NodeID{nid("a"), nid("b")}, res.Parents(nid("shared")))

	// Both parents false: the shared node is false.
	loader[nid("b")] = node(t, "b", "1 == 2", "shared")
	res, err = Resolve(context.Background(), loader, "0", expression.Bound(nil))
	require.NoError(t, err)
	assert.False(t, res.Resolved(nid("shared")))
}

func TestResolve_SelfConditionGatesChild(t *testing.T) {
	loader := loaderOf(
		node(t, "0", "", "child"),
		node(t, "child", "config['k'] == 'v'", "grandchild"),
		node(t, "grandchild", ""),
	)

	res, err := Resolve(context.Background(), loader, "0", expression.Bound(valueobjects.Attributes{"k": valueobjects.StringValue("other")}))
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, resolvedSet(res))
}

func TestResolve_MalformedConditionIsFalse(t *testing.T) {
	loader := loaderOf(
		node(t, "0", "", "bad", "good"),
		node(t, "bad", "1 = 1"),
		node(t, "good", "1 == 1"),
	)

	res, err := Resolve(context.Background(), loader, "0", expression.Bound(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "good"}, resolvedSet(res))

	cond, _ := res.Condition(nid("bad"))
	assert.False(t, cond.IsResolved())
}

func TestResolve_EmptyAndMissingRoot(t *testing.T) {
	res, err := Resolve(context.Background(), loaderOf(), "", expression.Bound(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())

	res, err = Resolve(context.Background(), loaderOf(node(t, "x", "")), "missing", expression.Bound(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
	assert.False(t, res.Resolved(nid("missing")))
}

func TestResolve_DanglingChildrenSkipped(t *testing.T) {
	loader := loaderOf(node(t, "0", "", "ghost", "1"), node(t, "1", ""))

	res, err := Resolve(context.Background(), loader, "0", expression.Bound(nil))
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.NodeID{nid("0"), nid("1")}, res.Order())
	assert.False(t, res.Reachable(nid("ghost")))
}

func TestResolve_DeduplicatesSharedNodes(t *testing.T) {
	loader := loaderOf(
		node(t, "0", "", "a", "b", "a"),
		node(t, "a", "", "c"),
		node(t, "b", "", "c"),
		node(t, "c", ""),
	)

	res, err := Resolve(context.Background(), loader, "0", expression.Bound(nil))
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.NodeID{nid("0"), nid("a"), nid("b"), nid("c")}, res.Order())
	assert.Len(t, res.Nodes(), 4)
	assert.Len(t, res.Parents(nid("a")), 1)
}

func TestResolve_Cycles(t *testing.T) {
	t.Run("cycle below the root", func(t *testing.T) {
		loader := loaderOf(
			node(t, "0", "", "a"),
			node(t, "a", "", "b"),
			node(t, "b", "", "a"),
		)
		res, err := Resolve(context.Background(), loader, "0", expression.Bound(nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"0", "a", "b"}, resolvedSet(res))
	})

	t.Run("cycle through the root", func(t *testing.T) {
		loader := loaderOf(
			node(t, "0", "", "a"),
			node(t, "a", "", "0"),
		)
		res, err := Resolve(context.Background(), loader, "0", expression.Bound(nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"0", "a"}, resolvedSet(res))
	})

	t.Run("self loop", func(t *testing.T) {
		loader := loaderOf(node(t, "0", "", "0", "1"), node(t, "1", "", "1"))
		res, err := Resolve(context.Background(), loader, "0", expression.Bound(nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"0", "1"}, resolvedSet(res))
	})

	t.Run("cycle entered from a false parent only", func(t *testing.T) {
		loader := loaderOf(
			node(t, "0", "", "gate"),
			node(t, "gate", "1 == 2", "a"),
			node(t, "a", "", "b"),
			node(t, "b", "", "a"),
		)
		res, err := Resolve(context.Background(), loader, "0", expression.Bound(nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"0"}, resolvedSet(res))
	})

	t.Run("cycle with a late true parent", func(t *testing.T) {
		// b is discovered after the cycle a<->c is entered through a false
		// gate, but b also reaches c and should pull the cycle true.
		loader := loaderOf(
			node(t, "0", "", "gate", "b"),
			node(t, "gate", "1 == 2", "a"),
			node(t, "b", "", "x"),
			node(t, "x", "", "c"),
			node(t, "a", "", "c"),
			node(t, "c", "", "a"),
		)
		res, err := Resolve(context.Background(), loader, "0", expression.Bound(nil))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"0", "b", "x", "a", "c"}, resolvedSet(res))
	})
}

type failingLoader struct{}

func (failingLoader) GetMany(context.Context, []valueobjects.NodeID) (map[valueobjects.NodeID]*entities.Node, error) {
	return nil, errors.New("store unavailable")
}

func TestResolve_LoaderErrorEscapes(t *testing.T) {
	_, err := Resolve(context.Background(), failingLoader{}, "0", expression.Bound(nil))
	assert.EqualError(t, err, "store unavailable")
}

func TestResolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Resolve(ctx, scenarioNodes(t), "0", scenarioConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

// pathResolved is the reference semantics: a node is resolved iff a path of
// self-true nodes leads to it from the root.
func pathResolved(loader MapLoader, root valueobjects.NodeID, self func(*entities.Node) bool) map[valueobjects.NodeID]bool {
	out := map[valueobjects.NodeID]bool{}
	rootNode, ok := loader[root]
	if !ok || !self(rootNode) {
		return out
	}
	out[root] = true
	stack := []valueobjects.NodeID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range loader[id].Children() {
			child, ok := loader[c]
			if !ok || out[c] || !self(child) {
				continue
			}
			out[c] = true
			stack = append(stack, c)
		}
	}
	return out
}

func TestResolve_MatchesPathSemanticsOnRandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	evalCtx := expression.Bound(nil)
	self := func(n *entities.Node) bool { return expression.Evaluate(n.ConditionAttribute(), evalCtx).Truthy() }

	for round := 0; round < 200; round++ {
		size := 1 + rng.Intn(12)
		loader := MapLoader{}
		for i := 0; i < size; i++ {
			var children []string
			for j := 0; j < rng.Intn(4); j++ {
				// Occasionally point past the end to create dangling edges.
				children = append(children, fmt.Sprint(rng.Intn(size+2)))
			}
			cond := ""
			if rng.Intn(3) == 0 {
				cond = "1 == 2"
			}
			n := node(t, fmt.Sprint(i), cond, children...)
			loader[n.ID()] = n
		}

		res, err := Resolve(context.Background(), loader, "0", evalCtx)
		require.NoError(t, err)

		want := pathResolved(loader, nid("0"), self)
		for _, id := range res.Order() {
			assert.Equal(t, want[id], res.Resolved(id), "round %d node %s", round, id)
		}
	}
}
