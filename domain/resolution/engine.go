// Package resolution derives the resolved state of every node reachable from
// a tree root.
//
// A node is resolved when its own condition holds and it is reached through
// at least one resolved parent; the root needs no parent. Without a selected
// configuration nothing resolves, not even unconditional nodes.
package resolution

import (
	"context"

	"treeservice/domain/core/entities"
	"treeservice/domain/core/valueobjects"
	"treeservice/domain/expression"
)

// NodeLoader fetches nodes by id. Ids without a stored node are omitted.
type NodeLoader interface {
	GetMany(ctx context.Context, ids []valueobjects.NodeID) (map[valueobjects.NodeID]*entities.Node, error)
}

// MapLoader serves nodes from memory.
type MapLoader map[valueobjects.NodeID]*entities.Node

// GetMany implements NodeLoader
func (m MapLoader) GetMany(_ context.Context, ids []valueobjects.NodeID) (map[valueobjects.NodeID]*entities.Node, error) {
	out := make(map[valueobjects.NodeID]*entities.Node, len(ids))
	for _, id := range ids {
		if n, ok := m[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

// Mode tells whether a pass ran with a configuration.
type Mode string

const (
	ModeBound   Mode = "bound"
	ModeUnbound Mode = "unbound"
)

// Result holds one resolution pass. It is never persisted.
type Result struct {
	mode     Mode
	root     valueobjects.NodeID
	order    []valueobjects.NodeID
	nodes    map[valueobjects.NodeID]*entities.Node
	self     map[valueobjects.NodeID]expression.Result
	resolved map[valueobjects.NodeID]bool
	parents  map[valueobjects.NodeID][]valueobjects.NodeID
}

func (r *Result) Mode() Mode { return r.mode }

// Len returns the number of reachable nodes
func (r *Result) Len() int { return len(r.order) }

// Order returns reachable node ids in discovery order, each once
func (r *Result) Order() []valueobjects.NodeID {
	out := make([]valueobjects.NodeID, len(r.order))
	copy(out, r.order)
	return out
}

// Nodes returns reachable nodes in discovery order
func (r *Result) Nodes() []*entities.Node {
	out := make([]*entities.Node, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.nodes[id])
	}
	return out
}

// Node returns a reachable node
func (r *Result) Node(id valueobjects.NodeID) (*entities.Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// Reachable reports whether id was reached from the root
func (r *Result) Reachable(id valueobjects.NodeID) bool {
	_, ok := r.nodes[id]
	return ok
}

// Resolved returns the resolved flag; unreachable ids are false
func (r *Result) Resolved(id valueobjects.NodeID) bool {
	return r.resolved[id]
}

// Condition returns the raw evaluation of a node's own condition
func (r *Result) Condition(id valueobjects.NodeID) (expression.Result, bool) {
	res, ok := r.self[id]
	return res, ok
}

// Parents returns the reachable parents of id
func (r *Result) Parents(id valueobjects.NodeID) []valueobjects.NodeID {
	return r.parents[id]
}

// ResolvedIDs returns the ids that resolved true, in discovery order
func (r *Result) ResolvedIDs() []valueobjects.NodeID {
	var out []valueobjects.NodeID
	for _, id := range r.order {
		if r.resolved[id] {
			out = append(out, id)
		}
	}
	return out
}

// Resolve walks the graph reachable from rootID and resolves every node.
// Only loader errors are returned; evaluation problems resolve to false.
func Resolve(ctx context.Context, loader NodeLoader, rootID string, evalCtx expression.Context) (*Result, error) {
	res := &Result{
		mode:     ModeUnbound,
		nodes:    make(map[valueobjects.NodeID]*entities.Node),
		self:     make(map[valueobjects.NodeID]expression.Result),
		resolved: make(map[valueobjects.NodeID]bool),
		parents:  make(map[valueobjects.NodeID][]valueobjects.NodeID),
	}
	if evalCtx.IsBound() {
		res.mode = ModeBound
	}

	root, err := valueobjects.NewNodeIDFromString(rootID)
	if err != nil {
		return res, nil
	}
	res.root = root

	children, err := res.discover(ctx, loader, root)
	if err != nil {
		return nil, err
	}
	if len(res.order) == 0 {
		return res, nil
	}

	for _, id := range res.order {
		res.self[id] = selfCondition(res.nodes[id], evalCtx)
	}

	if res.mode == ModeUnbound {
		for _, id := range res.order {
			res.resolved[id] = false
		}
		return res, nil
	}

	res.propagate(children)
	res.close(children)
	return res, nil
}

// selfCondition evaluates a node's own condition. An empty condition holds
// only when a configuration is bound.
func selfCondition(n *entities.Node, evalCtx expression.Context) expression.Result {
	return expression.Evaluate(n.ConditionAttribute(), evalCtx)
}

// discover loads the reachable subgraph breadth first. Each id is requested
// at most once, so cycles terminate. Dangling children are skipped.
// It returns the distinct reachable children of every reachable node.
func (r *Result) discover(ctx context.Context, loader NodeLoader, root valueobjects.NodeID) (map[valueobjects.NodeID][]valueobjects.NodeID, error) {
	requested := map[valueobjects.NodeID]bool{root: true}
	edges := make(map[valueobjects.NodeID][]valueobjects.NodeID)
	frontier := []valueobjects.NodeID{root}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := loader.GetMany(ctx, frontier)
		if err != nil {
			return nil, err
		}

		var next []valueobjects.NodeID
		for _, id := range frontier {
			n, ok := found[id]
			if !ok {
				continue
			}
			r.order = append(r.order, id)
			r.nodes[id] = n

			for _, child := range n.Children() {
				if !requested[child] {
					requested[child] = true
					next = append(next, child)
				}
			}
		}
		frontier = next
	}

	// Edges are only kept between reachable nodes.
	for _, id := range r.order {
		seen := make(map[valueobjects.NodeID]bool)
		for _, child := range r.nodes[id].Children() {
			if seen[child] || !r.Reachable(child) {
				continue
			}
			seen[child] = true
			edges[id] = append(edges[id], child)
			r.parents[child] = append(r.parents[child], id)
		}
	}
	return edges, nil
}

// propagate resolves nodes parents first. When every remaining node waits on
// a cycle, the earliest discovered one is resolved from the parents already
// processed.
func (r *Result) propagate(edges map[valueobjects.NodeID][]valueobjects.NodeID) {
	pending := make(map[valueobjects.NodeID]int, len(r.order))
	for _, id := range r.order {
		pending[id] = len(r.parents[id])
	}

	processed := make(map[valueobjects.NodeID]bool, len(r.order))
	queue := []valueobjects.NodeID{r.root}
	cursor := 0

	for len(processed) < len(r.order) {
		if len(queue) == 0 {
			for cursor < len(r.order) && processed[r.order[cursor]] {
				cursor++
			}
			queue = append(queue, r.order[cursor])
		}

		id := queue[0]
		queue = queue[1:]
		if processed[id] {
			continue
		}
		processed[id] = true
		r.resolved[id] = r.evaluate(id, processed)

		for _, child := range edges[id] {
			if processed[child] {
				continue
			}
			pending[child]--
			if pending[child] == 0 {
				queue = append(queue, child)
			}
		}
	}
}

func (r *Result) evaluate(id valueobjects.NodeID, processed map[valueobjects.NodeID]bool) bool {
	if !r.self[id].Truthy() {
		return false
	}
	if id == r.root {
		return true
	}
	for _, p := range r.parents[id] {
		if processed[p] && r.resolved[p] {
			return true
		}
	}
	return false
}

// close promotes nodes whose parent resolved after they were processed,
// which only happens on cycles. Values only ever move from false to true.
func (r *Result) close(edges map[valueobjects.NodeID][]valueobjects.NodeID) {
	var work []valueobjects.NodeID
	for _, id := range r.order {
		if r.resolved[id] {
			work = append(work, id)
		}
	}
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		for _, child := range edges[id] {
			if !r.resolved[child] && r.self[child].Truthy() {
				r.resolved[child] = true
				work = append(work, child)
			}
		}
	}
}
