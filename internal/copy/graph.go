package copy

import (
	"fmt"
	"sort"
	"strings"
)

// graph is a directed dependency graph over entity IDs. An edge from → to
// means "from cannot be created until to exists": folders point at their
// parent, segments point at the segments their rule references.
type graph struct {
	nodes map[string]bool
	deps  map[string][]string // from → dependencies
}

func newGraph() *graph {
	return &graph{
		nodes: make(map[string]bool),
		deps:  make(map[string][]string),
	}
}

// addNode registers a standalone node (e.g. the root folder).
func (g *graph) addNode(id string) {
	g.nodes[id] = true
}

// addEdge records that from depends on to. Both endpoints become nodes.
func (g *graph) addEdge(from, to string) {
	g.nodes[from] = true
	g.nodes[to] = true
	g.deps[from] = append(g.deps[from], to)
}

// CycleError reports that no valid creation order exists.
type CycleError struct {
	Remaining []string // entity IDs left unordered by the sort
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle involving %d entities: %s",
		len(e.Remaining), strings.Join(e.Remaining, ", "))
}

// creationOrder returns the node IDs ordered so every dependency precedes
// its dependents (Kahn's algorithm). Ties are broken lexicographically so
// the order is deterministic. A cycle yields *CycleError naming the
// entities that could not be ordered.
func (g *graph) creationOrder() ([]string, error) {
	unresolved := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string)
	for id := range g.nodes {
		unresolved[id] = len(g.deps[id])
		for _, dep := range g.deps[id] {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var queue []string
	for id, n := range unresolved {
		if n == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		next := dependents[id]
		sort.Strings(next)
		for _, dep := range next {
			unresolved[dep]--
			if unresolved[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) < len(g.nodes) {
		var remaining []string
		for id, n := range unresolved {
			if n > 0 {
				remaining = append(remaining, id)
			}
		}
		sort.Strings(remaining)
		return nil, &CycleError{Remaining: remaining}
	}
	return order, nil
}
