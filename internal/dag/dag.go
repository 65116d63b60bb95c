package dag

import (
	"fmt"
	"sort"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given name to the graph. If a node with
// the same name already exists, the function does nothing.
func (g *Graph) AddNode(name string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[name]; ok {
		return
	}

	g.nodes[name] = &node{
		name:       name,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// AddEdge creates a directed edge from the `from` node to the `to` node,
// meaning `to` consumes the output of `from`. An error is returned if either
// node does not exist or if the edge would create a self-reference.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", from, from)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("source node not found: %s", from)
	}

	toNode, ok := g.nodes[to]
	if !ok {
		return fmt.Errorf("destination node not found: %s", to)
	}

	toNode.deps[from] = fromNode
	fromNode.dependents[to] = toNode

	return nil
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// if a cycle is found, naming the first node involved in the detected cycle.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Classic depth-first search with three node sets:
	// permanent: fully visited, known not to be part of a cycle.
	// temporary: currently on the recursion stack.
	// unvisited: everything else.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.name] {
			return nil
		}
		if temporary[n.name] {
			// A node already on the recursion stack means a cycle.
			return fmt.Errorf("cycle detected involving node '%s'", n.name)
		}

		temporary[n.name] = true

		for _, dependent := range n.dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}

		delete(temporary, n.name)
		permanent[n.name] = true

		return nil
	}

	for _, n := range g.nodes {
		if !permanent[n.name] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}

	return nil
}

// TopologicalOrder returns every node name ordered so that a node appears
// only after all nodes it depends on. Ties are broken lexicographically,
// making the order stable across runs regardless of map iteration. An error
// is returned if the graph contains a cycle.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	indegree := make(map[string]int, len(g.nodes))
	ready := make([]string, 0, len(g.nodes))
	for name, n := range g.nodes {
		indegree[name] = len(n.deps)
		if len(n.deps) == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Strings(ready)
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		for depName := range g.nodes[name].dependents {
			indegree[depName]--
			if indegree[depName] == 0 {
				ready = append(ready, depName)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("topological order impossible: %d node(s) caught in a cycle", len(g.nodes)-len(order))
	}
	return order, nil
}
