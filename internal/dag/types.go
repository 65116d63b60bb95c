package dag

import "sync"

// Graph is a set of named nodes and the directed dependency edges between
// them. All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique name.
	nodes map[string]*node
}

// node represents a single vertex. It is un-exported to force interaction
// through the public API (using string names), not by direct struct
// manipulation.
type node struct {
	// name is the unique identifier for the node.
	name string
	// deps holds the set of nodes this node consumes (predecessors).
	deps map[string]*node
	// dependents holds the set of nodes that consume this node (successors).
	dependents map[string]*node
}
