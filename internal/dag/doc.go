// Package dag tracks the dependency structure of a computation graph: which
// nodes feed which, whether the wiring is acyclic, and a stable order in
// which nodes can be evaluated so that every input is ready before the node
// that consumes it.
package dag
