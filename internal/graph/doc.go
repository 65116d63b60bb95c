// Package graph implements the computation-graph node layer. It defines the
// Node contract shared by every node kind, frame-range addressing of
// minibatch windows, the passthrough trace node and the external-call node,
// and the Graph container that validates topology, allocates buffers and
// drives forward and backward passes in dependency order.
package graph
