package config

import (
	"github.com/vk/tensorgrid/internal/format"
)

// Node kinds accepted in configuration.
const (
	KindInput   = "input"
	KindTrace   = "trace"
	KindExtCall = "extcall"
)

// Defaults applied while loading.
const (
	DefaultFrames       = 1
	DefaultLogFirst     = 10
	DefaultLogFrequency = 10
)

// Model is the format-agnostic representation of one configured graph run.
type Model struct {
	// Frames is the minibatch width every evaluation covers.
	Frames int

	// Library is the path handed to the symbol loader for external
	// functions that are not registered in-process.
	Library string

	// Nodes in declaration order.
	Nodes []Node
}

// Node is the format-agnostic representation of a `node` block.
type Node struct {
	Kind string
	Name string

	// Input names the upstream node; empty for input kinds.
	Input string

	// Shape is the per-frame sample shape; input kinds only.
	Shape []int

	// Trace carries trace options with defaults applied; trace kinds only.
	Trace *Trace
}

// Trace is the settled option set of a trace node.
type Trace struct {
	Say            string
	LogFirst       int
	LogFrequency   int
	LogGradientToo bool
	OnlyUpToRow    int
	OnlyUpToT      int
	Format         format.Options
}

// defaultTrace returns the options used when a trace block declares nothing.
func defaultTrace() Trace {
	return Trace{
		LogFirst:     DefaultLogFirst,
		LogFrequency: DefaultLogFrequency,
		OnlyUpToRow:  format.Unbounded,
		OnlyUpToT:    format.Unbounded,
		Format:       format.Default(),
	}
}
