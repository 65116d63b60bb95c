package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/vk/tensorgrid/internal/binfile"
	"github.com/vk/tensorgrid/internal/ctxlog"
	"github.com/vk/tensorgrid/internal/dag"
	"github.com/vk/tensorgrid/internal/extfunc"
)

// Model file framing.
const (
	ModelMagic   = "TGMF"
	ModelVersion = 1
)

// Load guards against absurd counts in corrupt files.
const (
	maxModelNodes    = 1 << 16
	maxInputsPerNode = 64
)

var (
	// ErrDuplicateNode indicates two nodes share a name.
	ErrDuplicateNode = errors.New("graph: duplicate node name")

	// ErrUnknownNode indicates a reference to a node the graph does not hold.
	ErrUnknownNode = errors.New("graph: unknown node")

	// ErrUnknownOperation indicates a persisted record names a node kind
	// this build does not implement.
	ErrUnknownOperation = errors.New("graph: unknown operation")

	// ErrNotValidated indicates evaluation was attempted before Validate.
	ErrNotValidated = errors.New("graph: not validated")
)

// Graph owns a set of wired nodes and drives their evaluation. A graph is
// single-threaded; concurrent use requires one Graph per goroutine, which
// may share a function registry.
type Graph struct {
	frames   int
	nodes    map[string]Node
	order    []Node
	traceOut io.Writer
	registry *extfunc.Registry
}

// Option configures a Graph.
type Option func(*Graph)

// WithTraceWriter directs trace node output created during Load. Nodes
// constructed by the caller carry their own writer.
func WithTraceWriter(w io.Writer) Option {
	return func(g *Graph) { g.traceOut = w }
}

// WithRegistry injects the external function registry handed to call nodes
// constructed during Load.
func WithRegistry(r *extfunc.Registry) Option {
	return func(g *Graph) { g.registry = r }
}

// NewGraph creates an empty graph evaluating minibatches that are frames
// wide.
func NewGraph(frames int, opts ...Option) *Graph {
	g := &Graph{
		frames: frames,
		nodes:  make(map[string]Node),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Frames returns the minibatch width the graph evaluates.
func (g *Graph) Frames() int { return g.frames }

// AddNode registers a node under its name.
func (g *Graph) AddNode(n Node) error {
	if _, exists := g.nodes[n.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, n.Name())
	}
	g.nodes[n.Name()] = n
	g.order = nil
	return nil
}

// Node returns the named node.
func (g *Graph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Input returns the named node as an input source.
func (g *Graph) Input(name string) (*InputNode, error) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}
	in, ok := n.(*InputNode)
	if !ok {
		return nil, fmt.Errorf("graph: node %q is %s, not an input", name, n.Operation())
	}
	return in, nil
}

// InputNodes returns every input node, sorted by name.
func (g *Graph) InputNodes() []*InputNode {
	var ins []*InputNode
	for _, n := range g.nodes {
		if in, ok := n.(*InputNode); ok {
			ins = append(ins, in)
		}
	}
	sort.Slice(ins, func(i, j int) bool { return ins[i].Name() < ins[j].Name() })
	return ins
}

// Nodes returns all nodes in evaluation order once validated, or unspecified
// order before that.
func (g *Graph) Nodes() []Node {
	if g.order != nil {
		return g.order
	}
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// Sink returns the last node in evaluation order, the default seed for
// Backprop. It is nil before validation.
func (g *Graph) Sink() Node {
	if len(g.order) == 0 {
		return nil
	}
	return g.order[len(g.order)-1]
}

// Validate checks the wiring, settles shapes over two validation passes,
// and allocates evaluation buffers. It must run before any evaluation and
// again after any topology change.
func (g *Graph) Validate(ctx context.Context) error {
	deps := dag.New()
	for name := range g.nodes {
		deps.AddNode(name)
	}
	for name, n := range g.nodes {
		for _, in := range n.Inputs() {
			if _, ok := g.nodes[in.Name()]; !ok {
				return fmt.Errorf("%w: %q feeds %q but was never added", ErrUnknownNode, in.Name(), name)
			}
			if err := deps.AddEdge(in.Name(), name); err != nil {
				return fmt.Errorf("graph: %w", err)
			}
		}
	}
	if err := deps.DetectCycles(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	names, err := deps.TopologicalOrder()
	if err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	order := make([]Node, len(names))
	for i, name := range names {
		order[i] = g.nodes[name]
	}

	// Early pass lets shapes settle along the wiring, the final pass
	// enforces them and performs one-time loading work.
	for _, finalPass := range []bool{false, true} {
		for _, n := range order {
			if err := n.Validate(finalPass); err != nil {
				return err
			}
		}
	}
	for _, n := range order {
		n.allocate(g.frames)
	}
	g.order = order

	ctxlog.FromContext(ctx).Debug("Graph validated.", "nodes", len(order), "frames", g.frames)
	return nil
}

// ForwardProp evaluates every node over the given frame range, in
// dependency order.
func (g *Graph) ForwardProp(ctx context.Context, fr FrameRange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.order == nil {
		return ErrNotValidated
	}
	for _, n := range g.order {
		n.BeginForwardProp()
		if err := n.ForwardProp(fr); err != nil {
			return err
		}
	}
	return nil
}

// Backprop runs a backward pass seeded at the named sink: every gradient
// buffer is cleared, the sink's gradient window is set to one, and nodes
// propagate gradients to their inputs in reverse evaluation order.
func (g *Graph) Backprop(ctx context.Context, sink string, fr FrameRange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.order == nil {
		return ErrNotValidated
	}
	out, ok := g.nodes[sink]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, sink)
	}

	for _, n := range g.order {
		if t := n.base().gradient; t != nil {
			t.Zero()
		}
	}
	seed := out.GradientTensorFor(out.base().elementwiseRank(), fr)
	seed.Apply(func(float32) float32 { return 1 })

	for i := len(g.order) - 1; i >= 0; i-- {
		n := g.order[i]
		for j := range n.Inputs() {
			if err := n.BackpropTo(j, fr); err != nil {
				return err
			}
		}
	}
	return nil
}

// Save persists the graph: a header, then one record per node in evaluation
// order carrying the structure (operation, name, input wiring) and the
// node's own fields. The graph must be validated so the order is settled.
func (g *Graph) Save(dst io.Writer) error {
	if g.order == nil {
		return ErrNotValidated
	}
	w := binfile.NewWriter(dst)
	w.WriteHeader(ModelMagic, ModelVersion)
	w.WriteInt(len(g.order))
	for _, n := range g.order {
		w.WriteString(n.Operation())
		w.WriteString(n.Name())
		inputs := n.Inputs()
		w.WriteInt(len(inputs))
		for _, in := range inputs {
			w.WriteString(in.Name())
		}
		n.Save(w)
	}
	return w.Flush()
}

// Load reads a model written by Save into this graph, constructing nodes
// with the graph's trace writer and registry. The graph must be empty, and
// still needs Validate before evaluation.
func (g *Graph) Load(src io.Reader) error {
	if len(g.nodes) != 0 {
		return fmt.Errorf("graph: load into non-empty graph")
	}
	r := binfile.NewReader(src)
	version := r.ReadHeader(ModelMagic)
	if err := r.Err(); err != nil {
		return err
	}
	if version != ModelVersion {
		return fmt.Errorf("%w: %d", binfile.ErrUnsupportedVersion, version)
	}

	count := r.ReadInt()
	if err := r.Err(); err != nil {
		return err
	}
	if count < 0 || count > maxModelNodes {
		return fmt.Errorf("%w: node count %d", binfile.ErrCorrupt, count)
	}

	type record struct {
		node   Node
		inputs []string
	}
	records := make([]record, 0, count)
	for i := 0; i < count; i++ {
		op := r.ReadString()
		name := r.ReadString()
		numInputs := r.ReadInt()
		if err := r.Err(); err != nil {
			return err
		}
		if numInputs < 0 || numInputs > maxInputsPerNode {
			return fmt.Errorf("%w: node %q input count %d", binfile.ErrCorrupt, name, numInputs)
		}
		inputs := make([]string, numInputs)
		for j := range inputs {
			inputs[j] = r.ReadString()
		}
		n, err := g.newNode(op, name)
		if err != nil {
			return err
		}
		if err := n.Load(r); err != nil {
			return err
		}
		records = append(records, record{node: n, inputs: inputs})
	}

	for _, rec := range records {
		if err := g.AddNode(rec.node); err != nil {
			return err
		}
	}
	for _, rec := range records {
		if len(rec.inputs) == 0 {
			continue
		}
		wired := make([]Node, len(rec.inputs))
		for j, name := range rec.inputs {
			in, ok := g.nodes[name]
			if !ok {
				return fmt.Errorf("%w: %q references input %q", ErrUnknownNode, rec.node.Name(), name)
			}
			wired[j] = in
		}
		if err := rec.node.AttachInputs(wired...); err != nil {
			return err
		}
	}
	return nil
}

// newNode constructs an empty node of the given operation for Load to fill.
func (g *Graph) newNode(op, name string) (Node, error) {
	switch op {
	case OpInput:
		return NewInputNode(name, nil), nil
	case OpTrace:
		return NewTraceNode(name, DefaultTraceConfig(), g.traceOut), nil
	case OpExternalCall:
		return NewExternalCallNode(name, g.registry), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
}
