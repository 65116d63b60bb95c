package graph

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vk/tensorgrid/internal/binfile"
	"github.com/vk/tensorgrid/internal/tensor"
)

var (
	// ErrArity indicates a node was wired to the wrong number of inputs, or
	// asked to backpropagate to an input it does not have.
	ErrArity = errors.New("graph: wrong number of inputs")

	// ErrShapeMismatch indicates a node's sample shape disagrees with its
	// input during the final validation pass.
	ErrShapeMismatch = errors.New("graph: sample shape mismatch")
)

// maxSampleRank bounds the rank accepted from a persisted base record, so a
// corrupt file fails instead of allocating an absurd shape.
const maxSampleRank = 16

// Operation names, as persisted in model files and used in configuration.
const (
	OpInput        = "Input"
	OpTrace        = "Trace"
	OpExternalCall = "ExternalCall"
)

// Node is the contract every graph node kind implements. A node owns a value
// buffer and a gradient buffer shaped sample dims by frames, references its
// input nodes without owning them, and is driven by the Graph container:
// constructed, wired, validated, then evaluated once per minibatch.
//
// Save and Load cover only the node's own record; the container persists
// structure (operation, name, input wiring) around them.
type Node interface {
	Name() string
	Operation() string
	Inputs() []Node
	AttachInputs(inputs ...Node) error

	// Validate settles the node's sample shape against its inputs. The
	// final pass additionally checks invariants that must hold before
	// evaluation and performs one-time loading work.
	Validate(finalPass bool) error

	// BeginForwardProp runs once per minibatch before ForwardProp.
	BeginForwardProp()
	ForwardProp(fr FrameRange) error
	BackpropTo(inputIndex int, fr FrameRange) error

	Save(w *binfile.Writer)
	Load(r *binfile.Reader) error

	SampleShape() tensor.Shape

	// ValueTensorFor and GradientTensorFor open a read/write window over the
	// node's buffers covering the given frame range, padded with singleton
	// axes up to the given elementwise broadcast rank.
	ValueTensorFor(rank int, fr FrameRange) tensor.View
	GradientTensorFor(rank int, fr FrameRange) tensor.View

	// WriteMinibatch renders the node's buffer for the given frame range to
	// w using fully resolved formatting parameters.
	WriteMinibatch(w io.Writer, fr FrameRange, f MinibatchFormat) error

	// Prototype renders the node's textual signature, e.g.
	// "t = Trace (x) [3 x *]".
	Prototype() string

	base() *nodeBase
	allocate(frames int)
}

// nodeBase carries the state and behavior shared by all node kinds. Node
// implementations embed it and override the lifecycle methods they care
// about.
type nodeBase struct {
	op          string
	name        string
	arity       int
	sampleShape tensor.Shape
	inputs      []Node

	frames   int
	value    *tensor.Tensor
	gradient *tensor.Tensor
}

func newNodeBase(op, name string, arity int) nodeBase {
	return nodeBase{op: op, name: name, arity: arity}
}

func (b *nodeBase) Name() string      { return b.name }
func (b *nodeBase) Operation() string { return b.op }
func (b *nodeBase) Inputs() []Node    { return b.inputs }

func (b *nodeBase) base() *nodeBase { return b }

// AttachInputs wires the node's upstream references. The count must match
// the node kind's arity exactly.
func (b *nodeBase) AttachInputs(inputs ...Node) error {
	if len(inputs) != b.arity {
		return fmt.Errorf("%w: %s %q takes %d, got %d", ErrArity, b.op, b.name, b.arity, len(inputs))
	}
	b.inputs = append([]Node(nil), inputs...)
	return nil
}

func (b *nodeBase) SampleShape() tensor.Shape { return b.sampleShape }

// BeginForwardProp is a no-op for most node kinds.
func (b *nodeBase) BeginForwardProp() {}

// validateUnaryMap settles the sample shape of a shape-preserving unary
// node. Early passes adopt the input's shape while it may still change; the
// final pass adopts a missing shape but rejects a conflicting one, which
// catches a persisted record that disagrees with the wiring.
func (b *nodeBase) validateUnaryMap(finalPass bool) error {
	if len(b.inputs) != 1 {
		return fmt.Errorf("%w: %s %q takes 1, got %d", ErrArity, b.op, b.name, len(b.inputs))
	}
	in := b.inputs[0].SampleShape()
	switch {
	case b.sampleShape.Rank() == 0:
		b.sampleShape = in.Clone()
	case !finalPass:
		b.sampleShape = in.Clone()
	case !b.sampleShape.Equal(in):
		return fmt.Errorf("%w: %s %q has %v, input %q has %v",
			ErrShapeMismatch, b.op, b.name, b.sampleShape, b.inputs[0].Name(), in)
	}
	return nil
}

// elementwiseRank is the broadcast rank used to align this node's windows
// with its inputs': the maximum sample rank over the node and its inputs.
func (b *nodeBase) elementwiseRank() int {
	rank := b.sampleShape.Rank()
	for _, in := range b.inputs {
		if r := in.SampleShape().Rank(); r > rank {
			rank = r
		}
	}
	return rank
}

// allocate sizes the value and gradient buffers for a minibatch that is
// frames wide. The frame axis is last, so a frame window is contiguous.
func (b *nodeBase) allocate(frames int) {
	b.frames = frames
	full := append(b.sampleShape.Clone(), frames)
	b.value = tensor.New(full)
	b.gradient = tensor.New(full)
}

// window opens a view over t covering [first, second) of the frame axis,
// with the sample axes padded to rank by stride-0 singleton axes.
func (b *nodeBase) window(t *tensor.Tensor, rank int, fr FrameRange) tensor.View {
	first, second := fr.Bounds(b.frames)
	full := t.Shape()
	fullStrides := tensor.ContiguousStrides(full)

	shape := make(tensor.Shape, 0, rank+1)
	strides := make([]int, 0, rank+1)
	for i := 0; i < b.sampleShape.Rank(); i++ {
		shape = append(shape, full[i])
		strides = append(strides, fullStrides[i])
	}
	for i := b.sampleShape.Rank(); i < rank; i++ {
		shape = append(shape, 1)
		strides = append(strides, 0)
	}
	frameStride := fullStrides[len(fullStrides)-1]
	shape = append(shape, second-first)
	strides = append(strides, frameStride)

	return t.View(first*frameStride, shape, strides)
}

func (b *nodeBase) ValueTensorFor(rank int, fr FrameRange) tensor.View {
	return b.window(b.value, rank, fr)
}

func (b *nodeBase) GradientTensorFor(rank int, fr FrameRange) tensor.View {
	return b.window(b.gradient, rank, fr)
}

// Prototype renders the node's signature with the frame axis spelled *.
func (b *nodeBase) Prototype() string {
	names := make([]string, len(b.inputs))
	for i, in := range b.inputs {
		names[i] = in.Name()
	}
	dims := make([]string, 0, b.sampleShape.Rank()+1)
	for _, d := range b.sampleShape {
		dims = append(dims, strconv.Itoa(d))
	}
	dims = append(dims, "*")
	return fmt.Sprintf("%s = %s (%s) [%s]",
		b.name, b.op, strings.Join(names, ", "), strings.Join(dims, " x "))
}

// Save writes the base record: the sample shape. Node kinds with fields of
// their own override and call saveBase first.
func (b *nodeBase) Save(w *binfile.Writer) {
	b.saveBase(w)
}

// Load reads the record written by Save.
func (b *nodeBase) Load(r *binfile.Reader) error {
	return b.loadBase(r)
}

func (b *nodeBase) saveBase(w *binfile.Writer) {
	w.WriteInt(b.sampleShape.Rank())
	for _, d := range b.sampleShape {
		w.WriteInt(d)
	}
}

func (b *nodeBase) loadBase(r *binfile.Reader) error {
	rank := r.ReadInt()
	if err := r.Err(); err != nil {
		return err
	}
	if rank < 0 || rank > maxSampleRank {
		return fmt.Errorf("%w: sample rank %d", binfile.ErrCorrupt, rank)
	}
	shape := make(tensor.Shape, rank)
	for i := range shape {
		shape[i] = r.ReadInt()
	}
	if err := r.Err(); err != nil {
		return err
	}
	b.sampleShape = shape
	return nil
}
