package graph

import (
	"fmt"

	"github.com/vk/tensorgrid/internal/tensor"
)

// InputNode is the leaf source of a graph: the engine feeds minibatch values
// into it and downstream nodes read them. It performs no computation of its
// own.
type InputNode struct {
	nodeBase
}

// NewInputNode creates an input with the given per-frame sample shape.
func NewInputNode(name string, sampleShape tensor.Shape) *InputNode {
	n := &InputNode{nodeBase: newNodeBase(OpInput, name, 0)}
	n.sampleShape = sampleShape.Clone()
	return n
}

// Validate checks that the input is a leaf with a usable sample shape.
func (n *InputNode) Validate(finalPass bool) error {
	if len(n.inputs) != 0 {
		return fmt.Errorf("%w: %s %q takes 0, got %d", ErrArity, n.op, n.name, len(n.inputs))
	}
	if finalPass && n.sampleShape.NumElements() == 0 {
		return fmt.Errorf("%w: input %q has empty sample shape %v", ErrShapeMismatch, n.name, n.sampleShape)
	}
	return nil
}

// ForwardProp is a no-op; the value buffer holds whatever was last fed.
func (n *InputNode) ForwardProp(fr FrameRange) error { return nil }

// BackpropTo never applies: an input has no inputs of its own.
func (n *InputNode) BackpropTo(inputIndex int, fr FrameRange) error {
	return fmt.Errorf("%w: input %q has no inputs", ErrArity, n.name)
}

// Feed copies one minibatch of values into the node, laid out sample-major
// with the frame axis last.
func (n *InputNode) Feed(values []float32) error {
	if n.value == nil {
		return fmt.Errorf("graph: input %q is not allocated; validate the graph first", n.name)
	}
	want := n.value.Shape().NumElements()
	if len(values) != want {
		return fmt.Errorf("%w: input %q wants %d values per minibatch, got %d",
			ErrShapeMismatch, n.name, want, len(values))
	}
	copy(n.value.DataPtr(), values)
	return nil
}
