package graph

import (
	"fmt"

	"github.com/vk/tensorgrid/internal/extfunc"
	"github.com/vk/tensorgrid/internal/tensor"
)

// ExternalCallNode routes its input through an externally resolved function
// during the forward pass, then forwards the result unchanged. The function
// name is the node's own name; resolution goes through the registry injected
// at construction and is memoized there.
type ExternalCallNode struct {
	nodeBase

	funcName string
	registry *extfunc.Registry

	// scratch holds a derivative-rescaled copy of the output gradient during
	// backprop, so the output gradient buffer itself is never clobbered.
	scratch *tensor.Tensor
}

// NewExternalCallNode creates an external-call node bound to the registry.
func NewExternalCallNode(name string, registry *extfunc.Registry) *ExternalCallNode {
	return &ExternalCallNode{
		nodeBase: newNodeBase(OpExternalCall, name, 1),
		funcName: name,
		registry: registry,
	}
}

// FuncName returns the external function name the node dispatches to.
func (n *ExternalCallNode) FuncName() string { return n.funcName }

// Validate settles the shape and checks that a registry is present.
func (n *ExternalCallNode) Validate(finalPass bool) error {
	if err := n.validateUnaryMap(finalPass); err != nil {
		return err
	}
	if finalPass && n.registry == nil {
		return fmt.Errorf("graph: external call %q has no function registry", n.name)
	}
	return nil
}

// ForwardProp resolves the callable, applies it in place to the input
// window, then copies the mutated input into the output window. The copy
// runs after the call, so the output sees the external function's effect.
func (n *ExternalCallNode) ForwardProp(fr FrameRange) error {
	c, err := n.registry.Resolve(n.funcName)
	if err != nil {
		return fmt.Errorf("graph: external call %q: %w", n.name, err)
	}

	rank := n.elementwiseRank()
	in := n.inputs[0].ValueTensorFor(rank, fr)
	if err := c.Apply(in); err != nil {
		return fmt.Errorf("graph: external call %q: %w", n.name, err)
	}
	out := n.ValueTensorFor(rank, fr)
	if err := out.AssignFrom(in); err != nil {
		return fmt.Errorf("graph: external call %q forward: %w", n.name, err)
	}
	return nil
}

// BackpropTo propagates the output gradient window to the input. When the
// resolved callable carries a paired derivative, a copy of the output
// gradient is rescaled in place against the forward value before the
// accumulate; without one the node is a plain gradient passthrough.
func (n *ExternalCallNode) BackpropTo(inputIndex int, fr FrameRange) error {
	if inputIndex != 0 {
		return fmt.Errorf("%w: external call %q has no input %d", ErrArity, n.name, inputIndex)
	}
	c, err := n.registry.Resolve(n.funcName)
	if err != nil {
		return fmt.Errorf("graph: external call %q: %w", n.name, err)
	}

	rank := n.elementwiseRank()
	inGrad := n.inputs[0].GradientTensorFor(rank, fr)
	outGrad := n.GradientTensorFor(rank, fr)

	if c.Grad == nil {
		if err := inGrad.AddFrom(outGrad); err != nil {
			return fmt.Errorf("graph: external call %q backward: %w", n.name, err)
		}
		return nil
	}

	scaled := n.window(n.scratch, rank, fr)
	if err := scaled.AssignFrom(outGrad); err != nil {
		return fmt.Errorf("graph: external call %q backward: %w", n.name, err)
	}
	if err := c.Grad(scaled, n.inputs[0].ValueTensorFor(rank, fr)); err != nil {
		return fmt.Errorf("graph: external call %q gradient: %w", n.name, err)
	}
	if err := inGrad.AddFrom(scaled); err != nil {
		return fmt.Errorf("graph: external call %q backward: %w", n.name, err)
	}
	return nil
}

// allocate adds the backprop scratch buffer to the base allocation.
func (n *ExternalCallNode) allocate(frames int) {
	n.nodeBase.allocate(frames)
	n.scratch = tensor.New(n.value.Shape())
}
