package graph

import (
	"context"
	"fmt"

	"github.com/vk/tensorgrid/internal/config"
	"github.com/vk/tensorgrid/internal/tensor"
)

// Build assembles a graph from a loaded configuration model, wires the node
// inputs, and validates the result. Trace nodes write to the graph's trace
// writer and call nodes resolve through its registry, so pass WithTraceWriter
// and WithRegistry as needed.
func Build(ctx context.Context, model *config.Model, opts ...Option) (*Graph, error) {
	g := NewGraph(model.Frames, opts...)

	for _, cn := range model.Nodes {
		n, err := g.nodeFromConfig(cn)
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}

	for _, cn := range model.Nodes {
		if cn.Input == "" {
			continue
		}
		upstream, ok := g.Node(cn.Input)
		if !ok {
			return nil, fmt.Errorf("%w: %q consumed by %q", ErrUnknownNode, cn.Input, cn.Name)
		}
		n, _ := g.Node(cn.Name)
		if err := n.AttachInputs(upstream); err != nil {
			return nil, err
		}
	}

	if err := g.Validate(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) nodeFromConfig(cn config.Node) (Node, error) {
	switch cn.Kind {
	case config.KindInput:
		return NewInputNode(cn.Name, tensor.Shape(cn.Shape)), nil
	case config.KindTrace:
		cfg := TraceConfig{
			Message:        cn.Trace.Say,
			LogFirst:       cn.Trace.LogFirst,
			LogFrequency:   cn.Trace.LogFrequency,
			LogGradientToo: cn.Trace.LogGradientToo,
			OnlyUpToRow:    cn.Trace.OnlyUpToRow,
			OnlyUpToT:      cn.Trace.OnlyUpToT,
			Format:         cn.Trace.Format,
		}
		return NewTraceNode(cn.Name, cfg, g.traceOut), nil
	case config.KindExtCall:
		return NewExternalCallNode(cn.Name, g.registry), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, cn.Kind)
	}
}
