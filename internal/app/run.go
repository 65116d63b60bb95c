package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vk/tensorgrid/internal/ctxlog"
	"github.com/vk/tensorgrid/internal/graph"
)

// Run executes the main application logic: build the graph from the loaded
// model, evaluate the configured number of minibatches forward and backward,
// and optionally persist the model.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	traceOut, closeTrace, err := a.openTraceOut()
	if err != nil {
		return err
	}
	defer closeTrace()

	a.logger.Debug("Building computation graph from config model...")
	g, err := graph.Build(ctx, a.model, graph.WithRegistry(a.registry), graph.WithTraceWriter(traceOut))
	if err != nil {
		return fmt.Errorf("failed to build computation graph: %w", err)
	}
	a.logger.Debug("Computation graph built.", "node_count", len(g.Nodes()))

	if len(g.Nodes()) == 0 {
		a.logger.Warn("No nodes found in graph, evaluation not required.")
		return nil
	}

	sink := g.Sink()
	a.logger.Info("Starting evaluation.", "steps", a.appCfg.Steps, "frames", g.Frames(), "sink", sink.Name())
	all := graph.AllFrames()
	for step := 1; step <= a.appCfg.Steps; step++ {
		if err := a.feedInputs(g, step); err != nil {
			return err
		}
		if err := g.ForwardProp(ctx, all); err != nil {
			return fmt.Errorf("step %d forward: %w", step, err)
		}
		if err := g.Backprop(ctx, sink.Name(), all); err != nil {
			return fmt.Errorf("step %d backward: %w", step, err)
		}
	}
	a.logger.Info("Evaluation finished.", "steps", a.appCfg.Steps)

	if a.appCfg.SaveModel != "" {
		if err := a.saveModel(g); err != nil {
			return err
		}
		a.logger.Info("Model saved.", "path", a.appCfg.SaveModel)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// feedInputs loads every input node with a deterministic ramp derived from
// the step number, so runs are reproducible.
func (a *App) feedInputs(g *graph.Graph, step int) error {
	for _, in := range g.InputNodes() {
		values := make([]float32, in.SampleShape().NumElements()*g.Frames())
		for j := range values {
			values[j] = float32(j + step)
		}
		if err := in.Feed(values); err != nil {
			return fmt.Errorf("feeding input %q: %w", in.Name(), err)
		}
	}
	return nil
}

// openTraceOut resolves the trace stream: a file when configured, standard
// error otherwise.
func (a *App) openTraceOut() (io.Writer, func(), error) {
	if a.appCfg.TraceOut == "" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.Create(a.appCfg.TraceOut)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func (a *App) saveModel(g *graph.Graph) error {
	f, err := os.Create(a.appCfg.SaveModel)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	if err := g.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to save model: %w", err)
	}
	return f.Close()
}
