package graph

import (
	"fmt"
	"io"
	"os"

	"github.com/vk/tensorgrid/internal/binfile"
	"github.com/vk/tensorgrid/internal/format"
)

// Unbounded is the truncation limit that never clips.
const Unbounded = format.Unbounded

// TraceConfig carries the construction options of a TraceNode.
type TraceConfig struct {
	// Message is printed in every log header.
	Message string

	// LogFirst logs each of the first N minibatches unconditionally;
	// LogFrequency then logs every Kth minibatch (0 disables the periodic
	// part).
	LogFirst     int
	LogFrequency int

	// LogGradientToo also logs during the backward pass.
	LogGradientToo bool

	// OnlyUpToRow and OnlyUpToT truncate each dump.
	OnlyUpToRow int
	OnlyUpToT   int

	Format format.Options
}

// DefaultTraceConfig returns the option defaults used when a trace declares
// nothing but a message.
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		LogFirst:     10,
		LogFrequency: 10,
		OnlyUpToRow:  Unbounded,
		OnlyUpToT:    Unbounded,
		Format:       format.Default(),
	}
}

// TraceNode forwards its single input unchanged and periodically writes a
// formatted snapshot of the value (and optionally the gradient) to a
// diagnostic stream. It never alters the numbers flowing through the graph.
type TraceNode struct {
	nodeBase

	message        string
	logFirst       int
	logFrequency   int
	logGradientToo bool
	onlyUpToRow    int
	onlyUpToT      int
	opts           format.Options

	labels   []string
	runCount int
	out      io.Writer
}

// NewTraceNode creates a trace node writing to out; a nil out falls back to
// standard error.
func NewTraceNode(name string, cfg TraceConfig, out io.Writer) *TraceNode {
	if out == nil {
		out = os.Stderr
	}
	return &TraceNode{
		nodeBase:       newNodeBase(OpTrace, name, 1),
		message:        cfg.Message,
		logFirst:       cfg.LogFirst,
		logFrequency:   cfg.LogFrequency,
		logGradientToo: cfg.LogGradientToo,
		onlyUpToRow:    cfg.OnlyUpToRow,
		onlyUpToT:      cfg.OnlyUpToT,
		opts:           cfg.Format,
		out:            out,
	}
}

// Validate settles the shape, loads the label mapping when it is first
// needed, and resets the run counter. The mapping is read only on the final
// pass, only when category or sparse formatting wants it, and only while no
// mapping is loaded yet, so re-validation does not reload the file.
func (n *TraceNode) Validate(finalPass bool) error {
	if err := n.validateUnaryMap(finalPass); err != nil {
		return err
	}
	if finalPass &&
		(n.opts.CategoryLabel || n.opts.Sparse) &&
		n.opts.LabelMappingFile != "" &&
		len(n.labels) == 0 {
		labels, err := format.LoadLabelFile(n.opts.LabelMappingFile)
		if err != nil {
			return fmt.Errorf("graph: trace %q: %w", n.name, err)
		}
		n.labels = labels
	}
	n.runCount = 0
	return nil
}

// BeginForwardProp advances the run counter, so the first minibatch after
// validation is run 1.
func (n *TraceNode) BeginForwardProp() {
	n.runCount++
}

// ForwardProp copies the input window to the output window unchanged, then
// logs in value mode.
func (n *TraceNode) ForwardProp(fr FrameRange) error {
	rank := n.elementwiseRank()
	out := n.ValueTensorFor(rank, fr)
	in := n.inputs[0].ValueTensorFor(rank, fr)
	if err := out.AssignFrom(in); err != nil {
		return fmt.Errorf("graph: trace %q forward: %w", n.name, err)
	}
	return n.log(fr, false)
}

// BackpropTo accumulates the output gradient window into the input gradient
// window, then logs in gradient mode when configured to.
func (n *TraceNode) BackpropTo(inputIndex int, fr FrameRange) error {
	if inputIndex != 0 {
		return fmt.Errorf("%w: trace %q has no input %d", ErrArity, n.name, inputIndex)
	}
	rank := n.elementwiseRank()
	inGrad := n.inputs[0].GradientTensorFor(rank, fr)
	outGrad := n.GradientTensorFor(rank, fr)
	if err := inGrad.AddFrom(outGrad); err != nil {
		return fmt.Errorf("graph: trace %q backward: %w", n.name, err)
	}
	if n.logGradientToo {
		return n.log(fr, true)
	}
	return nil
}

// log writes one snapshot if the current run is due. The prologue goes out
// exactly once, on run 1, whether or not that run's body is due.
func (n *TraceNode) log(fr FrameRange, gradient bool) error {
	if n.runCount == 1 {
		if _, err := io.WriteString(n.out, format.Processed(n.name, n.opts.Prologue, n.runCount)); err != nil {
			return fmt.Errorf("graph: trace %q: %w", n.name, err)
		}
	}
	due := n.runCount <= n.logFirst ||
		(n.logFrequency != 0 && (n.runCount-1)%n.logFrequency == 0)
	if !due {
		return nil
	}

	gradientTag := ""
	if gradient {
		gradientTag = "(gradient) "
	}
	input := n.inputs[0]
	header := fmt.Sprintf("------- Trace[%s] %s %s--> %s\n",
		fr.Extent(), n.message, gradientTag, input.Prototype())
	if _, err := io.WriteString(n.out, header); err != nil {
		return fmt.Errorf("graph: trace %q: %w", n.name, err)
	}

	f := MinibatchFormat{
		MaxRows:           n.onlyUpToRow,
		MaxTimesteps:      n.onlyUpToT,
		Transpose:         n.opts.Transpose,
		CategoryLabel:     n.opts.CategoryLabel,
		Sparse:            n.opts.Sparse,
		Labels:            n.labels,
		SequenceSeparator: format.Processed(n.name, n.opts.SequenceSeparator, n.runCount),
		SequencePrologue:  format.Processed(n.name, n.opts.SequencePrologue, n.runCount),
		SequenceEpilogue:  format.Processed(n.name, n.opts.SequenceEpilogue, n.runCount),
		ElementSeparator:  format.Processed(n.name, n.opts.ElementSeparator, n.runCount),
		SampleSeparator:   format.Processed(n.name, n.opts.SampleSeparator, n.runCount),
		ValueFormat:       n.opts.ValueFormat(),
		GradientInstead:   gradient,
	}
	return input.WriteMinibatch(n.out, fr, f)
}

// Save writes the trace record after the base record, in fixed field order.
func (n *TraceNode) Save(w *binfile.Writer) {
	n.saveBase(w)
	w.WriteString(n.message)
	w.WriteInt(n.logFirst)
	w.WriteInt(n.logFrequency)
	w.WriteBool(n.logGradientToo)
	n.opts.Save(w)
	w.WriteInt(n.onlyUpToRow)
	w.WriteInt(n.onlyUpToT)
}

// Load reads the record written by Save.
func (n *TraceNode) Load(r *binfile.Reader) error {
	if err := n.loadBase(r); err != nil {
		return err
	}
	n.message = r.ReadString()
	n.logFirst = r.ReadInt()
	n.logFrequency = r.ReadInt()
	n.logGradientToo = r.ReadBool()
	n.opts.Load(r)
	n.onlyUpToRow = r.ReadInt()
	n.onlyUpToT = r.ReadInt()
	return r.Err()
}
