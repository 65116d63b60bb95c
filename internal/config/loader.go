package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/tensorgrid/internal/ctxlog"
	"github.com/vk/tensorgrid/internal/fsutil"
)

// ErrInvalidConfig marks a structurally broken configuration: unknown kinds,
// duplicate or dangling names, missing requirements.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Load reads every .hcl file at path (a file or a directory searched
// recursively) and merges the declarations into one settled Model.
func Load(ctx context.Context, path string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.Discover(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no .hcl files under %s", ErrInvalidConfig, path)
	}
	logger.Debug("Discovered configuration files.", "count", len(files))

	parser := hclparse.NewParser()
	model := &Model{Frames: DefaultFrames}
	seenGraphBlock := false
	names := make(map[string]struct{})

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("config: parse %s: %w", file, diags)
		}
		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalContext(), &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("config: decode %s: %w", file, diags)
		}

		if root.Graph != nil {
			if seenGraphBlock {
				return nil, fmt.Errorf("%w: second graph block in %s", ErrInvalidConfig, file)
			}
			seenGraphBlock = true
			if root.Graph.Frames != nil {
				model.Frames = *root.Graph.Frames
			}
			if root.Graph.Library != nil {
				model.Library = *root.Graph.Library
			}
		}

		for _, nb := range root.Nodes {
			node, err := translateNode(nb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			if _, dup := names[node.Name]; dup {
				return nil, fmt.Errorf("%w: duplicate node %q", ErrInvalidConfig, node.Name)
			}
			names[node.Name] = struct{}{}
			model.Nodes = append(model.Nodes, node)
		}
	}

	if model.Frames <= 0 {
		return nil, fmt.Errorf("%w: frames must be positive, got %d", ErrInvalidConfig, model.Frames)
	}
	for _, n := range model.Nodes {
		if n.Input == "" {
			continue
		}
		if n.Input == n.Name {
			return nil, fmt.Errorf("%w: node %q consumes itself", ErrInvalidConfig, n.Name)
		}
		if _, ok := names[n.Input]; !ok {
			return nil, fmt.Errorf("%w: node %q consumes unknown node %q", ErrInvalidConfig, n.Name, n.Input)
		}
	}

	logger.Debug("Configuration loaded.", "files", len(files), "nodes", len(model.Nodes), "frames", model.Frames)
	return model, nil
}

// translateNode settles one raw node block: kind-specific requirements are
// enforced and defaults applied.
func translateNode(nb *nodeBlock) (Node, error) {
	switch nb.Kind {
	case KindInput:
		if nb.Input != nil {
			return Node{}, fmt.Errorf("%w: input node %q cannot consume another node", ErrInvalidConfig, nb.Name)
		}
		if len(nb.Shape) == 0 {
			return Node{}, fmt.Errorf("%w: input node %q requires a shape", ErrInvalidConfig, nb.Name)
		}
		for _, d := range nb.Shape {
			if d <= 0 {
				return Node{}, fmt.Errorf("%w: input node %q has non-positive dimension %d", ErrInvalidConfig, nb.Name, d)
			}
		}
		if hasTraceAttrs(nb) {
			return Node{}, fmt.Errorf("%w: trace options are not valid on input node %q", ErrInvalidConfig, nb.Name)
		}
		return Node{Kind: KindInput, Name: nb.Name, Shape: nb.Shape}, nil

	case KindTrace:
		if nb.Input == nil || *nb.Input == "" {
			return Node{}, fmt.Errorf("%w: trace node %q requires an input", ErrInvalidConfig, nb.Name)
		}
		if nb.Shape != nil {
			return Node{}, fmt.Errorf("%w: shape is only valid on input nodes, not trace %q", ErrInvalidConfig, nb.Name)
		}
		tr, err := translateTrace(nb)
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: KindTrace, Name: nb.Name, Input: *nb.Input, Trace: &tr}, nil

	case KindExtCall:
		if nb.Input == nil || *nb.Input == "" {
			return Node{}, fmt.Errorf("%w: extcall node %q requires an input", ErrInvalidConfig, nb.Name)
		}
		if nb.Shape != nil {
			return Node{}, fmt.Errorf("%w: shape is only valid on input nodes, not extcall %q", ErrInvalidConfig, nb.Name)
		}
		if hasTraceAttrs(nb) {
			return Node{}, fmt.Errorf("%w: trace options are not valid on extcall node %q", ErrInvalidConfig, nb.Name)
		}
		return Node{Kind: KindExtCall, Name: nb.Name, Input: *nb.Input}, nil

	default:
		return Node{}, fmt.Errorf("%w: node %q has unknown kind %q", ErrInvalidConfig, nb.Name, nb.Kind)
	}
}

func translateTrace(nb *nodeBlock) (Trace, error) {
	tr := defaultTrace()
	if nb.Say != nil {
		tr.Say = *nb.Say
	}
	if nb.LogFirst != nil {
		tr.LogFirst = *nb.LogFirst
	}
	if nb.LogFrequency != nil {
		tr.LogFrequency = *nb.LogFrequency
	}
	if nb.LogGradientToo != nil {
		tr.LogGradientToo = *nb.LogGradientToo
	}
	if nb.OnlyUpToRow != nil {
		tr.OnlyUpToRow = *nb.OnlyUpToRow
	}
	if nb.OnlyUpToT != nil {
		tr.OnlyUpToT = *nb.OnlyUpToT
	}
	if tr.LogFirst < 0 || tr.LogFrequency < 0 {
		return Trace{}, fmt.Errorf("%w: trace node %q has negative log cadence", ErrInvalidConfig, nb.Name)
	}
	if tr.OnlyUpToRow < 0 || tr.OnlyUpToT < 0 {
		return Trace{}, fmt.Errorf("%w: trace node %q has negative truncation limit", ErrInvalidConfig, nb.Name)
	}

	if fb := nb.Format; fb != nil {
		if fb.CategoryLabel != nil {
			tr.Format.CategoryLabel = *fb.CategoryLabel
		}
		if fb.LabelMappingFile != nil {
			tr.Format.LabelMappingFile = *fb.LabelMappingFile
		}
		if fb.Sparse != nil {
			tr.Format.Sparse = *fb.Sparse
		}
		if fb.Transpose != nil {
			tr.Format.Transpose = *fb.Transpose
		}
		if fb.Precision != nil {
			tr.Format.PrecisionFormat = *fb.Precision
		}
		if fb.Prologue != nil {
			tr.Format.Prologue = *fb.Prologue
		}
		if fb.Epilogue != nil {
			tr.Format.Epilogue = *fb.Epilogue
		}
		if fb.SequenceSeparator != nil {
			tr.Format.SequenceSeparator = *fb.SequenceSeparator
		}
		if fb.SequencePrologue != nil {
			tr.Format.SequencePrologue = *fb.SequencePrologue
		}
		if fb.SequenceEpilogue != nil {
			tr.Format.SequenceEpilogue = *fb.SequenceEpilogue
		}
		if fb.ElementSeparator != nil {
			tr.Format.ElementSeparator = *fb.ElementSeparator
		}
		if fb.SampleSeparator != nil {
			tr.Format.SampleSeparator = *fb.SampleSeparator
		}
	}
	return tr, nil
}

func hasTraceAttrs(nb *nodeBlock) bool {
	return nb.Say != nil || nb.LogFirst != nil || nb.LogFrequency != nil ||
		nb.LogGradientToo != nil || nb.OnlyUpToRow != nil || nb.OnlyUpToT != nil ||
		nb.Format != nil
}
