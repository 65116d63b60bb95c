package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/tensorgrid/internal/format"
)

// fileRoot decodes the top-level blocks of one .hcl file.
type fileRoot struct {
	Graph *graphBlock  `hcl:"graph,block"`
	Nodes []*nodeBlock `hcl:"node,block"`
}

type graphBlock struct {
	Frames  *int    `hcl:"frames,optional"`
	Library *string `hcl:"library,optional"`
}

// nodeBlock is the raw shape of a `node "<kind>" "<name>"` block. All
// attributes are optional pointers so an unset value is distinguishable from
// an explicit zero; kind-specific requirements are enforced in translation.
type nodeBlock struct {
	Kind string `hcl:"kind,label"`
	Name string `hcl:"name,label"`

	Input *string `hcl:"input,optional"`
	Shape []int   `hcl:"shape,optional"`

	Say            *string `hcl:"say,optional"`
	LogFirst       *int    `hcl:"log_first,optional"`
	LogFrequency   *int    `hcl:"log_frequency,optional"`
	LogGradientToo *bool   `hcl:"log_gradient_too,optional"`
	OnlyUpToRow    *int    `hcl:"only_up_to_row,optional"`
	OnlyUpToT      *int    `hcl:"only_up_to_t,optional"`

	Format *formatBlock `hcl:"format,block"`
}

type formatBlock struct {
	CategoryLabel    *bool   `hcl:"category_label,optional"`
	LabelMappingFile *string `hcl:"label_mapping_file,optional"`
	Sparse           *bool   `hcl:"sparse,optional"`
	Transpose        *bool   `hcl:"transpose,optional"`
	Precision        *string `hcl:"precision,optional"`

	Prologue *string `hcl:"prologue,optional"`
	Epilogue *string `hcl:"epilogue,optional"`

	SequenceSeparator *string `hcl:"sequence_separator,optional"`
	SequencePrologue  *string `hcl:"sequence_prologue,optional"`
	SequenceEpilogue  *string `hcl:"sequence_epilogue,optional"`
	ElementSeparator  *string `hcl:"element_separator,optional"`
	SampleSeparator   *string `hcl:"sample_separator,optional"`
}

// evalContext exposes the values configuration may reference, currently just
// the `unbounded` truncation sentinel.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"unbounded": cty.NumberIntVal(format.Unbounded),
		},
	}
}
