// Package format holds the formatting knobs applied when a node's minibatch
// values are written to a diagnostic stream: how values are interpreted
// (plain, category label, sparse), which separators frame sequences, samples
// and elements, and an optional label-mapping file for pretty-printing
// category indices.
package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/vk/tensorgrid/internal/binfile"
)

// Unbounded is the truncation limit that never clips. It survives the
// persisted int64 encoding unchanged, so saved models round-trip it exactly.
const Unbounded = math.MaxInt32

// Options bundles the formatting configuration for one trace target.
//
// Separator and prologue/epilogue strings are template fragments: see
// Processed for the substitutions applied before writing.
type Options struct {
	// CategoryLabel prints the argmax index of each sample instead of the
	// full value vector.
	CategoryLabel bool

	// LabelMappingFile optionally names a file mapping category indices to
	// label strings, one label per line.
	LabelMappingFile string

	// Sparse prints only the non-zero entries of each sample.
	Sparse bool

	// Transpose writes one line per sample; otherwise one line per element row.
	Transpose bool

	Prologue string
	Epilogue string

	SequenceSeparator string
	SequencePrologue  string
	SequenceEpilogue  string
	ElementSeparator  string
	SampleSeparator   string

	// PrecisionFormat is spliced into the value verb, e.g. ".4" for "%.4f".
	PrecisionFormat string
}

// Default returns the options used when a trace declares no format block.
func Default() Options {
	return Options{
		Transpose:        true,
		SequenceEpilogue: "\n",
		ElementSeparator: " ",
		SampleSeparator:  "\n",
	}
}

// ValueFormat returns the fmt verb used for a single value: plain float by
// default, string when category labels are resolved through a mapping file,
// and a bare index when they are not.
func (o Options) ValueFormat() string {
	switch {
	case !o.CategoryLabel:
		return "%" + o.PrecisionFormat + "f"
	case o.LabelMappingFile != "":
		return "%" + o.PrecisionFormat + "s"
	default:
		return "%" + o.PrecisionFormat + "d"
	}
}

// Save writes the options block in its fixed field order.
func (o Options) Save(w *binfile.Writer) {
	w.WriteBool(o.CategoryLabel)
	w.WriteString(o.LabelMappingFile)
	w.WriteBool(o.Sparse)
	w.WriteBool(o.Transpose)
	w.WriteString(o.Prologue)
	w.WriteString(o.Epilogue)
	w.WriteString(o.SequenceSeparator)
	w.WriteString(o.SequencePrologue)
	w.WriteString(o.SequenceEpilogue)
	w.WriteString(o.ElementSeparator)
	w.WriteString(o.SampleSeparator)
	w.WriteString(o.PrecisionFormat)
}

// Load reads the options block written by Save.
func (o *Options) Load(r *binfile.Reader) {
	o.CategoryLabel = r.ReadBool()
	o.LabelMappingFile = r.ReadString()
	o.Sparse = r.ReadBool()
	o.Transpose = r.ReadBool()
	o.Prologue = r.ReadString()
	o.Epilogue = r.ReadString()
	o.SequenceSeparator = r.ReadString()
	o.SequencePrologue = r.ReadString()
	o.SequenceEpilogue = r.ReadString()
	o.ElementSeparator = r.ReadString()
	o.SampleSeparator = r.ReadString()
	o.PrecisionFormat = r.ReadString()
}

// Processed expands a separator or prologue template fragment: literal \n and
// \t escapes become real characters, %s becomes the node name, and %d becomes
// the current run count.
func Processed(nodeName, fragment string, runCount int) string {
	fragment = strings.ReplaceAll(fragment, `\n`, "\n")
	fragment = strings.ReplaceAll(fragment, `\t`, "\t")
	if strings.Contains(fragment, "%s") {
		fragment = strings.ReplaceAll(fragment, "%s", nodeName)
	}
	if strings.Contains(fragment, "%d") {
		fragment = strings.ReplaceAll(fragment, "%d", strconv.Itoa(runCount))
	}
	return fragment
}
