package graph

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MinibatchFormat carries fully resolved formatting parameters for one
// WriteMinibatch call. Separator fragments are final strings; template
// substitution happens in the caller, before each call.
type MinibatchFormat struct {
	// MaxRows and MaxTimesteps truncate the rendered window. A clipped
	// dimension ends with an ellipsis.
	MaxRows      int
	MaxTimesteps int

	// Transpose renders one line per time step; otherwise one line per
	// sample row.
	Transpose bool

	// CategoryLabel reduces each time step to its argmax row index, printed
	// through Labels when a mapping is present.
	CategoryLabel bool

	// Sparse prints only non-zero entries, as row:value pairs.
	Sparse bool

	Labels []string

	SequenceSeparator string
	SequencePrologue  string
	SequenceEpilogue  string
	ElementSeparator  string
	SampleSeparator   string

	// ValueFormat is the fmt verb for one value, e.g. "%.4f".
	ValueFormat string

	// GradientInstead renders the gradient buffer rather than the value.
	GradientInstead bool
}

// WriteMinibatch renders the node's buffer over the given frame range. The
// window is treated as one sequence: rows are the flattened sample elements,
// columns the active time steps.
func (b *nodeBase) WriteMinibatch(w io.Writer, fr FrameRange, f MinibatchFormat) error {
	src := b.value
	kind := "value"
	if f.GradientInstead {
		src = b.gradient
		kind = "gradient"
	}
	if src == nil {
		return fmt.Errorf("graph: node %q has no %s buffer to write", b.name, kind)
	}

	first, second := fr.Bounds(b.frames)
	width := second - first
	rows := b.sampleShape.NumElements()
	data := src.DataPtr()
	at := func(row, t int) float32 {
		return data[row*b.frames+first+t]
	}

	steps, stepsClipped := clipTo(width, f.MaxTimesteps)
	visRows, rowsClipped := clipTo(rows, f.MaxRows)

	var sb strings.Builder
	sb.WriteString(f.SequencePrologue)

	switch {
	case f.Sparse:
		for t := 0; t < steps; t++ {
			if t > 0 {
				sb.WriteString(f.SampleSeparator)
			}
			wrote := 0
			for r := 0; r < visRows; r++ {
				v := at(r, t)
				if v == 0 {
					continue
				}
				if wrote > 0 {
					sb.WriteString(f.ElementSeparator)
				}
				sb.WriteString(strconv.Itoa(r))
				sb.WriteByte(':')
				fmt.Fprintf(&sb, f.ValueFormat, v)
				wrote++
			}
			if rowsClipped {
				if wrote > 0 {
					sb.WriteString(f.ElementSeparator)
				}
				sb.WriteString("...")
			}
		}
		if stepsClipped {
			sb.WriteString(f.SampleSeparator)
			sb.WriteString("...")
		}
	case f.CategoryLabel:
		for t := 0; t < steps; t++ {
			if t > 0 {
				sb.WriteString(f.SampleSeparator)
			}
			idx := 0
			for r := 1; r < rows; r++ {
				if at(r, t) > at(idx, t) {
					idx = r
				}
			}
			switch {
			case len(f.Labels) == 0:
				fmt.Fprintf(&sb, f.ValueFormat, idx)
			case idx < len(f.Labels):
				fmt.Fprintf(&sb, f.ValueFormat, f.Labels[idx])
			default:
				// Mapping too short for this category; fall back to the
				// numeric index.
				sb.WriteString(strconv.Itoa(idx))
			}
		}
		if stepsClipped {
			sb.WriteString(f.SampleSeparator)
			sb.WriteString("...")
		}
	case f.Transpose:
		for t := 0; t < steps; t++ {
			if t > 0 {
				sb.WriteString(f.SampleSeparator)
			}
			for r := 0; r < visRows; r++ {
				if r > 0 {
					sb.WriteString(f.ElementSeparator)
				}
				fmt.Fprintf(&sb, f.ValueFormat, at(r, t))
			}
			if rowsClipped {
				sb.WriteString(f.ElementSeparator)
				sb.WriteString("...")
			}
		}
		if stepsClipped {
			sb.WriteString(f.SampleSeparator)
			sb.WriteString("...")
		}
	default:
		for r := 0; r < visRows; r++ {
			if r > 0 {
				sb.WriteString(f.SampleSeparator)
			}
			for t := 0; t < steps; t++ {
				if t > 0 {
					sb.WriteString(f.ElementSeparator)
				}
				fmt.Fprintf(&sb, f.ValueFormat, at(r, t))
			}
			if stepsClipped {
				sb.WriteString(f.ElementSeparator)
				sb.WriteString("...")
			}
		}
		if rowsClipped {
			sb.WriteString(f.SampleSeparator)
			sb.WriteString("...")
		}
	}

	sb.WriteString(f.SequenceEpilogue)
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("graph: write minibatch for %q: %w", b.name, err)
	}
	return nil
}

func clipTo(n, limit int) (visible int, clipped bool) {
	if limit < 0 {
		limit = 0
	}
	if n > limit {
		return limit, true
	}
	return n, false
}
