package graph

import (
	"fmt"
	"strconv"
)

// FrameRange addresses the active time window of a minibatch for one
// evaluation call: every frame, a single step, or a bounded half-open
// interval. Values are immutable; the graph engine constructs one per call.
type FrameRange struct {
	first, second int
	all           bool
}

// AllFrames addresses the whole minibatch width.
func AllFrames() FrameRange {
	return FrameRange{all: true}
}

// NewFrameRange addresses the half-open window [first, second). The window
// must be non-empty; a single step may also be written FrameAt(first).
func NewFrameRange(first, second int) FrameRange {
	if first < 0 || second <= first {
		panic(fmt.Sprintf("graph: invalid frame range [%d, %d)", first, second))
	}
	return FrameRange{first: first, second: second}
}

// FrameAt addresses the single time step t.
func FrameAt(t int) FrameRange {
	return NewFrameRange(t, t+1)
}

// IsAllFrames reports whether the range spans the whole minibatch.
func (fr FrameRange) IsAllFrames() bool {
	return fr.all
}

// Bounds resolves the range against a minibatch that is width frames wide,
// clipping a bounded window that reaches past the end.
func (fr FrameRange) Bounds(width int) (first, second int) {
	if fr.all {
		return 0, width
	}
	first, second = fr.first, fr.second
	if second > width {
		second = width
	}
	if first > second {
		first = second
	}
	return first, second
}

// Extent renders the header fragment naming the range: nothing for all
// frames, the step index for a single step, and an inclusive first..last for
// a longer window, so [2,5) reads 2..4.
func (fr FrameRange) Extent() string {
	switch {
	case fr.all:
		return ""
	case fr.second == fr.first+1:
		return strconv.Itoa(fr.first)
	default:
		return fmt.Sprintf("%d..%d", fr.first, fr.second-1)
	}
}
