package integration_tests

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/tensorgrid/internal/testutil"
)

func TestTraceCadenceEndToEnd(t *testing.T) {
	graphHCL := `
graph {
  frames = 1
}

node "input" "x" {
  shape = [2]
}

node "trace" "probe" {
  input         = "x"
  say           = "cadence"
  log_first     = 3
  log_frequency = 5

  format {
    precision = ".1"
  }
}
`
	result := testutil.RunGraphTest(t, map[string]string{"main.hcl": graphHCL}, 16)
	require.NoError(t, result.Err)

	// Runs 1, 2, 3 from log_first, then runs 6, 11, 16 from the period.
	assert.Equal(t, 6, strings.Count(result.TraceOutput, "------- Trace["))
}

func TestTracePrologueWrittenOnce(t *testing.T) {
	graphHCL := `
graph {
  frames = 1
}

node "input" "x" {
  shape = [2]
}

node "trace" "probe" {
  input     = "x"
  say       = "values"
  log_first = 1

  format {
    prologue  = "=== %s ===\\n"
    precision = ".1"
  }
}
`
	result := testutil.RunGraphTest(t, map[string]string{"main.hcl": graphHCL}, 3)
	require.NoError(t, result.Err)

	assert.Equal(t, 1, strings.Count(result.TraceOutput, "=== probe ==="))
}

func TestTraceGradientLogged(t *testing.T) {
	graphHCL := `
graph {
  frames = 1
}

node "input" "x" {
  shape = [2]
}

node "trace" "probe" {
  input            = "x"
  say              = "grad"
  log_first        = 1
  log_gradient_too = true

  format {
    precision = ".1"
  }
}
`
	result := testutil.RunGraphTest(t, map[string]string{"main.hcl": graphHCL}, 1)
	require.NoError(t, result.Err)

	assert.Contains(t, result.TraceOutput, "grad --> x = Input () [2 x *]")
	assert.Contains(t, result.TraceOutput, "grad (gradient) --> x = Input () [2 x *]")
	// The trace node is the sink, so the input gradient it dumps is the seed.
	assert.Contains(t, result.TraceOutput, "1.0 1.0")
}
