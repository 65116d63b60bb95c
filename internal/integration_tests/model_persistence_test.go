package integration_tests

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/tensorgrid/internal/extfunc"
	"github.com/vk/tensorgrid/internal/graph"
	"github.com/vk/tensorgrid/internal/testutil"
)

func TestSavedModelRoundTrips(t *testing.T) {
	graphHCL := `
graph {
  frames = 3
}

node "input" "x" {
  shape = [2, 2]
}

node "extcall" "relu" {
  input = "x"
}

node "trace" "probe" {
  input            = "relu"
  say              = "rectified"
  log_first        = 2
  log_frequency    = 7
  log_gradient_too = true
  only_up_to_row   = 3

  format {
    sparse             = true
    transpose          = false
    precision          = ".2"
    sequence_prologue  = "> "
    element_separator  = ", "
  }
}
`
	result := testutil.RunGraphTest(t, map[string]string{"main.hcl": graphHCL}, 1)
	require.NoError(t, result.Err)

	saved, err := os.ReadFile(result.ModelPath)
	require.NoError(t, err)
	require.NotEmpty(t, saved)

	// Load the persisted model into a fresh graph and save it again: the
	// fixed field order makes the round trip byte-identical.
	loaded := graph.NewGraph(3, graph.WithRegistry(extfunc.New()))
	require.NoError(t, loaded.Load(bytes.NewReader(saved)))
	require.NoError(t, loaded.Validate(context.Background()))

	names := make([]string, 0, 3)
	for _, n := range loaded.Nodes() {
		names = append(names, n.Name())
	}
	assert.Equal(t, []string{"x", "relu", "probe"}, names)

	var again bytes.Buffer
	require.NoError(t, loaded.Save(&again))
	assert.Equal(t, saved, again.Bytes())
}
