package integration_tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/tensorgrid/internal/testutil"
)

func TestRunHonorsCancelledContext(t *testing.T) {
	graphHCL := `
node "input" "x" {
  shape = [2]
}

node "trace" "probe" {
  input = "x"
  say   = "never"
}
`
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := testutil.RunGraphTestWithContext(ctx, t, map[string]string{"main.hcl": graphHCL}, 4)
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestRunLogsEvaluationLifecycle(t *testing.T) {
	graphHCL := `
node "input" "x" {
  shape = [1]
}

node "trace" "probe" {
  input = "x"
  say   = "x"
}
`
	result := testutil.RunGraphTest(t, map[string]string{"main.hcl": graphHCL}, 2)
	require.NoError(t, result.Err)

	assert.Contains(t, result.LogOutput, "Graph validated.")
	assert.Contains(t, result.LogOutput, "Starting evaluation.")
	assert.Contains(t, result.LogOutput, "Evaluation finished.")
	assert.Contains(t, result.LogOutput, "Model saved.")
	require.NotNil(t, result.App)
	assert.Equal(t, 1, result.App.Model().Frames)
}
