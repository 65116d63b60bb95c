package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/tensorgrid/internal/app"
	"github.com/vk/tensorgrid/internal/extfunc"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput   string
	TraceOutput string
	ModelPath   string
	Err         error
	App         *app.App
}

// RunGraphTest provides a standardized harness for running integration tests
// using a default background context.
func RunGraphTest(t *testing.T, files map[string]string, steps int, modules ...extfunc.Module) *HarnessResult {
	t.Helper()
	return RunGraphTestWithContext(context.Background(), t, files, steps, modules...)
}

// RunGraphTestWithContext writes the given HCL files into a temporary
// directory, points the app at it, and evaluates the configured number of
// minibatches. Trace output is captured into the result, and the model is
// saved next to the config under ModelPath.
func RunGraphTestWithContext(ctx context.Context, t *testing.T, files map[string]string, steps int, modules ...extfunc.Module) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	graphDir := filepath.Join(tmpDir, "graph")
	require.NoError(t, os.Mkdir(graphDir, 0755))

	// The test provides relative paths (e.g. "sub/extra.hcl"), which
	// naturally creates the subdirectory structure within the graph dir.
	for name, content := range files {
		filePath := filepath.Join(graphDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	tracePath := filepath.Join(tmpDir, "trace.out")
	modelPath := filepath.Join(tmpDir, "model.tgm")
	appConfig := &app.Config{
		GraphPath: graphDir,
		Steps:     steps,
		LogLevel:  "debug",
		LogFormat: "text",
		TraceOut:  tracePath,
		SaveModel: modelPath,
	}

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, appConfig, modules...)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(ctx)

	// A missing trace file just means the run failed before the stream was
	// opened.
	trace, _ := os.ReadFile(tracePath)

	if os.Getenv("TGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput:   logBuffer.String(),
		TraceOutput: string(trace),
		ModelPath:   modelPath,
		Err:         runErr,
		App:         testApp,
	}
}
