package testutil

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/specialistvlad/perplex/internal/app"
	"github.com/specialistvlad/perplex/internal/hclspec"
	"github.com/stretchr/testify/require"
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
	Stdout      string
	LogOutput   string
	Diagnostics string
	Err         error
	Fs          afero.Fs
}

// RunGeneration provides a standardized harness for running the generator
// using a default background context.
func RunGeneration(t *testing.T, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()
	return RunGenerationWithContext(context.Background(), t, files, cfg)
}

// RunGenerationWithContext writes files into an in-memory filesystem and runs
// the generator over it with cfg. Logging is forced to debug level.
func RunGenerationWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	config, err := app.NewConfig(cfg)
	require.NoError(t, err)

	stdout := &bytes.Buffer{}
	logBuffer := &SafeBuffer{}
	testApp := app.NewApp(stdout, logBuffer, config, hclspec.NewParser(), fs)

	runErr := testApp.Run(ctx)

	diags := &bytes.Buffer{}
	if runErr != nil {
		testApp.Report(diags, runErr)
	}

	if os.Getenv("PERPLEX_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		Stdout:      stdout.String(),
		LogOutput:   logBuffer.String(),
		Diagnostics: diags.String(),
		Err:         runErr,
		Fs:          fs,
	}
}
