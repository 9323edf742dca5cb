package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/euphroshub/minimalist-stack/internal/app"
	"github.com/euphroshub/minimalist-stack/internal/hcl"
	"github.com/euphroshub/minimalist-stack/internal/registry"
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

// HarnessResult holds the outcomes of an application run.
type HarnessResult struct {
	Root      string
	LogOutput string
	Err       error
	App       *app.App
}

// WriteTree creates files below root. Keys are slash-separated relative
// paths.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, contents := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	}
}

// NewApp builds an application over a fresh project tree holding files. A
// "pipeline.hcl" entry in files is used as the pipeline file. Log output is
// captured at debug level and printed on failure.
func NewApp(t *testing.T, command string, files map[string]string, modules ...registry.Module) (*app.App, *SafeBuffer, string) {
	t.Helper()

	root := t.TempDir()
	WriteTree(t, root, files)

	cfg, err := app.NewConfig(app.Config{
		Command:    command,
		Root:       root,
		ConfigPath: filepath.Join(root, "pipeline.hcl"),
		LogLevel:   "debug",
	})
	require.NoError(t, err)

	logs := &SafeBuffer{}
	t.Cleanup(func() {
		if t.Failed() || os.Getenv("PIPELINE_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	a, err := app.NewApp(logs, cfg, hcl.NewLoader(), modules...)
	require.NoError(t, err)
	return a, logs, root
}

// RunApp builds an application with NewApp and runs its command once.
func RunApp(ctx context.Context, t *testing.T, command string, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	a, logs, root := NewApp(t, command, files, modules...)
	err := a.Run(ctx)
	return &HarnessResult{Root: root, LogOutput: logs.String(), Err: err, App: a}
}
