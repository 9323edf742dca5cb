package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/euphroshub/minimalist-stack/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-h"})

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_InvalidPipelineFile(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pipeline.hcl"), []byte("sources {\n  styles = [\n"), 0o600))

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, []string{"--root", root, "build"})

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestRun_MissingExplicitPipelineFile(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, []string{"-c", filepath.Join(t.TempDir(), "nope.hcl")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestRun_UnknownCommandExitsWithUsageCode(t *testing.T) {
	t.Parallel()

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, []string{"--root", t.TempDir(), "deploy"})

	// --- Assert ---
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "unknown command 'deploy'")
}

func TestRun_PrintsTaskTree(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"--root", t.TempDir(), "--log-level", "error", "--tasks", "production"})

	// --- Assert ---
	require.NoError(t, err)
	want := strings.Join([]string{
		"<series> production",
		"├── <series> build",
		"│   ├── clean",
		"│   └── <parallel> assets",
		"│       ├── html",
		"│       ├── styles",
		"│       ├── app",
		"│       ├── components",
		"│       ├── images",
		"│       ├── webp",
		"│       └── svg",
		"└── <parallel> minify",
		"    ├── minify-css",
		"    └── minify-js",
		"",
	}, "\n")
	assert.Equal(t, want, out.String())
}

func TestRun_BuildEmptyProject(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"--root", root})

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Command finished")
	assert.NoDirExists(t, filepath.Join(root, "dist", "assets"))
}
