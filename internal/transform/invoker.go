package transform

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
	"github.com/euphroshub/minimalist-stack/internal/fsutil"
	"golang.org/x/sync/errgroup"
)

// File is a unit of content flowing through a transformer.
type File struct {
	// Path is the on-disk source path. It is empty for generated outputs.
	Path string
	// Rel is the slash path relative to the selector base for inputs, and
	// relative to the output directory for outputs.
	Rel string
	// Contents holds the file bytes.
	Contents []byte
}

// Transformer applies exactly one external transformation to a file. It
// may return zero outputs (the input is skipped), one, or several (for
// example a compiled file plus its source map).
type Transformer interface {
	Name() string
	Transform(ctx context.Context, in *File) ([]*File, error)
}

// FileError reports a transformation failure for one input file.
type FileError struct {
	Path        string
	Transformer string
	Err         error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Transformer, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Invoker reads the files chosen by a selector, passes each through one
// transformer and writes the results below OutDir.
type Invoker struct {
	Selector    *fsutil.Selector
	Root        string
	OutDir      string
	Transformer Transformer
	// Concurrency bounds the number of files processed at once. Zero means
	// runtime.NumCPU().
	Concurrency int
}

// Run processes every selected file and returns once all outputs are on
// disk. No selected files is a successful, empty run.
func (inv *Invoker) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("transformer", inv.Transformer.Name())

	matches, err := inv.Selector.Expand(inv.Root)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		logger.Debug("No input files matched.", "patterns", inv.Selector.Patterns())
		return nil
	}
	logger.Debug("Input files selected.", "count", len(matches))

	limit := inv.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(limit)

	var written atomic.Int64
	for _, m := range matches {
		g.Go(func() error {
			n, err := inv.process(ctx, m)
			written.Add(int64(n))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("📦 Outputs written", "inputs", len(matches), "outputs", written.Load(), "dest", inv.OutDir)
	return nil
}

func (inv *Invoker) process(ctx context.Context, m fsutil.Match) (int, error) {
	contents, err := os.ReadFile(m.Path)
	if err != nil {
		return 0, err
	}

	outputs, err := inv.Transformer.Transform(ctx, &File{Path: m.Path, Rel: m.BaseRel, Contents: contents})
	if err != nil {
		return 0, &FileError{Path: m.Rel, Transformer: inv.Transformer.Name(), Err: err}
	}

	for _, out := range outputs {
		dest, err := outputPath(inv.OutDir, out.Rel)
		if err != nil {
			return 0, &FileError{Path: m.Rel, Transformer: inv.Transformer.Name(), Err: err}
		}
		if err := writeFile(dest, out.Contents); err != nil {
			return 0, err
		}
		ctxlog.FromContext(ctx).Debug("Wrote output.", "source", m.Rel, "dest", dest)
	}
	return len(outputs), nil
}

// outputPath joins a relative output path onto the output directory and
// refuses paths that would escape it.
func outputPath(outDir, rel string) (string, error) {
	clean := path.Clean(filepath.ToSlash(rel))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("output path %q escapes the output directory", rel)
	}
	return filepath.Join(outDir, filepath.FromSlash(clean)), nil
}

func writeFile(dest string, contents []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, contents, 0o644)
}

// replaceExt swaps the extension of a slash path.
func replaceExt(rel, ext string) string {
	return strings.TrimSuffix(rel, path.Ext(rel)) + ext
}
