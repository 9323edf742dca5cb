package pipeline

import (
	"context"
	"path/filepath"

	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
	"github.com/euphroshub/minimalist-stack/internal/fsutil"
	"github.com/euphroshub/minimalist-stack/internal/task"
	"github.com/euphroshub/minimalist-stack/internal/transform"
)

func (m *Module) outputDir() string {
	return m.cfg.Path(m.cfg.OutputDir)
}

func (m *Module) assetsDir() string {
	return m.cfg.Path(m.cfg.AssetsDir)
}

func (m *Module) assetsSub(name string) string {
	return filepath.Join(m.assetsDir(), name)
}

func (m *Module) clean(ctx context.Context) error {
	return transform.Clean(ctx, m.outputDir())
}

// invoke returns a task body running one transformer over a file set. An
// unconfigured file set makes the task a no-op.
func (m *Module) invoke(sel *fsutil.Selector, outDir string, t transform.Transformer) task.Func {
	return func(ctx context.Context) error {
		if sel == nil {
			ctxlog.FromContext(ctx).Debug("No sources configured, skipping.", "transformer", t.Name())
			return nil
		}
		inv := &transform.Invoker{
			Selector:    sel,
			Root:        m.cfg.Root,
			OutDir:      outDir,
			Transformer: t,
			Concurrency: m.concurrency,
		}
		return inv.Run(ctx)
	}
}

// minify returns a task body writing a minified sibling for every output
// file with the given extension.
func (m *Module) minify(ext string) task.Func {
	return func(ctx context.Context) error {
		t, err := transform.NewMinify(ext)
		if err != nil {
			return err
		}
		sel, err := fsutil.NewSelector("**/*"+ext, "!**/*.min"+ext)
		if err != nil {
			return err
		}
		inv := &transform.Invoker{
			Selector:    sel,
			Root:        m.outputDir(),
			OutDir:      m.outputDir(),
			Transformer: t,
			Concurrency: m.concurrency,
		}
		return inv.Run(ctx)
	}
}
