package transform

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
)

// Clean removes everything inside dir but keeps dir itself. A missing
// directory is already clean.
func Clean(ctx context.Context, dir string) error {
	logger := ctxlog.FromContext(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("Output directory does not exist, nothing to clean.", "dir", dir)
			return nil
		}
		return err
	}

	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	logger.Info("🧹 Output directory emptied", "dir", dir, "removed", len(entries))
	return nil
}
