package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
	"github.com/fsnotify/fsnotify"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("watch loop already started")

// Loop observes the source tree and drives every binding.
type Loop struct {
	root     string
	debounce time.Duration
	reloader Reloader
	bindings []*binding

	mu      sync.Mutex
	started bool
	watcher *fsnotify.Watcher
	watched map[string]bool
	// bases are the existing binding base directories, watched recursively.
	bases []string
	// pending are base directories that did not exist yet. Their nearest
	// existing ancestors are watched until they appear.
	pending map[string]bool
	done    chan struct{}
}

// New creates a loop rooted at root. reloader may be nil, in which case
// bindings rebuild without notifying browsers.
func New(root string, debounce time.Duration, reloader Reloader, bindings ...*Binding) *Loop {
	l := &Loop{
		root:     root,
		debounce: debounce,
		reloader: reloader,
		watched:  make(map[string]bool),
		pending:  make(map[string]bool),
		done:     make(chan struct{}),
	}
	for _, b := range bindings {
		l.bindings = append(l.bindings, newBinding(b))
	}
	return l
}

// Start installs the file-system watches and launches the bindings. It
// returns once every watch is in place; the loop then runs until ctx is
// done.
func (l *Loop) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	l.started = true
	l.mu.Unlock()

	root, err := filepath.Abs(l.root)
	if err != nil {
		return err
	}
	l.root = root

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	l.watcher = w

	for _, b := range l.bindings {
		for _, neg := range b.Selector.UnreachableNegations() {
			logger.Warn("Watch exclusion lies outside every watched directory and has no effect.",
				"binding", b.Name, "pattern", neg)
		}
		for _, base := range b.Selector.Bases() {
			dir := filepath.Join(root, filepath.FromSlash(base))
			err := l.addRecursive(ctx, dir)
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn("Watch directory does not exist yet, waiting for it to appear.", "binding", b.Name, "dir", dir)
				err = l.awaitBase(ctx, dir)
			} else if err == nil {
				l.addBase(dir)
			}
			if err != nil {
				_ = w.Close()
				return fmt.Errorf("watching %s: %w", dir, err)
			}
		}
	}

	var wg sync.WaitGroup
	for _, b := range l.bindings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.loop(ctx, l.debounce, l.reloader)
		}()
	}

	go func() {
		l.process(ctx)
		_ = w.Close()
		wg.Wait()
		close(l.done)
		logger.Debug("Watch loop stopped.")
	}()

	logger.Info("👀 Watching for changes", "bindings", len(l.bindings), "directories", l.watchCount())
	return nil
}

// Done is closed once the loop and every binding goroutine have exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// State returns the lifecycle state of the named binding.
func (l *Loop) State(name string) (State, bool) {
	for _, b := range l.bindings {
		if b.Name == name {
			return b.State(), true
		}
	}
	return StateIdle, false
}

func (l *Loop) process(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			l.handle(ctx, ev)
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("File watcher error.", "error", err)
		}
	}
}

func (l *Loop) handle(ctx context.Context, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			l.handleNewDir(ctx, ev.Name)
			return
		}
	}

	rel, err := filepath.Rel(l.root, ev.Name)
	if err != nil {
		return
	}
	l.dispatch(ctx, filepath.ToSlash(rel))
}

// handleNewDir reacts to a directory created or moved into a watched
// directory. Below a base, the whole tree is watched and every file already
// in it counts as changed. Above a pending base, the directory only brings
// that base closer to existing.
func (l *Loop) handleNewDir(ctx context.Context, dir string) {
	var errs []error
	if l.underBase(dir) {
		errs = append(errs, l.addTree(ctx, dir))
	}
	if l.hasPending() {
		errs = append(errs, l.resolvePending(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to watch new directory.", "dir", dir, "error", err)
	}
}

func (l *Loop) hasPending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending) > 0
}

// addTree watches dir recursively and dispatches every regular file below it.
func (l *Loop) addTree(ctx context.Context, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return l.add(ctx, p)
		}
		if d.Type().IsRegular() {
			if rel, err := filepath.Rel(l.root, p); err == nil {
				l.dispatch(ctx, filepath.ToSlash(rel))
			}
		}
		return nil
	})
}

// awaitBase records dir as pending and watches its nearest existing ancestor.
func (l *Loop) awaitBase(ctx context.Context, dir string) error {
	l.mu.Lock()
	l.pending[dir] = true
	l.mu.Unlock()
	return l.resolvePending(ctx)
}

// resolvePending promotes every pending base that now exists and moves the
// watch of the others down to their nearest existing ancestor.
func (l *Loop) resolvePending(ctx context.Context) error {
	l.mu.Lock()
	pending := make([]string, 0, len(l.pending))
	for dir := range l.pending {
		pending = append(pending, dir)
	}
	l.mu.Unlock()

	var errs []error
	for _, dir := range pending {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			l.mu.Lock()
			delete(l.pending, dir)
			l.mu.Unlock()
			l.addBase(dir)
			ctxlog.FromContext(ctx).Info("👀 Watch directory appeared", "dir", dir)
			errs = append(errs, l.addTree(ctx, dir))
			continue
		}
		ancestor, ok := existingAncestor(dir)
		if !ok {
			continue
		}
		errs = append(errs, l.add(ctx, ancestor))
	}
	return errors.Join(errs...)
}

// existingAncestor returns the closest existing directory above dir.
func existingAncestor(dir string) (string, bool) {
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		if info, err := os.Stat(parent); err == nil && info.IsDir() {
			return parent, true
		}
		dir = parent
	}
}

func (l *Loop) addBase(dir string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bases = append(l.bases, dir)
}

// underBase reports whether dir is a base or lies below one.
func (l *Loop) underBase(dir string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, base := range l.bases {
		if dir == base || strings.HasPrefix(dir, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// dispatch routes a root-relative change to every binding that selects it.
func (l *Loop) dispatch(ctx context.Context, rel string) {
	matched := 0
	for _, b := range l.bindings {
		if b.Selector.Match(rel) {
			b.enqueue(rel)
			matched++
		}
	}
	ctxlog.FromContext(ctx).Debug("File change routed.", "path", rel, "bindings", matched)
}

// addRecursive watches dir and every directory below it.
func (l *Loop) addRecursive(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return l.add(ctx, p)
	})
}

func (l *Loop) add(ctx context.Context, dir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watched[dir] {
		return nil
	}
	if err := l.watcher.Add(dir); err != nil {
		return err
	}
	l.watched[dir] = true
	ctxlog.FromContext(ctx).Debug("Watching directory.", "dir", dir)
	return nil
}

func (l *Loop) watchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.watched)
}
