package watch

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
	"github.com/euphroshub/minimalist-stack/internal/fsutil"
	"github.com/euphroshub/minimalist-stack/internal/task"
)

// ReloadKind tells connected browsers how to apply a change.
type ReloadKind int

const (
	// ReloadNone rebuilds without notifying browsers.
	ReloadNone ReloadKind = iota
	// ReloadPage asks browsers for a full page reload.
	ReloadPage
	// ReloadCSS asks browsers to re-fetch their stylesheets in place.
	ReloadCSS
)

// String returns the name sent over the reload channel.
func (k ReloadKind) String() string {
	switch k {
	case ReloadPage:
		return "page"
	case ReloadCSS:
		return "css"
	default:
		return "none"
	}
}

// Reloader broadcasts a reload instruction to every connected client.
type Reloader interface {
	BroadcastReload(kind ReloadKind, paths []string)
}

// State is the position of a binding in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateReloading
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateReloading:
		return "reloading"
	default:
		return "idle"
	}
}

// Binding associates a change selector with the task to re-run and the
// reload to trigger afterwards. Bindings are not mutated once the loop has
// started.
type Binding struct {
	Name     string
	Selector *fsutil.Selector
	Task     *task.Task
	Reload   ReloadKind
}

// binding is the runtime side of a Binding.
type binding struct {
	*Binding

	state  atomic.Int32
	notify chan struct{}

	mu      sync.Mutex
	pending map[string]struct{}
}

func newBinding(b *Binding) *binding {
	return &binding{
		Binding: b,
		notify:  make(chan struct{}, 1),
		pending: make(map[string]struct{}),
	}
}

// State reports the current lifecycle state.
func (b *binding) State() State {
	return State(b.state.Load())
}

func (b *binding) setState(ctx context.Context, s State) {
	b.state.Store(int32(s))
	ctxlog.FromContext(ctx).Debug("Watch binding state changed.", "binding", b.Name, "state", s)
}

// enqueue records a changed path and wakes the binding. It never blocks.
func (b *binding) enqueue(rel string) {
	b.mu.Lock()
	b.pending[rel] = struct{}{}
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *binding) drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	paths := make([]string, 0, len(b.pending))
	for p := range b.pending {
		paths = append(paths, p)
	}
	clear(b.pending)
	sort.Strings(paths)
	return paths
}

// loop is the binding's state machine. It returns when ctx is done.
func (b *binding) loop(ctx context.Context, debounce time.Duration, reloader Reloader) {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.notify:
			timer.Reset(debounce)
		case <-timer.C:
			paths := b.drain()
			if len(paths) == 0 {
				continue
			}
			b.run(ctx, paths, reloader)
		}
	}
}

func (b *binding) run(ctx context.Context, paths []string, reloader Reloader) {
	logger := ctxlog.FromContext(ctx).With("binding", b.Name)
	logger.Info("👀 Change detected", "files", paths)

	b.setState(ctx, StateRunning)
	defer b.setState(ctx, StateIdle)

	if err := b.Task.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("❌ Rebuild failed, waiting for the next change", "error", err)
		return
	}

	if b.Reload == ReloadNone || reloader == nil {
		return
	}
	b.setState(ctx, StateReloading)
	reloader.BroadcastReload(b.Reload, paths)
	logger.Info("🔄 Reload broadcast", "kind", b.Reload)
}
