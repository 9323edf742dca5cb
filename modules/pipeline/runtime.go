package pipeline

import (
	"context"
	"errors"

	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
	"github.com/euphroshub/minimalist-stack/internal/devserver"
	"github.com/euphroshub/minimalist-stack/internal/fsutil"
	"github.com/euphroshub/minimalist-stack/internal/watch"
)

// serveStart binds the dev server. A port that is already in use fails
// the task.
func (m *Module) serveStart(ctx context.Context) error {
	srv := devserver.New(ctx, devserver.Options{
		Dir:        m.outputDir(),
		Host:       m.cfg.Server.Host,
		Port:       m.cfg.Server.Port,
		ReloadPort: m.cfg.Server.ReloadPort,
		Index:      m.cfg.Server.Index,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.server = srv
	m.mu.Unlock()
	return nil
}

// watchStart installs the watch loop. When the dev server runs, rebuilds
// are followed by a reload broadcast to its browsers.
func (m *Module) watchStart(ctx context.Context) error {
	m.mu.Lock()
	var reloader watch.Reloader
	if m.server != nil {
		reloader = m.server.Hub()
	}
	bindings := m.bindings()
	m.mu.Unlock()

	loopCtx, stop := context.WithCancel(ctx)
	loop := watch.New(m.cfg.Root, m.cfg.Watch.Debounce, reloader, bindings...)
	if err := loop.Start(loopCtx); err != nil {
		stop()
		return err
	}

	m.mu.Lock()
	m.loop, m.stopLoop = loop, stop
	m.mu.Unlock()
	return nil
}

// bindings maps each watched file set to the task it rebuilds. Styles are
// injected in place; everything else reloads the page. Callers hold m.mu.
func (m *Module) bindings() []*watch.Binding {
	specs := []struct {
		name   string
		sel    *fsutil.Selector
		task   string
		reload watch.ReloadKind
	}{
		{"templates", m.selectors.watchTemplates, TaskHTML, watch.ReloadPage},
		{"styles", m.selectors.watchStyles, TaskStyles, watch.ReloadCSS},
		{"app", m.selectors.watchApp, TaskApp, watch.ReloadPage},
		{"components", m.selectors.watchComponents, TaskComponents, watch.ReloadPage},
	}

	var out []*watch.Binding
	for _, s := range specs {
		if s.sel == nil {
			continue
		}
		out = append(out, &watch.Binding{Name: s.name, Selector: s.sel, Task: m.tasks[s.task], Reload: s.reload})
	}
	return out
}

// Background reports whether a long-running service was started and the
// process should stay up until interrupted.
func (m *Module) Background() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.server != nil || m.loop != nil
}

// Shutdown stops the dev server, waits for the watch loop to wind down
// and stops the sass transpiler. Calling it again is a no-op.
func (m *Module) Shutdown(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	m.mu.Lock()
	srv, loop, stop := m.server, m.loop, m.stopLoop
	m.server, m.loop, m.stopLoop = nil, nil, nil
	m.mu.Unlock()

	var errs []error
	if srv != nil {
		errs = append(errs, srv.Shutdown(ctx))
	}
	if loop != nil {
		stop()
		select {
		case <-loop.Done():
		case <-ctx.Done():
			logger.Warn("Watch loop did not stop before shutdown deadline.")
		}
	}
	errs = append(errs, m.sass.Close())
	return errors.Join(errs...)
}
