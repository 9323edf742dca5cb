package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/euphroshub/minimalist-stack/internal/fsutil"
	"github.com/euphroshub/minimalist-stack/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 50 * time.Millisecond

type reload struct {
	Kind  ReloadKind
	Paths []string
}

type recordingReloader struct {
	mu      sync.Mutex
	reloads []reload
}

func (r *recordingReloader) BroadcastReload(kind ReloadKind, paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloads = append(r.reloads, reload{Kind: kind, Paths: paths})
}

func (r *recordingReloader) all() []reload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reload(nil), r.reloads...)
}

type countingTask struct {
	runs atomic.Int32
	task *task.Task
}

func newCountingTask(name string, body func(run int32) error) *countingTask {
	c := &countingTask{}
	c.task = task.New(name, func(context.Context) error {
		n := c.runs.Add(1)
		if body != nil {
			return body(n)
		}
		return nil
	})
	return c
}

func (l *Loop) isWatched(dir string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.watched[dir]
}

func writeSource(t *testing.T, root, rel, contents string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
}

func TestLoop_TemplateChangeRunsOnlyHTMLAndReloadsOnce(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	writeSource(t, root, "app/templates/index.html", "<p>v1</p>")
	writeSource(t, root, "app/scss/style.scss", "body{}")
	writeSource(t, root, "app/js/app.js", "console.log(1)")

	html := newCountingTask("html", nil)
	styles := newCountingTask("styles", nil)
	app := newCountingTask("app", nil)
	reloader := &recordingReloader{}

	loop := New(root, testDebounce, reloader,
		&Binding{Name: "html", Selector: fsutil.MustSelector("./app/templates/**/*.html"), Task: html.task, Reload: ReloadPage},
		&Binding{Name: "styles", Selector: fsutil.MustSelector("./app/scss/**/*.scss"), Task: styles.task, Reload: ReloadCSS},
		&Binding{Name: "app", Selector: fsutil.MustSelector("./app/js/**/*.js"), Task: app.task, Reload: ReloadPage},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, loop.Start(ctx))

	// --- Act ---
	writeSource(t, root, "app/templates/index.html", "<p>v2</p>")

	// --- Assert ---
	require.Eventually(t, func() bool { return len(reloader.all()) == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(4 * testDebounce)

	assert.EqualValues(t, 1, html.runs.Load())
	assert.EqualValues(t, 0, styles.runs.Load())
	assert.EqualValues(t, 0, app.runs.Load())
	assert.Equal(t, []reload{{Kind: ReloadPage, Paths: []string{"app/templates/index.html"}}}, reloader.all())

	cancel()
	select {
	case <-loop.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop after cancellation")
	}
}

func TestLoop_NewDirectoriesAreWatched(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app", "scss"), 0o755))
	styles := newCountingTask("styles", nil)
	reloader := &recordingReloader{}
	loop := New(root, testDebounce, reloader,
		&Binding{Name: "styles", Selector: fsutil.MustSelector("./app/scss/**/*.scss"), Task: styles.task, Reload: ReloadCSS})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, loop.Start(ctx))

	// --- Act ---
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app", "scss", "components"), 0o755))
	require.Eventually(t, func() bool {
		return loop.isWatched(filepath.Join(loop.root, "app", "scss", "components"))
	}, 5*time.Second, 10*time.Millisecond)
	writeSource(t, root, "app/scss/components/_button.scss", ".btn{}")

	// --- Assert ---
	require.Eventually(t, func() bool { return len(reloader.all()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, ReloadCSS, reloader.all()[0].Kind)
	assert.EqualValues(t, 1, styles.runs.Load())
}

func TestLoop_DirectoryMovedInDispatchesItsFiles(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app", "js", "components"), 0o755))
	writeSource(t, root, "staging/modal/modal.js", "export const modal = 1")
	writeSource(t, root, "staging/modal/parts/backdrop.js", "export const backdrop = 1")

	components := newCountingTask("components", nil)
	reloader := &recordingReloader{}
	loop := New(root, testDebounce, reloader,
		&Binding{Name: "components", Selector: fsutil.MustSelector("./app/js/components/**/*.js"), Task: components.task, Reload: ReloadPage})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, loop.Start(ctx))

	// --- Act ---
	require.NoError(t, os.Rename(filepath.Join(root, "staging", "modal"), filepath.Join(root, "app", "js", "components", "modal")))

	// --- Assert ---
	require.Eventually(t, func() bool { return len(reloader.all()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, components.runs.Load())
	assert.Equal(t, []string{
		"app/js/components/modal/modal.js",
		"app/js/components/modal/parts/backdrop.js",
	}, reloader.all()[0].Paths)
	assert.True(t, loop.isWatched(filepath.Join(loop.root, "app", "js", "components", "modal", "parts")))
}

func TestLoop_WatchesBaseCreatedAfterStart(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	html := newCountingTask("html", nil)
	reloader := &recordingReloader{}
	loop := New(root, testDebounce, reloader,
		&Binding{Name: "html", Selector: fsutil.MustSelector("./app/templates/*.html"), Task: html.task, Reload: ReloadPage})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, loop.Start(ctx))
	require.True(t, loop.isWatched(loop.root), "the nearest existing ancestor is watched")

	// --- Act ---
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app", "templates"), 0o755))
	require.Eventually(t, func() bool {
		return loop.isWatched(filepath.Join(loop.root, "app", "templates"))
	}, 5*time.Second, 10*time.Millisecond)
	writeSource(t, root, "app/templates/index.html", "<p>v1</p>")

	// --- Assert ---
	require.Eventually(t, func() bool { return len(reloader.all()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, html.runs.Load())
	assert.Equal(t, []string{"app/templates/index.html"}, reloader.all()[0].Paths)
}

func TestBinding_FailedRunSkipsReloadAndStaysAlive(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	failing := newCountingTask("html", func(run int32) error {
		if run == 1 {
			return errors.New("malformed template")
		}
		return nil
	})
	reloader := &recordingReloader{}
	loop := New(t.TempDir(), 0, reloader,
		&Binding{Name: "html", Selector: fsutil.MustSelector("./app/templates/*.html"), Task: failing.task, Reload: ReloadPage})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, loop.Start(ctx))

	// --- Act ---
	loop.dispatch(ctx, "app/templates/index.html")
	require.Eventually(t, func() bool { return failing.runs.Load() == 1 }, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		s, _ := loop.State("html")
		return s == StateIdle
	}, 5*time.Second, 5*time.Millisecond)
	assert.Empty(t, reloader.all(), "a failed rebuild must not reload browsers")

	loop.dispatch(ctx, "app/templates/index.html")

	// --- Assert ---
	require.Eventually(t, func() bool { return len(reloader.all()) == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 2, failing.runs.Load())
}

func TestBinding_ChangesDuringRunAreCoalesced(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	slow := newCountingTask("styles", func(run int32) error {
		started <- struct{}{}
		if run == 1 {
			<-release
		}
		return nil
	})
	reloader := &recordingReloader{}
	loop := New(t.TempDir(), 0, reloader,
		&Binding{Name: "styles", Selector: fsutil.MustSelector("./app/scss/**/*.scss"), Task: slow.task, Reload: ReloadCSS})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, loop.Start(ctx))

	// --- Act ---
	loop.dispatch(ctx, "app/scss/a.scss")
	<-started
	s, _ := loop.State("styles")
	assert.Equal(t, StateRunning, s)
	loop.dispatch(ctx, "app/scss/b.scss")
	loop.dispatch(ctx, "app/scss/c.scss")
	loop.dispatch(ctx, "app/scss/b.scss")
	close(release)

	// --- Assert ---
	require.Eventually(t, func() bool { return len(reloader.all()) == 2 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, slow.runs.Load(), "changes during a run coalesce into one follow-up run")
	assert.Equal(t, []string{"app/scss/a.scss"}, reloader.all()[0].Paths)
	assert.Equal(t, []string{"app/scss/b.scss", "app/scss/c.scss"}, reloader.all()[1].Paths)
}

func TestLoop_IgnoresUnmatchedPathsAndMissingDirectories(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	html := newCountingTask("html", nil)
	loop := New(t.TempDir(), 0, nil,
		&Binding{Name: "html", Selector: fsutil.MustSelector("./app/templates/*.html"), Task: html.task, Reload: ReloadPage})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Act ---
	require.NoError(t, loop.Start(ctx), "a missing watch directory is skipped")
	loop.dispatch(ctx, "app/scss/style.scss")
	loop.dispatch(ctx, "app/templates/index.html")

	// --- Assert ---
	require.Eventually(t, func() bool { return html.runs.Load() == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, loop.Start(ctx), ErrAlreadyStarted)
}

func TestReloadKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "page", ReloadPage.String())
	assert.Equal(t, "css", ReloadCSS.String())
	assert.Equal(t, "none", ReloadNone.String())
}
