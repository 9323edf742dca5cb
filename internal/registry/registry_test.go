package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/euphroshub/minimalist-stack/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

type stubModule struct{}

func (stubModule) Register(r *Registry) {
	r.Register("clean", task.New("clean", noop))
	r.Register("html", task.New("html", noop))
	r.Register("styles", task.New("styles", noop))
	r.RegisterCommand("build", func(r *Registry) (*task.Task, error) {
		clean, err := r.Lookup("clean")
		if err != nil {
			return nil, err
		}
		html, err := r.Lookup("html")
		if err != nil {
			return nil, err
		}
		styles, err := r.Lookup("styles")
		if err != nil {
			return nil, err
		}
		return task.Series("build", clean, task.Parallel("assets", html, styles)), nil
	})
}

func TestRegistry_ModuleRegistersAndValidates(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New()
	var m Module = stubModule{}
	m.Register(r)

	// --- Act ---
	err := r.Validate(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"build"}, r.Commands())
	assert.Equal(t, []string{"clean", "html", "styles"}, r.Tasks())

	build, ok := r.Command("build")
	require.True(t, ok)
	assert.Equal(t, []string{"clean", "html", "styles"}, task.Leaves(build))

	_, ok = r.Task("html")
	assert.True(t, ok)
	_, ok = r.Command("missing")
	assert.False(t, ok)
}

func TestRegistry_DuplicatesPanic(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("html", task.New("html", noop))
	r.RegisterCommand("build", func(*Registry) (*task.Task, error) { return nil, nil })

	assert.PanicsWithValue(t, "task with name 'html' already registered", func() {
		r.Register("html", task.New("html", noop))
	})
	assert.PanicsWithValue(t, "command with name 'build' already registered", func() {
		r.RegisterCommand("build", func(*Registry) (*task.Task, error) { return nil, nil })
	})
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New()
	html := task.New("html", func(context.Context) error { return nil })
	r.Register("html", html)

	// --- Act ---
	found, err := r.Lookup("html")
	_, missingErr := r.Lookup("svg")

	// --- Assert ---
	require.NoError(t, err)
	assert.Same(t, html, found)
	require.Error(t, missingErr)
	assert.Equal(t, "unknown task 'svg'", missingErr.Error())
}

func TestRegistry_ValidateReportsAllProblems(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New()
	r.Register("broken", task.New("broken", nil))
	r.RegisterCommand("missing-child", func(r *Registry) (*task.Task, error) {
		_, err := r.Lookup("images")
		return nil, err
	})
	r.RegisterCommand("builder-error", func(*Registry) (*task.Task, error) {
		return nil, errors.New("boom")
	})
	r.RegisterCommand("empty", func(*Registry) (*task.Task, error) {
		return task.Parallel("empty"), nil
	})

	// --- Act ---
	err := r.Validate(context.Background())

	// --- Assert ---
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "task 'broken': task 'broken' has no body")
	assert.Contains(t, msg, "command 'missing-child': unknown task 'images'")
	assert.Contains(t, msg, "command 'builder-error': boom")
	assert.Contains(t, msg, "command 'empty'")
	_, ok := r.Command("empty")
	assert.False(t, ok, "invalid commands are not exposed")
}
