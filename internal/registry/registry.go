package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/euphroshub/minimalist-stack/internal/task"
)

// Module is the interface that all pipeline modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// CommandBuilder composes a command's task tree from the registry contents.
type CommandBuilder func(r *Registry) (*task.Task, error)

// Registry holds all the registered tasks and commands for a single
// application instance.
type Registry struct {
	tasks    map[string]*task.Task
	builders map[string]CommandBuilder
	commands map[string]*task.Task
	order    []string
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		tasks:    make(map[string]*task.Task),
		builders: make(map[string]CommandBuilder),
		commands: make(map[string]*task.Task),
	}
}

// Register adds a named task. Registering the same name twice is a
// programming error and panics.
func (r *Registry) Register(name string, t *task.Task) {
	if _, exists := r.tasks[name]; exists {
		panic(fmt.Sprintf("task with name '%s' already registered", name))
	}
	if t == nil {
		panic(fmt.Sprintf("task '%s' registered as nil", name))
	}
	slog.Debug("Registering task.", "name", name, "kind", t.Kind)
	r.tasks[name] = t
}

// RegisterCommand adds a command builder. Builders run during Validate, once
// all modules have registered their tasks.
func (r *Registry) RegisterCommand(name string, build CommandBuilder) {
	if _, exists := r.builders[name]; exists {
		panic(fmt.Sprintf("command with name '%s' already registered", name))
	}
	slog.Debug("Registering command.", "name", name)
	r.builders[name] = build
	r.order = append(r.order, name)
}

// Task returns the task registered under name.
func (r *Registry) Task(name string) (*task.Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Lookup returns the task registered under name, or an error naming it
// when there is none. Command builders use it to find their children.
func (r *Registry) Lookup(name string) (*task.Task, error) {
	t, ok := r.tasks[name]
	if !ok {
		return nil, fmt.Errorf("unknown task '%s'", name)
	}
	return t, nil
}

// Command returns the built task tree for a command. It is only populated
// after a successful Validate.
func (r *Registry) Command(name string) (*task.Task, bool) {
	t, ok := r.commands[name]
	return t, ok
}

// Commands returns the sorted names of all registered commands.
func (r *Registry) Commands() []string {
	names := slices.Clone(r.order)
	sort.Strings(names)
	return names
}

// Tasks returns the sorted names of all registered tasks.
func (r *Registry) Tasks() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
