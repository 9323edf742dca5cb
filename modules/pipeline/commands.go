package pipeline

import (
	"github.com/euphroshub/minimalist-stack/internal/registry"
	"github.com/euphroshub/minimalist-stack/internal/task"
)

// Command names exposed on the command line.
const (
	CommandDefault    = "default"
	CommandBuild      = "build"
	CommandServe      = "serve"
	CommandWatch      = "watch"
	CommandProduction = "production"
)

// buildTasks are the independent asset tasks of a full build.
var buildTasks = []string{TaskHTML, TaskStyles, TaskApp, TaskComponents, TaskImages, TaskWebP, TaskSVG}

func (m *Module) registerCommands(r *registry.Registry) {
	for _, name := range append([]string{TaskClean}, buildTasks...) {
		r.RegisterCommand(name, leafCommand(name))
	}
	r.RegisterCommand(CommandDefault, func(r *registry.Registry) (*task.Task, error) {
		return fullBuild(r, CommandDefault)
	})
	r.RegisterCommand(CommandBuild, func(r *registry.Registry) (*task.Task, error) {
		return fullBuild(r, CommandBuild)
	})
	r.RegisterCommand(CommandProduction, func(r *registry.Registry) (*task.Task, error) {
		build, err := fullBuild(r, CommandBuild)
		if err != nil {
			return nil, err
		}
		minify, err := lookup(r, TaskMinifyCSS, TaskMinifyJS)
		if err != nil {
			return nil, err
		}
		return task.Series(CommandProduction, build, task.Parallel("minify", minify...)), nil
	})
	r.RegisterCommand(CommandServe, func(r *registry.Registry) (*task.Task, error) {
		build, err := fullBuild(r, CommandBuild)
		if err != nil {
			return nil, err
		}
		start, err := lookup(r, TaskServeStart, TaskWatchStart)
		if err != nil {
			return nil, err
		}
		return task.Series(CommandServe, append([]*task.Task{build}, start...)...), nil
	})
	r.RegisterCommand(CommandWatch, func(r *registry.Registry) (*task.Task, error) {
		build, err := fullBuild(r, CommandBuild)
		if err != nil {
			return nil, err
		}
		start, err := r.Lookup(TaskWatchStart)
		if err != nil {
			return nil, err
		}
		return task.Series(CommandWatch, build, start), nil
	})
}

// fullBuild is clean followed by every asset task in parallel.
func fullBuild(r *registry.Registry, name string) (*task.Task, error) {
	clean, err := r.Lookup(TaskClean)
	if err != nil {
		return nil, err
	}
	assets, err := lookup(r, buildTasks...)
	if err != nil {
		return nil, err
	}
	return task.Series(name, clean, task.Parallel("assets", assets...)), nil
}

func leafCommand(name string) registry.CommandBuilder {
	return func(r *registry.Registry) (*task.Task, error) {
		return r.Lookup(name)
	}
}

func lookup(r *registry.Registry, names ...string) ([]*task.Task, error) {
	out := make([]*task.Task, 0, len(names))
	for _, name := range names {
		t, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
