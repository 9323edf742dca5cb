package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
	"github.com/euphroshub/minimalist-stack/internal/task"
)

// Validate builds every registered command and checks each resulting tree
// and every registered task. All problems are reported together.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error

	for _, name := range r.Tasks() {
		if err := task.Validate(r.tasks[name]); err != nil {
			errs = append(errs, fmt.Errorf("task '%s': %w", name, err))
		}
	}

	for _, name := range r.Commands() {
		root, err := r.builders[name](r)
		if err != nil {
			errs = append(errs, fmt.Errorf("command '%s': %w", name, err))
			continue
		}
		if err := task.Validate(root); err != nil {
			errs = append(errs, fmt.Errorf("command '%s': %w", name, err))
			continue
		}
		r.commands[name] = root
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Debug("Registry validated.", "tasks", len(r.tasks), "commands", len(r.commands))
	return nil
}
