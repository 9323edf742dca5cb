package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
	"github.com/euphroshub/minimalist-stack/internal/task"
)

// ErrUnknownCommand is returned by Run when the configured command is not
// registered.
var ErrUnknownCommand = errors.New("unknown command")

// shutdownTimeout bounds the teardown of long-running services.
const shutdownTimeout = 10 * time.Second

// service is implemented by modules that may leave work running after
// their command's task graph has completed.
type service interface {
	Background() bool
	Shutdown(ctx context.Context) error
}

// Run executes the configured command. Commands that start long-running
// services (serve, watch) keep running until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	name := a.config.Command
	root, ok := a.registry.Command(name)
	if !ok {
		return fmt.Errorf("%w '%s' (available: %s)", ErrUnknownCommand, name, strings.Join(a.registry.Commands(), ", "))
	}

	if a.config.PrintTasks {
		return task.Fprint(a.outW, root)
	}

	defer a.shutdown(ctx)

	a.logger.Info("🚀 Running command", "command", name)
	start := time.Now()
	if err := root.Run(ctx); err != nil {
		return fmt.Errorf("command '%s' failed: %w", name, err)
	}
	a.logger.Info("🏁 Command finished", "command", name, "duration", time.Since(start))

	if a.background() {
		a.logger.Info("⏳ Running until interrupted")
		<-ctx.Done()
		a.logger.Info("🛑 Interrupt received, stopping")
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) background() bool {
	for _, mod := range a.modules {
		if svc, ok := mod.(service); ok && svc.Background() {
			return true
		}
	}
	return false
}

// shutdown stops every service. It uses a fresh deadline because ctx is
// usually already canceled at this point.
func (a *App) shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	for _, mod := range a.modules {
		svc, ok := mod.(service)
		if !ok {
			continue
		}
		if err := svc.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Shutdown failed", "error", err)
		}
	}
}
