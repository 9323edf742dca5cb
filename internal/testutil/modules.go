package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/euphroshub/minimalist-stack/internal/registry"
	"github.com/euphroshub/minimalist-stack/internal/task"
)

// ExecutionRecord holds the start and end times of one task run.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// RecordingModule registers leaf tasks that sleep and record when they ran,
// plus a command per entry of Commands. Tasks listed in Fail return FailErr.
type RecordingModule struct {
	Tasks    []string
	Commands map[string]func(r *registry.Registry) (*task.Task, error)
	Sleep    time.Duration
	Fail     map[string]bool
	FailErr  error

	mu    sync.Mutex
	runs  map[string][]ExecutionRecord
	order []string
}

// Register implements registry.Module.
func (m *RecordingModule) Register(r *registry.Registry) {
	for _, name := range m.Tasks {
		r.Register(name, task.New(name, m.body(name)))
	}
	for name, build := range m.Commands {
		r.RegisterCommand(name, build)
	}
}

func (m *RecordingModule) body(name string) task.Func {
	return func(ctx context.Context) error {
		rec := ExecutionRecord{Start: time.Now()}
		if m.Sleep > 0 {
			select {
			case <-time.After(m.Sleep):
			case <-ctx.Done():
			}
		}
		rec.End = time.Now()

		m.mu.Lock()
		if m.runs == nil {
			m.runs = make(map[string][]ExecutionRecord)
		}
		m.runs[name] = append(m.runs[name], rec)
		m.order = append(m.order, name)
		m.mu.Unlock()

		if m.Fail[name] {
			return m.FailErr
		}
		return nil
	}
}

// Runs returns the execution records of a task.
func (m *RecordingModule) Runs(name string) []ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutionRecord(nil), m.runs[name]...)
}

// Order returns task names in completion order.
func (m *RecordingModule) Order() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}
