package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"template-foundry/internal/domain"
)

// Executor performs the remote side of a deployment job against the
// site's target host. The real implementation (SSH/container ops) lives
// outside this service; this package ships a mock for local runs.
type Executor interface {
	Execute(ctx context.Context, job domain.ClaimedJob) error
}

type mockExecutor struct {
	mu   sync.RWMutex
	done map[string]bool
}

func NewMockExecutor() Executor {
	return &mockExecutor{done: make(map[string]bool)}
}

func (e *mockExecutor) Execute(ctx context.Context, job domain.ClaimedJob) error {
	key := job.Job.CorrelationID.String()

	// A job re-sent with the same correlation id already ran remotely.
	e.mu.RLock()
	if ok, exists := e.done[key]; exists {
		e.mu.RUnlock()
		if ok {
			return nil
		}
		return errors.New("remote operation previously failed")
	}
	e.mu.RUnlock()

	chance := rand.IntN(100)

	switch {
	case chance < 80:
		time.Sleep(100 * time.Millisecond)
		e.mu.Lock()
		e.done[key] = true
		e.mu.Unlock()
		fmt.Printf("[target %s] %s %s.%s done\n", job.Target.Host, job.Job.Type, job.Site.Subdomain, job.Target.Name)
		return nil

	case chance < 95:
		time.Sleep(100 * time.Millisecond)
		e.mu.Lock()
		e.done[key] = false
		e.mu.Unlock()
		return errors.New("remote host rejected operation")

	default:
		// Slow host: the operation lands but takes a while.
		time.Sleep(2 * time.Second)
		e.mu.Lock()
		e.done[key] = true
		e.mu.Unlock()
		return nil
	}
}

// ScriptedExecutor returns canned outcomes in order, then succeeds. Used
// in tests to drive deterministic job results.
type ScriptedExecutor struct {
	mu       sync.Mutex
	Outcomes []error
	Calls    []domain.ClaimedJob
}

func (e *ScriptedExecutor) Execute(ctx context.Context, job domain.ClaimedJob) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls = append(e.Calls, job)
	if len(e.Outcomes) == 0 {
		return nil
	}
	out := e.Outcomes[0]
	e.Outcomes = e.Outcomes[1:]
	return out
}
