package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/skillhub/flowcore/pkg/eventbus"
	"github.com/skillhub/flowcore/pkg/execution"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/skillhub/flowcore/pkg/persistence/file"
	"github.com/skillhub/flowcore/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, event)

	return nil
}

func (p *recordingPublisher) Events() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]eventbus.Event(nil), p.events...)
}

type fakeRunner struct {
	mu        sync.Mutex
	started   []models.Execution
	cancelled []string
	startErr  error
	// report, when set, replaces the returned execution.
	report func(models.Execution) models.Execution
}

func (r *fakeRunner) Start(_ context.Context, _ *models.Workflow, e models.Execution) (models.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.startErr != nil {
		return models.Execution{}, r.startErr
	}

	r.started = append(r.started, e)

	if r.report != nil {
		return r.report(e), nil
	}

	return e, nil
}

func (r *fakeRunner) Cancel(_ context.Context, e models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelled = append(r.cancelled, e.ID)

	return nil
}

var errBackendDown = errors.New("backend unavailable")

type fixture struct {
	persistence persistence.Persistence
	publisher   *recordingPublisher
	runner      *fakeRunner
	hub         *execution.Hub
	workflows   *Workflow
	executions  *Execution
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		persistence: file.NewPersistence(t.TempDir()),
		publisher:   &recordingPublisher{},
		runner:      &fakeRunner{},
		hub:         execution.NewHub(testLogger()),
	}

	f.workflows = NewWorkflow(f.persistence, f.publisher, nil, testLogger())
	f.executions = NewExecution(f.persistence, f.runner, f.hub, nil, testLogger())

	return f
}

// seed stores a branching workflow and returns it.
func (f *fixture) seed(t *testing.T, overrides ...func(*models.Workflow)) *models.Workflow {
	t.Helper()

	workflow := testutil.CreateTestWorkflow(overrides...)
	require.NoError(t, f.persistence.SaveWorkflow(context.Background(), workflow))

	return workflow
}
