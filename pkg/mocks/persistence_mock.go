package mocks

import (
	"context"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

var _ persistence.Persistence = (*MockPersistence)(nil)

func (m *MockPersistence) Workflows(ctx context.Context, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	args := m.Called(ctx, opts)

	if workflows, ok := args.Get(0).([]*models.Workflow); ok {
		return workflows, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockPersistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockPersistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)

	if workflow, ok := args.Get(0).(*models.Workflow); ok {
		return workflow.Clone(), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockPersistence) DeleteWorkflow(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) SaveExecution(ctx context.Context, execution models.Execution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockPersistence) ExecutionByID(ctx context.Context, id string) (models.Execution, error) {
	args := m.Called(ctx, id)

	if execution, ok := args.Get(0).(models.Execution); ok {
		return execution, args.Error(1)
	}

	return models.Execution{}, args.Error(1)
}

func (m *MockPersistence) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]models.Execution, error) {
	args := m.Called(ctx, workflowID)

	if executions, ok := args.Get(0).([]models.Execution); ok {
		return executions, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
