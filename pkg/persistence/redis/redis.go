// Package redis provides Redis persistence for workflows and executions. Documents are stored as
// wire JSON strings; sorted sets index workflows by creation time and executions by workflow.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/skillhub/flowcore/pkg/wire"
)

const defaultKeyPrefix = "flowcore:"

// Persistence implements persistence.Persistence on Redis.
type Persistence struct {
	client    goredis.UniversalClient
	keyPrefix string
	logger    *slog.Logger
}

// NewPersistence connects to the Redis server described by a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewPersistenceWithClient(logger, client, defaultKeyPrefix), nil
}

// NewPersistenceWithClient wraps an existing client.
func NewPersistenceWithClient(logger *slog.Logger, client goredis.UniversalClient, keyPrefix string) *Persistence {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}

	return &Persistence{client: client, keyPrefix: keyPrefix, logger: logger}
}

func (p *Persistence) workflowKey(id string) string {
	return p.keyPrefix + "workflow:" + id
}

func (p *Persistence) workflowsKey() string {
	return p.keyPrefix + "workflows"
}

func (p *Persistence) executionKey(id string) string {
	return p.keyPrefix + "execution:" + id
}

func (p *Persistence) workflowExecutionsKey(workflowID string) string {
	return p.keyPrefix + "workflow:" + workflowID + ":executions"
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *Persistence) Workflows(ctx context.Context, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	ids, err := p.client.ZRange(ctx, p.workflowsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	if len(ids) == 0 {
		return []*models.Workflow{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, p.workflowKey(id))
	}

	documents, err := p.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(documents))

	for i, doc := range documents {
		text, ok := doc.(string)
		if !ok {
			p.logger.WarnContext(ctx, "workflow index points at a missing document", "workflow_id", ids[i])

			continue
		}

		workflow, err := wire.DecodeWorkflow(wire.FormatJSON, []byte(text))
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return opts.Apply(workflows), nil
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		workflow.ID = id
	}

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	document, err := wire.EncodeWorkflow(wire.FormatJSON, workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, p.workflowKey(workflow.ID), document, 0)
		pipe.ZAdd(ctx, p.workflowsKey(), goredis.Z{
			Score:  float64(workflow.CreatedAt.UnixNano()),
			Member: workflow.ID,
		})

		return nil
	})
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	document, err := p.client.Get(ctx, p.workflowKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	return wire.DecodeWorkflow(wire.FormatJSON, document)
}

// DeleteWorkflow removes the workflow and every execution recorded for it.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	executionIDs, err := p.client.ZRange(ctx, p.workflowExecutionsKey(id), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list executions: %w", err)
	}

	var deleted int64

	_, err = p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, executionID := range executionIDs {
			pipe.Del(ctx, p.executionKey(executionID))
		}

		pipe.Del(ctx, p.workflowExecutionsKey(id))
		pipe.ZRem(ctx, p.workflowsKey(), id)

		return nil
	})
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	deleted, err = p.client.Del(ctx, p.workflowKey(id)).Result()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if deleted == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (p *Persistence) SaveExecution(ctx context.Context, execution models.Execution) error {
	document, err := wire.EncodeExecution(wire.FormatJSON, execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, p.executionKey(execution.ID), document, 0)
		pipe.ZAdd(ctx, p.workflowExecutionsKey(execution.WorkflowID), goredis.Z{
			Score:  float64(execution.StartedAt.UnixNano()),
			Member: execution.ID,
		})

		return nil
	})
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	return nil
}

func (p *Persistence) ExecutionByID(ctx context.Context, id string) (models.Execution, error) {
	document, err := p.client.Get(ctx, p.executionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return models.Execution{}, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return models.Execution{}, fmt.Errorf("failed to get execution: %w", err)
	}

	return wire.DecodeExecution(wire.FormatJSON, document)
}

// ExecutionsByWorkflow returns the executions of a workflow, newest first.
func (p *Persistence) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]models.Execution, error) {
	ids, err := p.client.ZRevRange(ctx, p.workflowExecutionsKey(workflowID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	executions := make([]models.Execution, 0, len(ids))

	for _, id := range ids {
		execution, err := p.ExecutionByID(ctx, id)
		if persistence.IsExecutionNotFound(err) {
			continue
		}

		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	persistence.SortExecutions(executions)

	return executions, nil
}
