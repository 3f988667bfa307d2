package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/skillhub/flowcore/pkg/wire"
)

// ExecutionRepository handles execution-related database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// Save upserts an execution with its steps.
func (r *ExecutionRepository) Save(ctx context.Context, execution models.Execution) error {
	document, err := wire.EncodeExecution(wire.FormatJSON, execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, status, trigger_type, document, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			document = EXCLUDED.document,
			finished_at = EXCLUDED.finished_at
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		string(execution.Status),
		string(execution.TriggerType),
		document,
		execution.StartedAt,
		execution.FinishedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (models.Execution, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, `SELECT document FROM executions WHERE id = $1`, id).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Execution{}, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return models.Execution{}, fmt.Errorf("failed to scan execution: %w", err)
	}

	return wire.DecodeExecution(wire.FormatJSON, document)
}

// GetByWorkflow returns the executions of a workflow, newest first.
func (r *ExecutionRepository) GetByWorkflow(ctx context.Context, workflowID string) ([]models.Execution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT document FROM executions WHERE workflow_id = $1 ORDER BY started_at DESC, id ASC`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]models.Execution, 0)

	for rows.Next() {
		var document []byte

		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		execution, err := wire.DecodeExecution(wire.FormatJSON, document)
		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}
