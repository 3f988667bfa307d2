package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/skillhub/flowcore/pkg/wire"
)

// ExecutionRepository handles execution-related file operations.
type ExecutionRepository struct {
	root string
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) dir() string {
	return filepath.Join(er.root, "executions")
}

// Save writes an execution document, replacing any previous version.
func (er *ExecutionRepository) Save(_ context.Context, execution models.Execution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	err := os.MkdirAll(er.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := wire.EncodeExecution(wire.FormatJSON, execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	err = writeAtomic(filepath.Join(er.dir(), execution.ID+".json"), data)
	if err != nil {
		return fmt.Errorf("failed to write execution %s: %w", execution.ID, err)
	}

	return nil
}

// GetByID loads one execution.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (models.Execution, error) {
	if err := validateID(id); err != nil {
		return models.Execution{}, persistence.NewExecutionError("GetByID", id, err)
	}

	execution, err := er.load(filepath.Join(er.dir(), id+".json"))
	if isNotExist(err) {
		return models.Execution{}, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	return execution, err
}

// ListByWorkflow returns the executions of one workflow, newest first.
func (er *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]models.Execution, error) {
	all, err := er.all()
	if err != nil {
		return nil, err
	}

	out := make([]models.Execution, 0, len(all))

	for _, execution := range all {
		if execution.WorkflowID == workflowID {
			out = append(out, execution)
		}
	}

	persistence.SortExecutions(out)

	return out, nil
}

// DeleteByWorkflow removes every execution of a workflow.
func (er *ExecutionRepository) DeleteByWorkflow(_ context.Context, workflowID string) error {
	all, err := er.all()
	if err != nil {
		return err
	}

	for _, execution := range all {
		if execution.WorkflowID != workflowID {
			continue
		}

		err := os.Remove(filepath.Join(er.dir(), execution.ID+".json"))
		if err != nil && !isNotExist(err) {
			return fmt.Errorf("failed to delete execution %s: %w", execution.ID, err)
		}
	}

	return nil
}

func (er *ExecutionRepository) all() ([]models.Execution, error) {
	files, err := fs.Glob(os.DirFS(er.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	out := make([]models.Execution, 0, len(files))

	for _, file := range files {
		execution, err := er.load(filepath.Join(er.dir(), file))
		if err != nil {
			if isNotExist(err) {
				continue
			}

			return nil, err
		}

		out = append(out, execution)
	}

	return out, nil
}

func (er *ExecutionRepository) load(path string) (models.Execution, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return models.Execution{}, fmt.Errorf("failed to read execution file %s: %w", path, err)
	}

	execution, err := wire.DecodeExecution(wire.FormatJSON, data)
	if err != nil {
		return models.Execution{}, fmt.Errorf("failed to parse execution file %s: %w", path, err)
	}

	return execution, nil
}
