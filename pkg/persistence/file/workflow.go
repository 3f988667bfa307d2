package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/skillhub/flowcore/pkg/wire"
)

// WorkflowRepository handles workflow-related file operations. Workflows are written as JSON;
// hand-authored YAML documents in the same directory are read too.
type WorkflowRepository struct {
	root string // File system root for storing workflows
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, "workflows")
}

// List returns every stored workflow, filtered and sorted in memory.
func (wr *WorkflowRepository) List(ctx context.Context, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	root := os.DirFS(wr.dir())

	var files []string

	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := fs.Glob(root, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to list workflow files: %w", err)
		}

		files = append(files, matches...)
	}

	workflows := make([]*models.Workflow, 0, len(files))

	for _, file := range files {
		workflow, err := wr.load(filepath.Join(wr.dir(), file))
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return opts.Apply(workflows), nil
}

// GetByID loads one workflow.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	path, ok := wr.find(id)
	if !ok {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return wr.load(path)
}

// Save writes a workflow, assigning an id and timestamps when missing.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	if err := validateID(workflow.ID); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	err := os.MkdirAll(wr.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := wire.EncodeWorkflow(wire.FormatJSON, workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	err = writeAtomic(filepath.Join(wr.dir(), workflow.ID+".json"), data)
	if err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow document.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	path, ok := wr.find(id)
	if !ok {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

func (wr *WorkflowRepository) find(id string) (string, bool) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(wr.dir(), id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	return "", false
}

func (wr *WorkflowRepository) load(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}

	workflow, err := wire.DecodeWorkflow(wire.FormatFromPath(path), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow file %s: %w", path, err)
	}

	if workflow.ID == "" {
		workflow.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return workflow, nil
}

// writeAtomic writes through a temporary file so readers never see a partial document.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
