package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/skillhub/flowcore/pkg/execution"
	"github.com/skillhub/flowcore/pkg/graph"
	"github.com/skillhub/flowcore/pkg/log"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/services"
	"github.com/skillhub/flowcore/pkg/variables"
	"github.com/skillhub/flowcore/pkg/wire"
	cli "github.com/urfave/cli/v3"
)

var (
	errMissingFile  = errors.New("a document path is required")
	errInvalidGraph = errors.New("workflow is invalid")
)

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output format (json, yaml)",
		Value:   "json",
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Run every graph and variable check on a workflow document",
		ArgsUsage: "FILE",
		Flags:     []cli.Flag{outputFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			workflow, err := readWorkflow(command)
			if err != nil {
				return err
			}

			result := services.ValidateWorkflow(workflow)

			log.WithModule("flowctl").DebugContext(ctx, "validated workflow",
				"workflow_id", workflow.ID, "valid", result.Valid, "findings", len(result.Errors))

			if err := write(command, result); err != nil {
				return err
			}

			if !result.Valid {
				return fmt.Errorf("%w: %d finding(s)", errInvalidGraph, len(result.Errors))
			}

			return nil
		},
	}
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Evaluate a condition or transform node against sample input",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "node",
				Aliases:  []string{"n"},
				Usage:    "Node id to evaluate",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Sample input as a JSON object",
				Value:   "{}",
			},
			outputFlag(),
		},
		Action: func(_ context.Context, command *cli.Command) error {
			workflow, err := readWorkflow(command)
			if err != nil {
				return err
			}

			input := map[string]any{}
			if err := json.Unmarshal([]byte(command.String("input")), &input); err != nil {
				return fmt.Errorf("invalid --input: %w", err)
			}

			g, err := graph.FromDefinition(workflow.Definition)
			if err != nil {
				return err
			}

			node, ok := g.Node(command.String("node"))
			if !ok {
				return models.NewMutationError("preview", command.String("node"), models.ErrNotFound, "node does not exist")
			}

			data := variables.NewRegistry(workflow.Variables...).Defaults()
			maps.Copy(data, input)

			preview, err := services.PreviewGraphNode(g, node, data)
			if err != nil {
				return err
			}

			return write(command, preview)
		},
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Re-encode a workflow document as JSON or YAML",
		ArgsUsage: "FILE",
		Flags:     []cli.Flag{outputFlag()},
		Action: func(_ context.Context, command *cli.Command) error {
			workflow, err := readWorkflow(command)
			if err != nil {
				return err
			}

			format, err := wire.ParseFormat(command.String("output"))
			if err != nil {
				return err
			}

			data, err := wire.EncodeWorkflow(format, workflow)
			if err != nil {
				return err
			}

			_, err = command.Root().Writer.Write(data)

			return err
		},
	}
}

// executionStatus is the summary printed by the status command.
type executionStatus struct {
	ID         string `json:"id"          yaml:"id"`
	Status     string `json:"status"      yaml:"status"`
	Duration   string `json:"duration"    yaml:"duration"`
	Error      string `json:"error,omitempty"       yaml:"error,omitempty"`
	FailedStep string `json:"failed_step,omitempty" yaml:"failed_step,omitempty"`
	Steps      int    `json:"steps"       yaml:"steps"`
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Summarize an execution document",
		ArgsUsage: "FILE",
		Flags:     []cli.Flag{outputFlag()},
		Action: func(_ context.Context, command *cli.Command) error {
			path, data, err := readArg(command)
			if err != nil {
				return err
			}

			e, err := wire.DecodeExecution(wire.FormatFromPath(path), data)
			if err != nil {
				return err
			}

			summary := executionStatus{
				ID:       e.ID,
				Status:   string(execution.DeriveStatus(e)),
				Duration: execution.FormatDuration(e.StartedAt, e.FinishedAt),
				Error:    execution.DeriveError(e),
				Steps:    len(e.Steps),
			}

			if step, ok := execution.FailedStep(e); ok {
				summary.FailedStep = step.NodeID
			}

			return write(command, summary)
		},
	}
}

func readArg(command *cli.Command) (string, []byte, error) {
	path := command.Args().First()
	if path == "" {
		return "", nil, errMissingFile
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return path, data, nil
}

func readWorkflow(command *cli.Command) (*models.Workflow, error) {
	path, data, err := readArg(command)
	if err != nil {
		return nil, err
	}

	return wire.DecodeWorkflow(wire.FormatFromPath(path), data)
}

func write(command *cli.Command, v any) error {
	format, err := wire.ParseFormat(command.String("output"))
	if err != nil {
		return err
	}

	data, err := wire.Marshal(format, v)
	if err != nil {
		return err
	}

	w := command.Root().Writer
	if _, err := w.Write(data); err != nil {
		return err
	}

	_, err = fmt.Fprintln(w)

	return err
}
