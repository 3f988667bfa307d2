package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skillhub/flowcore/pkg/models"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for an encoding other than JSON or YAML.
var ErrUnknownFormat = errors.New("unknown document format")

// FormatFromPath picks the encoding from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

func Marshal(format Format, v any) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(v, "", "  ")
	case FormatYAML:
		return yaml.Marshal(v)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func Unmarshal(format Format, data []byte, v any) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, v)
	case FormatYAML:
		return yaml.Unmarshal(data, v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// EncodeWorkflow writes a workflow document.
func EncodeWorkflow(format Format, w *models.Workflow) ([]byte, error) {
	return Marshal(format, FromWorkflow(w))
}

// DecodeWorkflow reads a workflow document.
func DecodeWorkflow(format Format, data []byte) (*models.Workflow, error) {
	var doc Workflow
	if err := Unmarshal(format, data, &doc); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}

	return ToWorkflow(doc)
}

// EncodeExecution writes an execution document.
func EncodeExecution(format Format, e models.Execution) ([]byte, error) {
	return Marshal(format, FromExecution(e))
}

// DecodeExecution reads an execution document.
func DecodeExecution(format Format, data []byte) (models.Execution, error) {
	var doc Execution
	if err := Unmarshal(format, data, &doc); err != nil {
		return models.Execution{}, fmt.Errorf("decode execution: %w", err)
	}

	return ToExecution(doc)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	v := *t

	return &v
}
