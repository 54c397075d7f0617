package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"taskzen/internal/models"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Export returns a fresh snapshot of a board, bypassing the cache.
func (s *Service) Export(ctx context.Context, userID, projectID string) (models.Board, error) {
	return s.loadBoard(ctx, userID, projectID)
}

// ExportFormat normalizes a format name. Empty means YAML.
func ExportFormat(raw string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(raw)); f {
	case "", FormatYAML, "yml":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", models.Invalid("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	if format == FormatJSON {
		return "application/json; charset=utf-8"
	}
	return "application/yaml; charset=utf-8"
}

// WriteExport encodes b to w in the given format.
func WriteExport(w io.Writer, b models.Board, format string) error {
	switch format {
	case FormatJSON:
		data, err := sonic.ConfigStd.MarshalIndent(b, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return models.Invalid("unsupported export format %q", format)
	}
}
