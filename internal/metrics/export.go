package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Export formats.
const (
	FormatJSON       = "json"       // flat record export
	FormatPrometheus = "prometheus" // label/value text for external scrapers
)

// ErrUnknownFormat indicates an unsupported export format name.
var ErrUnknownFormat = errors.New("unknown export format")

// Export writes the last days of metrics data to path.
//
// FormatJSON dumps the flat invocation records; FormatPrometheus renders
// per-tool aggregate gauges in the text exposition format.
func (s *Service) Export(ctx context.Context, format, path string, days int) error {
	switch format {
	case FormatJSON:
		return s.exportJSON(ctx, path, days)
	case FormatPrometheus:
		return s.exportPrometheus(ctx, path, days)
	default:
		return fmt.Errorf("%w: %q (supported: %s, %s)",
			ErrUnknownFormat, format, FormatJSON, FormatPrometheus)
	}
}

func (s *Service) exportJSON(ctx context.Context, path string, days int) error {
	records, err := s.Records(ctx, "", days)
	if err != nil {
		return fmt.Errorf("collecting records: %w", err)
	}
	if records == nil {
		records = []Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}
