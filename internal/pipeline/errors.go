package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"phonefleet/internal/tabular"
)

var (
	ErrMissingInput      = errors.New("missing input")
	ErrMalformedData     = errors.New("malformed data")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrWriteFailed       = errors.New("write failed")
	ErrConfiguration     = errors.New("configuration error")
	ErrBusy              = errors.New("another run is in progress")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrMalformedData
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// loadError classifies a failure to read an input file. Absent files and
// absent columns are missing input; anything else is malformed data.
func loadError(stage, path string, err error) error {
	marker := ErrMalformedData
	switch {
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, tabular.ErrMissingColumns),
		errors.Is(err, tabular.ErrEmptyFile):
		marker = ErrMissingInput
	}
	return Wrap(marker, stage, "load", path, err)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
