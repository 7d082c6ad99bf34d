package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// classify wraps a backend error with the pipeline-level sentinel.
// Deadline expiry is additionally marked as ErrBackendTimeout so callers can retry.
func classify(kind error, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrBackendTimeout) {
		return fmt.Errorf("%w: %w: %w", kind, domain.ErrBackendTimeout, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}
