package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// QueryService answers questions from indexed documents.
type QueryService interface {
	// Answer retrieves context for the question and generates a grounded answer.
	// Failures wrap domain.ErrRetrieval or domain.ErrGeneration.
	Answer(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error)
}
