package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func groundedAnswer() *domain.Answer {
	return &domain.Answer{
		Text:     "Paris is the capital of France.",
		Context:  []string{"France's capital is Paris.", "Paris hosts the Louvre.", "Lyon is in France."},
		Sources:  []string{"france.txt", "france.txt", "lyon.pdf"},
		Grounded: true,
	}
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	_, err := executeCommand(t, "", "ask")
	assert.Error(t, err)
}

func TestAskCmd_JoinsArgs(t *testing.T) {
	query := &MockQueryService{}
	withPipeline(t, nil, query)

	_, err := executeCommand(t, "", "ask", "what", "is", "the", "capital?")
	require.NoError(t, err)
	assert.Equal(t, "what is the capital?", query.Question)
	assert.Equal(t, 0, query.Opts.TopK)
}

func TestAskCmd_PrintsDistinctSources(t *testing.T) {
	query := &MockQueryService{
		AnswerFunc: func(context.Context, string, domain.QueryOptions) (*domain.Answer, error) {
			return groundedAnswer(), nil
		},
	}
	withPipeline(t, nil, query)

	out, err := executeCommand(t, "", "ask", "capital?")
	require.NoError(t, err)

	assert.Contains(t, out, "Paris is the capital of France.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "  - france.txt\n  - lyon.pdf\n")
	assert.NotContains(t, out, "Paris hosts the Louvre.")
}

func TestAskCmd_ShowContext(t *testing.T) {
	query := &MockQueryService{
		AnswerFunc: func(context.Context, string, domain.QueryOptions) (*domain.Answer, error) {
			return groundedAnswer(), nil
		},
	}
	withPipeline(t, nil, query)

	out, err := executeCommand(t, "", "ask", "--context", "capital?")
	require.NoError(t, err)
	assert.Contains(t, out, "[2] france.txt\nParis hosts the Louvre.")
}

func TestAskCmd_NoContext(t *testing.T) {
	withPipeline(t, nil, &MockQueryService{})

	out, err := executeCommand(t, "", "ask", "unknown?")
	require.NoError(t, err)
	assert.Contains(t, out, domain.NoRelevantInformationAnswer)
	assert.NotContains(t, out, "Sources:")
}

func TestAskCmd_TopK(t *testing.T) {
	query := &MockQueryService{}
	withPipeline(t, nil, query)

	_, err := executeCommand(t, "", "ask", "-k", "5", "q")
	require.NoError(t, err)
	assert.Equal(t, 5, query.Opts.TopK)
}

func TestAskCmd_NegativeTopK(t *testing.T) {
	withPipeline(t, nil, &MockQueryService{})

	_, err := executeCommand(t, "", "ask", "--top-k=-1", "q")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAskCmd_JSON(t *testing.T) {
	withPipeline(t, nil, &MockQueryService{})

	out, err := executeCommand(t, "", "ask", "--json", "q")
	require.NoError(t, err)

	var got answerJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, domain.NoRelevantInformationAnswer, got.Answer)
	assert.NotNil(t, got.Context)
	assert.NotNil(t, got.Sources)
	assert.Empty(t, got.Context)
}

func TestAskCmd_Error(t *testing.T) {
	query := &MockQueryService{
		AnswerFunc: func(context.Context, string, domain.QueryOptions) (*domain.Answer, error) {
			return nil, domain.ErrGeneration
		},
	}
	withPipeline(t, nil, query)

	_, err := executeCommand(t, "", "ask", "q")
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestDistinctSources(t *testing.T) {
	got := distinctSources([]string{"a", "", "b", "a", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Empty(t, distinctSources(nil))
}
