package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func fastGuard(opts ...Option) *Guard {
	opts = append([]Option{WithBackoff(time.Millisecond, 2*time.Millisecond)}, opts...)
	return NewGuard(opts...)
}

// hangUntil blocks the first n calls until their context is done.
func hangUntil(n int32, calls *atomic.Int32) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if calls.Add(1) <= n {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}
}

func TestGuard_Do_Success(t *testing.T) {
	g := fastGuard(WithTimeout(time.Second))
	var calls atomic.Int32

	err := g.Do(context.Background(), "op", hangUntil(0, &calls))

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGuard_Do_TimeoutWithoutRetries(t *testing.T) {
	g := fastGuard(WithTimeout(10 * time.Millisecond))
	var calls atomic.Int32

	err := g.Do(context.Background(), "op", hangUntil(5, &calls))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGuard_Do_RetriesTimeouts(t *testing.T) {
	g := fastGuard(WithTimeout(10*time.Millisecond), WithMaxRetries(3))
	var calls atomic.Int32

	err := g.Do(context.Background(), "op", hangUntil(2, &calls))

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGuard_Do_GivesUpAfterMaxRetries(t *testing.T) {
	g := fastGuard(WithTimeout(5*time.Millisecond), WithMaxRetries(2))
	var calls atomic.Int32

	err := g.Do(context.Background(), "op", hangUntil(10, &calls))

	assert.ErrorIs(t, err, domain.ErrBackendTimeout)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGuard_Do_DoesNotRetryOtherErrors(t *testing.T) {
	g := fastGuard(WithTimeout(time.Second), WithMaxRetries(3))
	boom := errors.New("boom")
	var calls atomic.Int32

	err := g.Do(context.Background(), "op", func(context.Context) error {
		calls.Add(1)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrBackendTimeout)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGuard_Do_CallerCancellationIsNotATimeout(t *testing.T) {
	g := fastGuard(WithMaxRetries(3))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Do(ctx, "op", func(ctx context.Context) error {
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrBackendTimeout)
}

func TestGuard_Do_RateLimit(t *testing.T) {
	g := fastGuard(WithRateLimit(20))
	var calls atomic.Int32

	start := time.Now()
	for range 21 {
		require.NoError(t, g.Do(context.Background(), "op", hangUntil(0, &calls)))
	}

	// The burst of 20 is free, the 21st waits about 50ms.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, int32(21), calls.Load())
}

func TestFromSettings(t *testing.T) {
	g := FromSettings(domain.ResilienceSettings{
		CallTimeout: 3 * time.Second,
		MaxRetries:  2,
		RateLimit:   0.5,
	})

	assert.Equal(t, 3*time.Second, g.timeout)
	assert.Equal(t, uint64(2), g.maxRetries)
	require.NotNil(t, g.limiter)
	assert.Equal(t, 1, g.limiter.Burst())

	g = FromSettings(domain.ResilienceSettings{})
	assert.Nil(t, g.limiter)
	assert.Zero(t, g.maxRetries)
}

type slowEmbedder struct {
	calls atomic.Int32
	hangs int32
}

func (s *slowEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	if err := hangUntil(s.hangs, &s.calls)(ctx); err != nil {
		return nil, err
	}
	return []float32{1, 2}, nil
}

func (s *slowEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := hangUntil(s.hangs, &s.calls)(ctx); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (s *slowEmbedder) Dimensions() int              { return 2 }
func (s *slowEmbedder) ModelName() string            { return "slow" }
func (s *slowEmbedder) Ping(_ context.Context) error { return nil }
func (s *slowEmbedder) Close() error                 { return nil }

var _ driven.EmbeddingService = (*slowEmbedder)(nil)

func TestWrapEmbedding_RetriesBatch(t *testing.T) {
	inner := &slowEmbedder{hangs: 1}
	svc := WrapEmbedding(inner, fastGuard(WithTimeout(10*time.Millisecond), WithMaxRetries(1)))

	vectors, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, 2, svc.Dimensions())
	assert.Equal(t, "slow", svc.ModelName())
}

func TestWrapEmbedding_Timeout(t *testing.T) {
	inner := &slowEmbedder{hangs: 10}
	svc := WrapEmbedding(inner, fastGuard(WithTimeout(5*time.Millisecond)))

	_, err := svc.Embed(context.Background(), "a")

	assert.ErrorIs(t, err, domain.ErrBackendTimeout)
}

type stubGenerator struct {
	prompt string
	opts   driven.GenerateOptions
}

func (s *stubGenerator) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	s.prompt = prompt
	s.opts = opts
	return "answer", nil
}

func (s *stubGenerator) ModelName() string            { return "stub" }
func (s *stubGenerator) Ping(_ context.Context) error { return nil }
func (s *stubGenerator) Close() error                 { return nil }

func TestWrapGeneration_PassesThrough(t *testing.T) {
	inner := &stubGenerator{}
	svc := WrapGeneration(inner, fastGuard(WithTimeout(time.Second)))

	out, err := svc.Generate(context.Background(), "prompt", driven.GenerateOptions{MaxTokens: 12})

	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, "prompt", inner.prompt)
	assert.Equal(t, 12, inner.opts.MaxTokens)
	assert.Equal(t, "stub", svc.ModelName())
}

type flakyStore struct {
	upserts atomic.Int32
	hangs   int32
}

func (f *flakyStore) EnsureCollection(_ context.Context, _ domain.CollectionSpec) error { return nil }

func (f *flakyStore) Describe(_ context.Context, name string) (domain.CollectionSpec, error) {
	return domain.CollectionSpec{Name: name, Dimension: 3, Metric: domain.MetricCosine, Model: "stub"}, nil
}

func (f *flakyStore) Upsert(ctx context.Context, _ string, _ []domain.IndexedRecord) error {
	return hangUntil(f.hangs, &f.upserts)(ctx)
}

func (f *flakyStore) Query(_ context.Context, _ string, _ []float32, _ int) ([]domain.Match, error) {
	return []domain.Match{{Score: 1}}, nil
}

func (f *flakyStore) Close() error { return nil }

func TestWrapVectorStore(t *testing.T) {
	inner := &flakyStore{hangs: 1}
	store := WrapVectorStore(inner, fastGuard(WithTimeout(10*time.Millisecond), WithMaxRetries(1)))
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, domain.CollectionSpec{}))
	require.NoError(t, store.Upsert(ctx, "c", nil))
	assert.Equal(t, int32(2), inner.upserts.Load())

	matches, err := store.Query(ctx, "c", []float32{1}, 1)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.NoError(t, store.Close())
}

func TestWrapVectorStore_Describe(t *testing.T) {
	store := WrapVectorStore(&flakyStore{}, fastGuard(WithTimeout(time.Second)))

	spec, err := store.Describe(context.Background(), "docs")

	require.NoError(t, err)
	assert.Equal(t, "docs", spec.Name)
	assert.Equal(t, "stub", spec.Model)
}
