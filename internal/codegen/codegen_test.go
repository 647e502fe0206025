package codegen

import (
	"context"
	"sync"
	"testing"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ReturnsCodeOfExpectedShape(t *testing.T) {
	g := New()
	code, err := g.Generate(context.Background(), func(ctx context.Context, code string) (bool, error) {
		return false, nil
	})

	require.NoError(t, err)
	assert.Len(t, code, 8)
	for _, r := range code {
		assert.True(t, (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'), "unexpected rune %q", r)
	}
}

func TestGenerate_RetriesOnCollision(t *testing.T) {
	g := New()
	var calls int
	var seenFirst string

	code, err := g.Generate(context.Background(), func(ctx context.Context, code string) (bool, error) {
		calls++
		if seenFirst == "" {
			seenFirst = code
			return true, nil // first draw always collides
		}
		return false, nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls, 2)
	assert.NotEqual(t, seenFirst, code)
}

func TestGenerate_ExhaustsAfterMaxRetries(t *testing.T) {
	g := &Generator{MaxRetries: 5}

	_, err := g.Generate(context.Background(), func(ctx context.Context, code string) (bool, error) {
		return true, nil // always collides
	})

	require.ErrorIs(t, err, domain.ErrCodeGenerationExhausted)
}

func TestGenerate_ConcurrentCallsProduceDistinctCodes(t *testing.T) {
	g := New()
	var mu sync.Mutex
	seen := make(map[string]bool)

	existsFn := func(ctx context.Context, code string) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		return seen[code], nil
	}

	const n = 100
	codes := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := g.Generate(context.Background(), existsFn)
			require.NoError(t, err)
			mu.Lock()
			seen[code] = true
			mu.Unlock()
			codes[i] = code
		}(i)
	}
	wg.Wait()

	unique := make(map[string]bool, n)
	for _, c := range codes {
		unique[c] = true
	}
	assert.Len(t, unique, n)
}
