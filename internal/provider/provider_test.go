package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatus_MapsCodes(t *testing.T) {
	tests := []struct {
		status    int
		sentinel  error
		retryable bool
	}{
		{401, ErrAuthentication, false},
		{403, ErrAuthentication, false},
		{429, ErrRateLimit, true},
		{400, ErrInvalidRequest, false},
		{413, ErrContextLengthExceeded, false},
		{503, ErrServiceUnavailable, true},
		{418, ErrNetwork, true},
	}
	for _, tt := range tests {
		err := FromStatus(tt.status, "msg", errors.New("raw"))
		assert.ErrorIs(t, err, tt.sentinel, "status %d", tt.status)
		assert.Equal(t, tt.retryable, IsRetryable(err), "status %d", tt.status)
	}
}

func TestProviderError_UnwrapsUnderlying(t *testing.T) {
	raw := errors.New("raw")
	err := FromStatus(500, "", raw)

	assert.ErrorIs(t, err, raw)
	assert.Contains(t, err.Error(), "service_unavailable")
}

func TestModelCache_LoadsOnce(t *testing.T) {
	c := NewModelCache()
	var loads atomic.Int32
	load := func(ctx context.Context, model string) (ModelInfo, error) {
		loads.Add(1)
		return ModelInfo{Name: model, InputTokenLimit: 1000}, nil
	}

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := c.Lookup(context.Background(), "m", load)
			assert.NoError(t, err)
			assert.Equal(t, 1000, info.InputTokenLimit)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
}

func TestModelCache_LoaderErrorNotCached(t *testing.T) {
	c := NewModelCache()
	fail := true
	load := func(ctx context.Context, model string) (ModelInfo, error) {
		if fail {
			return ModelInfo{}, errors.New("offline")
		}
		return ModelInfo{Name: model, InputTokenLimit: 5}, nil
	}

	_, err := c.Lookup(context.Background(), "m", load)
	require.Error(t, err)

	fail = false
	info, err := c.Lookup(context.Background(), "m", load)
	require.NoError(t, err)
	assert.Equal(t, 5, info.InputTokenLimit)
}

func TestStaticLoader(t *testing.T) {
	load := StaticLoader(map[string]ModelInfo{"a": {InputTokenLimit: 10}})

	info, err := load(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", info.Name)

	_, err = load(context.Background(), "b")
	assert.Error(t, err)
}

type countingAdapter struct {
	sends atomic.Int32
}

func (c *countingAdapter) Send(ctx context.Context, req *Request) (*Response, error) {
	c.sends.Add(1)
	return &Response{FinishReason: FinishCompleted, Message: message.NewText(message.AuthorBot, "ok")}, nil
}

func (c *countingAdapter) Tokenize(ctx context.Context, window []message.ChatMessage) (int, error) {
	return len(window), nil
}

func TestWithRequestsPerMinute_ZeroReturnsSame(t *testing.T) {
	a := &countingAdapter{}
	assert.Same(t, a, WithRequestsPerMinute(a, 0))
}

func TestRateLimited_CancelledContext_NoCall(t *testing.T) {
	a := &countingAdapter{}
	limited := WithRequestsPerMinute(a, 1)

	_, err := limited.Send(context.Background(), &Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = limited.Send(ctx, &Request{})

	assert.Error(t, err)
	assert.Equal(t, int32(1), a.sends.Load())
}

type sizedAdapter struct {
	countingAdapter
}

func (s *sizedAdapter) ContextSize(ctx context.Context) (int, error) { return 4096, nil }

func TestRateLimited_ContextSize(t *testing.T) {
	sized := WithRequestsPerMinute(&sizedAdapter{}, 60).(ContextSizer)
	size, err := sized.ContextSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4096, size)

	unsized := WithRequestsPerMinute(&countingAdapter{}, 60).(ContextSizer)
	size, err = unsized.ContextSize(context.Background())
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestGenerateConfig_CloneIsDeep(t *testing.T) {
	c := &GenerateConfig{Temperature: Float32(0.1), MaxOutputTokens: Int(10), StopSequences: []string{"x"}}

	clone := c.Clone()
	*c.Temperature = 0.9
	*c.MaxOutputTokens = 99
	c.StopSequences[0] = "y"

	assert.Equal(t, float32(0.1), *clone.Temperature)
	assert.Equal(t, 10, *clone.MaxOutputTokens)
	assert.Equal(t, []string{"x"}, clone.StopSequences)
	assert.Nil(t, (*GenerateConfig)(nil).Clone())
}
