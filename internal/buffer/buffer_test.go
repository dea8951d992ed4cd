package buffer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimited(after time.Duration) error {
	return &discordgo.RateLimitError{RateLimit: &discordgo.RateLimit{
		TooManyRequests: &discordgo.TooManyRequests{RetryAfter: after},
		URL:             "https://discord.com/api/v9/channels/1/messages",
	}}
}

func unpaced() Config {
	return Config{QueueSize: 16, MaxRetries: 3, MaxWait: time.Second}
}

func closeBuffer(t *testing.T, b *Buffer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Close(ctx))
}

func TestNew_FillsDefaults(t *testing.T) {
	b := New(Config{MaxRetries: -1})
	defer closeBuffer(t, b)

	assert.Equal(t, DefaultConfig().QueueSize, b.cfg.QueueSize)
	assert.Equal(t, DefaultConfig().Burst, b.cfg.Burst)
	assert.Equal(t, DefaultConfig().MaxWait, b.cfg.MaxWait)
	assert.Equal(t, 0, b.cfg.MaxRetries)
}

func TestRequest_RunsInSubmissionOrder(t *testing.T) {
	b := New(unpaced())

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 50; i++ {
		i := i
		require.NoError(t, b.Request(func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}))
	}
	closeBuffer(t, b)

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestRequest_FailureDoesNotStopQueue(t *testing.T) {
	b := New(unpaced())

	ran := false
	require.NoError(t, b.Request(func() error { return errors.New("50013: Missing Permissions") }))
	require.NoError(t, b.Request(func() error { ran = true; return nil }))
	closeBuffer(t, b)

	assert.True(t, ran)
}

func TestSubmit_ReturnsValue(t *testing.T) {
	b := New(unpaced())
	defer closeBuffer(t, b)

	f := Submit(b, func() (*discordgo.Message, error) {
		return &discordgo.Message{ID: "m-1"}, nil
	})

	m, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m-1", m.ID)

	select {
	case <-f.Done():
	default:
		t.Fatal("future not done after Get")
	}
}

func TestSubmit_RetriesRateLimitErrors(t *testing.T) {
	b := New(unpaced())
	defer closeBuffer(t, b)

	attempts := 0
	f := Submit(b, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, rateLimited(time.Millisecond)
		}
		return attempts, nil
	})

	n, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSubmit_GivesUpAfterMaxRetries(t *testing.T) {
	cfg := unpaced()
	cfg.MaxRetries = 2
	b := New(cfg)
	defer closeBuffer(t, b)

	attempts := 0
	f := Submit(b, func() (struct{}, error) {
		attempts++
		return struct{}{}, rateLimited(time.Millisecond)
	})

	_, err := f.Get(context.Background())
	var rl *discordgo.RateLimitError
	assert.ErrorAs(t, err, &rl)
	assert.Equal(t, 3, attempts)
}

func TestSubmit_OtherErrorsAreNotRetried(t *testing.T) {
	b := New(unpaced())
	defer closeBuffer(t, b)

	boom := errors.New("404: Unknown Channel")
	attempts := 0
	f := Submit(b, func() (string, error) {
		attempts++
		return "", boom
	})

	_, err := f.Get(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestSubmit_PanicBecomesError(t *testing.T) {
	b := New(unpaced())
	defer closeBuffer(t, b)

	f := Submit(b, func() (int, error) { panic("nil channel") })

	_, err := f.Get(context.Background())
	assert.EqualError(t, err, "panic: nil channel")
}

func TestSubmit_AfterCloseFails(t *testing.T) {
	b := New(unpaced())
	closeBuffer(t, b)

	f := Submit(b, func() (int, error) { return 1, nil })
	_, err := f.Get(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, b.Request(func() error { return nil }), ErrClosed)

	// closing twice is fine
	closeBuffer(t, b)
}

func TestFuture_GetHonorsContext(t *testing.T) {
	b := New(unpaced())
	release := make(chan struct{})
	defer func() {
		close(release)
		closeBuffer(t, b)
	}()

	f := Submit(b, func() (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose_ContextAbandonsRetryWait(t *testing.T) {
	cfg := unpaced()
	cfg.MaxWait = time.Minute
	b := New(cfg)

	f := Submit(b, func() (int, error) { return 0, rateLimited(time.Minute) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Close(ctx), context.DeadlineExceeded)

	_, err := f.Get(context.Background())
	var rl *discordgo.RateLimitError
	assert.ErrorAs(t, err, &rl)
}

func TestExecute_PacesWithLimiter(t *testing.T) {
	b := New(Config{QueueSize: 4, Rate: 50, Burst: 1})

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Request(func() error { return nil }))
	}
	closeBuffer(t, b)

	// first token is immediate, the next two wait 20ms each
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name string
		err  *discordgo.RateLimitError
		want time.Duration
	}{
		{"plain", rateLimited(2 * time.Second).(*discordgo.RateLimitError), 2 * time.Second},
		{"capped", rateLimited(time.Hour).(*discordgo.RateLimitError), 5 * time.Second},
		{"negative", rateLimited(-time.Second).(*discordgo.RateLimitError), 0},
		{"no details", &discordgo.RateLimitError{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryAfter(tt.err, 5*time.Second))
		})
	}
}
