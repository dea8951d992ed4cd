// Package buffer runs Discord requests one at a time under a local rate
// limit, retrying requests the API rejected with a rate-limit error.
package buffer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/discordkit/internal/logger"
	"github.com/keepmind9/discordkit/internal/metrics"
	"github.com/keepmind9/discordkit/pkg/constants"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrClosed is returned for requests submitted after Close.
var ErrClosed = errors.New("request buffer closed")

// Config controls queue capacity, pacing and retries.
type Config struct {
	// QueueSize is the number of requests that can wait before Request blocks.
	QueueSize int
	// Rate is requests per second; zero or less disables local pacing.
	Rate float64
	// Burst is the token bucket size.
	Burst int
	// MaxRetries is how often a rate-limited request is retried.
	MaxRetries int
	// MaxWait caps a single retry-after sleep.
	MaxWait time.Duration
}

// DefaultConfig returns the buffer defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:  constants.DefaultBufferQueueSize,
		Rate:       constants.DefaultBufferRate,
		Burst:      constants.DefaultBufferBurst,
		MaxRetries: constants.DefaultBufferMaxRetries,
		MaxWait:    constants.MaxRateLimitWait,
	}
}

type request struct {
	run    func() error
	finish func(error)
}

// Buffer executes requests in submission order on a single goroutine.
type Buffer struct {
	cfg     Config
	limiter *rate.Limiter
	queue   chan request

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New starts a buffer. Zero fields in cfg fall back to DefaultConfig.
func New(cfg Config) *Buffer {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = def.MaxWait
	}

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Buffer{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		queue:   make(chan request, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Buffer) log() *logrus.Entry {
	return logger.WithComponent("buffer")
}

// Request queues fn without waiting for it to run. Failures are logged.
func (b *Buffer) Request(fn func() error) error {
	return b.enqueue(request{
		run: fn,
		finish: func(err error) {
			if err != nil {
				b.log().WithField("error", err).Warn("buffered-request-failed")
			}
		},
	})
}

func (b *Buffer) enqueue(req request) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		metrics.BufferRequests.WithLabelValues("dropped").Inc()
		return ErrClosed
	}
	b.queue <- req
	metrics.BufferQueueDepth.Inc()
	return nil
}

// Close stops accepting requests and waits for the queued ones to finish.
// If ctx ends first, in-flight waits are abandoned and ctx.Err is returned.
func (b *Buffer) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		b.cancel()
		<-b.done
		return ctx.Err()
	}
}

func (b *Buffer) loop() {
	defer close(b.done)
	defer b.cancel()
	for req := range b.queue {
		metrics.BufferQueueDepth.Dec()
		req.finish(b.execute(req.run))
	}
}

func (b *Buffer) execute(run func() error) error {
	for attempt := 0; ; attempt++ {
		if err := b.limiter.Wait(b.ctx); err != nil {
			metrics.BufferRequests.WithLabelValues("dropped").Inc()
			return fmt.Errorf("wait for rate limiter: %w", err)
		}

		err := safeRun(run)
		var rl *discordgo.RateLimitError
		if !errors.As(err, &rl) || attempt >= b.cfg.MaxRetries {
			if err != nil {
				metrics.BufferRequests.WithLabelValues("failed").Inc()
			} else {
				metrics.BufferRequests.WithLabelValues("ok").Inc()
			}
			return err
		}

		wait := retryAfter(rl, b.cfg.MaxWait)
		metrics.BufferRequests.WithLabelValues("retried").Inc()
		b.log().WithFields(logrus.Fields{
			"attempt":     attempt + 1,
			"retry_after": wait.String(),
		}).Info("request-rate-limited")

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-b.ctx.Done():
			timer.Stop()
			metrics.BufferRequests.WithLabelValues("dropped").Inc()
			return err
		}
	}
}

func safeRun(run func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return run()
}

func retryAfter(rl *discordgo.RateLimitError, limit time.Duration) time.Duration {
	if rl.RateLimit == nil || rl.TooManyRequests == nil {
		return 0
	}
	if rl.RetryAfter > limit {
		return limit
	}
	if rl.RetryAfter < 0 {
		return 0
	}
	return rl.RetryAfter
}

// Future is the pending result of a submitted request.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Submit queues fn and returns a future for its result. After Close the
// future completes immediately with ErrClosed.
func Submit[T any](b *Buffer, fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	err := b.enqueue(request{
		run: func() error {
			v, err := fn()
			f.value = v
			return err
		},
		finish: func(err error) {
			f.err = err
			close(f.done)
		},
	})
	if err != nil {
		f.err = err
		close(f.done)
	}
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get waits for the result or for ctx to end.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
