package facade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/keepmind9/discordkit/internal/logger"
	"github.com/keepmind9/discordkit/internal/metrics"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

type lifecycle int

const (
	uninitialized lifecycle = iota
	initializing
	ready
)

func (l lifecycle) String() string {
	switch l {
	case initializing:
		return "initializing"
	case ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// pendingCall is a resource-only operation issued before the client was ready.
type pendingCall struct {
	name string
	run  func(Resource) error
}

// Facade stands in for a Discord client that does not exist yet.
//
// Configuration setters only touch local state. Queries answer from the
// client once it exists and from local defaults before that. Resource-only
// calls made before Login completes are queued and replayed in order, exactly
// once, when the client becomes ready.
//
// A single mutex guards configuration, the client handle, the lifecycle and
// the queue. The facade only turns ready while holding it with an empty
// queue, so no call can be appended after the final drain. Queued calls run
// outside the mutex.
type Facade struct {
	mu       sync.Mutex
	cfg      Config
	builder  Builder
	state    lifecycle
	resource Resource
	pending  []pendingCall

	created         time.Time
	onDeferredError func(error)
}

// Option configures a Facade at construction.
type Option func(*Facade)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(f *Facade) { f.cfg = cfg }
}

// WithToken sets the bot token.
func WithToken(token string) Option {
	return func(f *Facade) { f.cfg.Token = token }
}

// WithLegacyLogin sets the email and password pair used when no token is set.
func WithLegacyLogin(email, password string) Option {
	return func(f *Facade) {
		f.cfg.Email = email
		f.cfg.Password = password
	}
}

// WithConnectTimeout bounds the connection handshake.
func WithConnectTimeout(d time.Duration) Option {
	return func(f *Facade) { f.cfg.ConnectTimeout = d }
}

// WithPingTimeout bounds the wait for the gateway to report ready.
func WithPingTimeout(d time.Duration) Option {
	return func(f *Facade) { f.cfg.PingTimeout = d }
}

// WithDaemon marks the client as not keeping the process alive.
func WithDaemon() Option {
	return func(f *Facade) { f.cfg.Daemon = true }
}

// WithReconnect enables automatic reconnects.
func WithReconnect() Option {
	return func(f *Facade) { f.cfg.Reconnect = true }
}

// WithDeferredErrorHandler receives the combined failures of queued calls
// replayed during Login.
func WithDeferredErrorHandler(fn func(error)) Option {
	return func(f *Facade) { f.onDeferredError = fn }
}

// New creates a facade that will use builder on its first Login.
func New(builder Builder, opts ...Option) *Facade {
	f := &Facade{
		cfg:     DefaultConfig(),
		builder: builder,
		created: time.Now(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Setup creates a facade and hands it to configure, in the declarative
// style of:
//
//	f, err := facade.Setup(discord.NewBuilder(), func(f *facade.Facade) error {
//	    if err := f.SetToken(token); err != nil {
//	        return err
//	    }
//	    listen.On(f, func(l *listen.Listener[*discordgo.Ready], e *discordgo.Ready) { ... })
//	    return f.Login(ctx)
//	})
func Setup(builder Builder, configure func(*Facade) error, opts ...Option) (*Facade, error) {
	f := New(builder, opts...)
	if configure == nil {
		return f, nil
	}
	if err := configure(f); err != nil {
		return f, err
	}
	return f, nil
}

func (f *Facade) log() *logrus.Entry {
	return logger.WithComponent("facade")
}

// setConfig applies fn unless the client already exists.
func (f *Facade) setConfig(field string, fn func(*Config)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != uninitialized {
		f.log().WithField("field", field).Warn("config-change-rejected-after-login")
		return fmt.Errorf("set %s: %w", field, ErrConfigFrozen)
	}
	fn(&f.cfg)
	return nil
}

// SetToken sets the bot token.
func (f *Facade) SetToken(token string) error {
	return f.setConfig("token", func(c *Config) { c.Token = token })
}

// SetEmail sets the legacy login email.
//
// Deprecated: use SetToken.
func (f *Facade) SetEmail(email string) error {
	return f.setConfig("email", func(c *Config) { c.Email = email })
}

// SetPassword sets the legacy login password.
//
// Deprecated: use SetToken.
func (f *Facade) SetPassword(password string) error {
	return f.setConfig("password", func(c *Config) { c.Password = password })
}

// SetTimeout sets the connection timeout.
func (f *Facade) SetTimeout(d time.Duration) error {
	return f.setConfig("timeout", func(c *Config) { c.ConnectTimeout = d })
}

// SetPingTimeout sets the ping timeout.
func (f *Facade) SetPingTimeout(d time.Duration) error {
	return f.setConfig("ping_timeout", func(c *Config) { c.PingTimeout = d })
}

// SetDaemon sets the daemon flag.
func (f *Facade) SetDaemon(daemon bool) error {
	return f.setConfig("daemon", func(c *Config) { c.Daemon = daemon })
}

// SetReconnect toggles automatic reconnects.
func (f *Facade) SetReconnect(reconnect bool) error {
	return f.setConfig("reconnect", func(c *Config) { c.Reconnect = reconnect })
}

// Config returns a copy of the current configuration.
func (f *Facade) Config() Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

// Resource returns the live client, or ErrNotReady before Login created it.
func (f *Facade) Resource() (Resource, error) {
	if r, ok := f.current(); ok {
		return r, nil
	}
	return nil, ErrNotReady
}

// Pending reports how many calls are waiting for the client.
func (f *Facade) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Login creates the client on first use and replays every queued call
// against it. On later calls it delegates to the client's own Login.
//
// Build failures are returned unchanged and leave the facade uninitialized,
// keeping the queue for the next attempt.
func (f *Facade) Login(ctx context.Context) error {
	f.mu.Lock()
	switch f.state {
	case ready:
		r := f.resource
		f.mu.Unlock()
		if err := r.Login(ctx); err != nil {
			metrics.Logins.WithLabelValues("failed").Inc()
			return err
		}
		metrics.Logins.WithLabelValues("reconnected").Inc()
		return nil
	case initializing:
		f.mu.Unlock()
		return ErrLoginInProgress
	}
	if f.builder == nil {
		f.mu.Unlock()
		return ErrNoBuilder
	}
	f.state = initializing
	cfg := f.cfg
	f.mu.Unlock()

	f.log().WithFields(logrus.Fields{
		"credentials": cfg.Credentials().String(),
		"reconnect":   cfg.Reconnect,
		"daemon":      cfg.Daemon,
	}).Info("building-discord-client")

	start := time.Now()
	r, err := f.builder.Build(ctx, cfg)
	metrics.LoginDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		f.mu.Lock()
		f.state = uninitialized
		f.mu.Unlock()
		metrics.Logins.WithLabelValues("failed").Inc()
		f.log().WithField("error", err).Error("failed-to-build-discord-client")
		return err
	}

	f.mu.Lock()
	f.resource = r
	f.mu.Unlock()

	f.drain(r)
	metrics.Logins.WithLabelValues("created").Inc()
	f.log().Info("discord-client-ready")
	return nil
}

// drain replays queued calls in rounds until the queue is empty, then marks
// the facade ready under the same lock that guards appends.
func (f *Facade) drain(r Resource) {
	var errs error
	executed := 0
	for {
		f.mu.Lock()
		batch := f.pending
		f.pending = nil
		if len(batch) == 0 {
			f.state = ready
			f.mu.Unlock()
			break
		}
		f.mu.Unlock()

		metrics.PendingCalls.Sub(float64(len(batch)))
		for _, call := range batch {
			executed++
			if err := runPending(call, r); err != nil {
				metrics.DeferredCalls.WithLabelValues("failed").Inc()
				f.log().WithFields(logrus.Fields{
					"call":  call.name,
					"error": err,
				}).Warn("deferred-call-failed")
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", call.name, err))
				continue
			}
			metrics.DeferredCalls.WithLabelValues("executed").Inc()
		}
	}

	if executed > 0 {
		f.log().WithFields(logrus.Fields{
			"executed": executed,
			"failed":   len(multierr.Errors(errs)),
		}).Info("deferred-calls-replayed")
	}
	if errs != nil && f.onDeferredError != nil {
		f.onDeferredError(errs)
	}
}

func runPending(call pendingCall, r Resource) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return call.run(r)
}

// current returns the client if one was created.
func (f *Facade) current() (Resource, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resource, f.resource != nil
}

// Defer runs fn against the client now if the facade is ready, otherwise it
// queues fn to run once, in order, when Login completes. A queued fn reports
// its failure through the deferred error handler; Defer itself returns nil.
func (f *Facade) Defer(name string, fn func(Resource) error) error {
	_, err := command(f, name, func(r Resource) (struct{}, error) {
		return struct{}{}, fn(r)
	})
	return err
}

// command is the resource-only dispatch policy.
func command[T any](f *Facade, name string, fn func(Resource) (T, error)) (T, error) {
	f.mu.Lock()
	if f.state == ready {
		r := f.resource
		f.mu.Unlock()
		return fn(r)
	}
	f.pending = append(f.pending, pendingCall{
		name: name,
		run: func(r Resource) error {
			_, err := fn(r)
			return err
		},
	})
	depth := len(f.pending)
	f.mu.Unlock()

	metrics.PendingCalls.Inc()
	metrics.DeferredCalls.WithLabelValues("queued").Inc()
	f.log().WithFields(logrus.Fields{
		"call":    name,
		"pending": depth,
	}).Debug("call-deferred-until-ready")

	var zero T
	return zero, nil
}

// query is the facade-or-resource policy for values without errors.
func query[T any](f *Facade, fn func(Resource) T, fallback func() T) T {
	if r, ok := f.current(); ok {
		return fn(r)
	}
	return fallback()
}

// lookup is the facade-or-resource policy for calls that may fail on the
// client. Without a client it returns the zero value and no error.
func lookup[T any](f *Facade, fn func(Resource) (T, error)) (T, error) {
	if r, ok := f.current(); ok {
		return fn(r)
	}
	var zero T
	return zero, nil
}
