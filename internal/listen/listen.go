// Package listen registers typed discordgo event listeners and waits for
// events, going through the facade when the client does not exist yet.
//
// E is a discordgo event type such as *discordgo.MessageCreate or
// *discordgo.Ready, or interface{} for every event.
package listen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/keepmind9/discordkit/internal/facade"
	"github.com/keepmind9/discordkit/internal/logger"
	"github.com/keepmind9/discordkit/internal/metrics"
	"github.com/sirupsen/logrus"
)

var (
	// ErrWaitTimeout is returned when no matching event arrived in time.
	ErrWaitTimeout = errors.New("timed out waiting for event")

	// ErrNoDispatcher is returned when the client has no event dispatcher.
	ErrNoDispatcher = errors.New("client has no event dispatcher")
)

// Listener is a named callback bound to one event type.
type Listener[E any] struct {
	name     string
	callback func(*Listener[E], E)

	mu         sync.Mutex
	dispatcher facade.Dispatcher
	remove     func()
}

// New creates a listener. An empty name gets a random one.
func New[E any](name string, callback func(l *Listener[E], event E)) *Listener[E] {
	if name == "" {
		name = uuid.NewString()
	}
	return &Listener[E]{name: name, callback: callback}
}

// Name returns the listener name.
func (l *Listener[E]) Name() string {
	return l.name
}

// Registered reports whether the listener is attached to a dispatcher.
func (l *Listener[E]) Registered() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remove != nil
}

// Register attaches the listener to d, detaching it from any earlier dispatcher.
func (l *Listener[E]) Register(d facade.Dispatcher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remove != nil {
		l.remove()
	}
	l.remove = d.AddHandler(l.handle)
	l.dispatcher = d

	logger.WithFields(logrus.Fields{
		"component": "listen",
		"listener":  l.name,
		"event":     eventName[E](),
	}).Debug("listener-registered")
}

// Unregister detaches the listener from the last dispatcher it was
// registered with. It is a no-op for a listener that never registered.
func (l *Listener[E]) Unregister() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.detach()
}

// UnregisterFrom detaches the listener if it is registered with d.
func (l *Listener[E]) UnregisterFrom(d facade.Dispatcher) {
	if d == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dispatcher == d {
		l.detach()
	}
}

func (l *Listener[E]) detach() {
	if l.remove == nil {
		return
	}
	l.remove()
	l.remove = nil
	l.dispatcher = nil
}

func (l *Listener[E]) handle(_ *discordgo.Session, event E) {
	metrics.ListenerEvents.WithLabelValues(eventName[E]()).Inc()
	l.callback(l, event)
}

// On registers callback for events of type E on the facade's client. Before
// login the registration is queued and happens once the client is ready.
func On[E any](f *facade.Facade, callback func(l *Listener[E], event E)) (*Listener[E], error) {
	return OnNamed(f, "", callback)
}

// OnNamed is On with an explicit listener name.
func OnNamed[E any](f *facade.Facade, name string, callback func(l *Listener[E], event E)) (*Listener[E], error) {
	l := New(name, callback)
	err := f.Defer("register-listener:"+l.name, func(r facade.Resource) error {
		d := r.Dispatcher()
		if d == nil {
			return ErrNoDispatcher
		}
		l.Register(d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Await blocks until d delivers an event of type E accepted by match (nil
// accepts all). A zero timeout waits until ctx is done. A nil d, as returned
// by Facade.Dispatcher before login, fails with ErrNoDispatcher.
func Await[E any](ctx context.Context, d facade.Dispatcher, match func(E) bool, timeout time.Duration) (E, error) {
	if d == nil {
		var zero E
		return zero, ErrNoDispatcher
	}
	events := make(chan E, 1)
	remove := d.AddHandler(matcher(events, match))
	defer remove()
	return wait(ctx, events, timeout)
}

// WaitFor is Await against the facade's client. Before login the handler is
// registered once the client is ready; the caller blocks meanwhile.
func WaitFor[E any](ctx context.Context, f *facade.Facade, match func(E) bool, timeout time.Duration) (E, error) {
	events := make(chan E, 1)
	handler := matcher(events, match)

	var (
		mu     sync.Mutex
		done   bool
		remove func()
	)
	err := f.Defer("wait-for", func(r facade.Resource) error {
		d := r.Dispatcher()
		if d == nil {
			return ErrNoDispatcher
		}
		mu.Lock()
		defer mu.Unlock()
		if done {
			return nil
		}
		remove = d.AddHandler(handler)
		return nil
	})
	if err != nil {
		var zero E
		return zero, err
	}
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		done = true
		if remove != nil {
			remove()
		}
	}()

	return wait(ctx, events, timeout)
}

// eventName is the Go type of E, e.g. "*discordgo.Ready".
func eventName[E any]() string {
	return fmt.Sprintf("%T", (*E)(nil))[1:]
}

func matcher[E any](events chan<- E, match func(E) bool) func(*discordgo.Session, E) {
	var once sync.Once
	return func(_ *discordgo.Session, event E) {
		if match != nil && !match(event) {
			return
		}
		once.Do(func() { events <- event })
	}
}

func wait[E any](ctx context.Context, events <-chan E, timeout time.Duration) (E, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case event := <-events:
		return event, nil
	case <-ctx.Done():
		var zero E
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w: %w", ErrWaitTimeout, ctx.Err())
		}
		return zero, ctx.Err()
	}
}
