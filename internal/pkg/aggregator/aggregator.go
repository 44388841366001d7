package aggregator

import (
	"fmt"
	"sync"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/channel"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/event"
)

// Subscriber consumes events from one named channel
type Subscriber interface {
	Setup() error
	Handle(ev event.Event) error
	Teardown() error
}

// CallbackError wraps a per-event subscriber failure. The worker logs it
// and keeps looping - the event is dropped, not retried
type CallbackError struct {
	Err error
}

func (e *CallbackError) Error() string { return "callback error: " + e.Err.Error() }

func (e *CallbackError) Unwrap() error { return e.Err }

// NewCallbackError wraps err as a non fatal delivery failure
func NewCallbackError(err error) error {
	return &CallbackError{Err: err}
}

// PublishError indicates a publish to a channel name nobody subscribed to
type PublishError struct {
	Channel string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("no subscribers for channel '%s'", e.Channel)
}

var (
	// ErrNotRunning is returned by Publish before Start or after Stop
	ErrNotRunning = errors.New("aggregator is not running")
	// ErrRunning is returned by Register after Start
	ErrRunning = errors.New("aggregator is already running")
)

type subscription struct {
	ch  *channel.Channel
	sub Subscriber
}

// Aggregator fans published events out to every subscriber of a named
// channel, one worker goroutine and one FIFO queue per subscriber
type Aggregator struct {
	lock     sync.Mutex
	channels map[string][]*subscription
	capacity int
	running  bool
	wg       sync.WaitGroup
}

// New creates a configured, not yet running aggregator.
// queueCapacity < 1 gives unbounded subscriber queues
func New(queueCapacity int) *Aggregator {
	return &Aggregator{channels: map[string][]*subscription{}, capacity: queueCapacity}
}

// Register adds sub as a consumer of the named channel.
// Valid only before Start
func (a *Aggregator) Register(sub Subscriber, channelName string) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.running {
		return ErrRunning
	}
	a.channels[channelName] = append(a.channels[channelName],
		&subscription{ch: channel.NewBounded(a.capacity), sub: sub})
	goapp.Log.Info().Str("channel", channelName).Msg("registered subscriber")
	return nil
}

// Setup calls Setup on every subscriber. A failing subscriber is dropped
// from delivery and the error logged, partial setup success is accepted
func (a *Aggregator) Setup() {
	a.lock.Lock()
	defer a.lock.Unlock()
	for name, subs := range a.channels {
		kept := subs[:0]
		for _, s := range subs {
			if err := s.sub.Setup(); err != nil {
				goapp.Log.Error().Err(err).Str("channel", name).Msg("subscriber setup failed, removing")
				continue
			}
			kept = append(kept, s)
		}
		a.channels[name] = kept
	}
}

// Start spawns one worker per subscriber and begins accepting publishes
func (a *Aggregator) Start() {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.running {
		return
	}
	a.running = true
	for name, subs := range a.channels {
		for _, s := range subs {
			a.wg.Add(1)
			go a.work(name, s)
		}
	}
	goapp.Log.Info().Msg("aggregator started")
}

func (a *Aggregator) work(name string, s *subscription) {
	defer a.wg.Done()
	for {
		ev, ok := s.ch.Pop()
		if !ok {
			goapp.Log.Info().Str("channel", name).Msg("worker exit")
			return
		}
		a.deliver(name, s, ev)
	}
}

// deliver runs one Handle call. A panicking or failing subscriber must not
// break delivery to others, so everything is contained here
func (a *Aggregator) deliver(name string, s *subscription, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			goapp.Log.Error().Str("channel", name).Str("event", ev.Type()).
				Msgf("subscriber panic: %v", r)
		}
	}()
	if err := s.sub.Handle(ev); err != nil {
		var cbErr *CallbackError
		if errors.As(err, &cbErr) {
			goapp.Log.Error().Err(cbErr.Err).Str("channel", name).Str("event", ev.Type()).
				Msg("callback failed, event dropped")
			return
		}
		goapp.Log.Error().Err(err).Str("channel", name).Str("event", ev.Type()).
			Msg("unexpected subscriber failure, event dropped")
	}
}

// Publish enqueues ev onto every subscriber queue of the named channel
func (a *Aggregator) Publish(ev event.Event, channelName string) error {
	a.lock.Lock()
	if !a.running {
		a.lock.Unlock()
		return ErrNotRunning
	}
	subs := a.channels[channelName]
	a.lock.Unlock()
	if len(subs) == 0 {
		return &PublishError{Channel: channelName}
	}
	for _, s := range subs {
		if err := s.ch.Publish(ev); err != nil {
			goapp.Log.Warn().Err(err).Str("channel", channelName).Msg("enqueue failed")
		}
	}
	return nil
}

// Stop tears subscribers down, closes the queues and joins all workers.
// Idempotent. Publish fails with ErrNotRunning afterwards
func (a *Aggregator) Stop() {
	a.lock.Lock()
	if !a.running {
		a.lock.Unlock()
		return
	}
	a.running = false
	for name, subs := range a.channels {
		for _, s := range subs {
			if err := s.sub.Teardown(); err != nil {
				goapp.Log.Error().Err(err).Str("channel", name).Msg("subscriber teardown failed")
			}
			s.ch.Close()
		}
	}
	a.lock.Unlock()
	a.wg.Wait()
	goapp.Log.Info().Msg("aggregator stopped")
}
