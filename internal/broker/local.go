package broker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/codelens/events"
	"github.com/casualjim/codelens/pkg/slogx"
	"github.com/casualjim/codelens/pkg/uuidx"
)

const (
	defaultSlowSubscriberTimeout = 100 * time.Millisecond
	subscriptionBufferSize       = 50
)

var errHookRequired = errors.New("hook is required")

type localBroker struct {
	topics                *haxmap.Map[string, *topic]
	slowSubscriberTimeout time.Duration
}

// Local returns an in-process broker. Every subscription gets a buffered
// channel and its own goroutine; a subscriber that stays full for longer than
// the slow subscriber timeout is dropped.
func Local() Broker {
	return &localBroker{
		topics:                haxmap.New[string, *topic](),
		slowSubscriberTimeout: defaultSlowSubscriberTimeout,
	}
}

// WithSlowSubscriberTimeout configures the timeout for detecting slow subscribers
func (b *localBroker) WithSlowSubscriberTimeout(timeout time.Duration) *localBroker {
	b.slowSubscriberTimeout = timeout
	return b
}

func (b *localBroker) Topic(ctx context.Context, id string) Topic {
	topic, _ := b.topics.GetOrCompute(id, func() *topic {
		return &topic{
			ID:                    id,
			subscriptions:         haxmap.New[string, *subscription](),
			slowSubscriberTimeout: b.slowSubscriberTimeout,
		}
	})
	return topic
}

type topic struct {
	ID                    string
	subscriptions         *haxmap.Map[string, *subscription]
	slowSubscriberTimeout time.Duration
}

func (t *topic) Publish(ctx context.Context, event events.Event) error {
	if event == nil {
		return errors.New("event is required")
	}

	t.subscriptions.ForEach(func(id string, sub *subscription) bool {
		if sub == nil {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-sub.ctx.Done():
			sub.Unsubscribe()
			return true
		default:
		}

		sub.mu.Lock()
		defer sub.mu.Unlock()
		if sub.closed {
			return true
		}

		timer := time.NewTimer(t.slowSubscriberTimeout)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return false
		case <-sub.ctx.Done():
			sub.closeLocked()
		case sub.channel <- event:
		case <-timer.C:
			slog.Warn("dropping slow subscriber", slogx.LoggerName("broker"), slog.String("topic", t.ID), slog.String("subscription", id))
			sub.closeLocked()
		}
		return true
	})
	return ctx.Err()
}

func (t *topic) Subscribe(ctx context.Context, hook events.Hook) (Subscription, error) {
	if hook == nil {
		return nil, errHookRequired
	}
	return t.newSubscription(ctx, hook), nil
}

func (t *topic) newSubscription(ctx context.Context, hook events.Hook) *subscription {
	id := uuidx.NewString()
	sub := &subscription{
		id:      id,
		ctx:     ctx,
		channel: make(chan events.Event, subscriptionBufferSize),
		onClose: func() { t.subscriptions.Del(id) },
		hook:    hook,
	}
	t.subscriptions.Set(id, sub)
	go sub.forwardToHook()
	return sub
}

type subscription struct {
	id      string
	ctx     context.Context
	channel chan events.Event
	onClose func()
	hook    events.Hook

	mu     sync.Mutex
	closed bool
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *subscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	if s.onClose != nil {
		s.onClose()
	}
	close(s.channel)
}

func (s *subscription) forwardToHook() {
	for {
		select {
		case event, ok := <-s.channel:
			if !ok {
				return
			}
			events.Dispatch(s.ctx, s.hook, event)
		case <-s.ctx.Done():
			return
		}
	}
}
