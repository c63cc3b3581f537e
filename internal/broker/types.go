package broker

import (
	"context"

	"github.com/casualjim/codelens/events"
)

// Broker hands out named topics.
type Broker interface {
	Topic(context.Context, string) Topic
}

// Topic distributes conversation events to its subscribers.
type Topic interface {
	Publish(context.Context, events.Event) error
	Subscribe(context.Context, events.Hook) (Subscription, error)
}

type Subscription interface {
	ID() string
	Unsubscribe()
}
