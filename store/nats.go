package store

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATS stores values in a JetStream key-value bucket.
type NATS struct {
	kv nats.KeyValue
}

func NewNATS(kv nats.KeyValue) *NATS {
	return &NATS{kv: kv}
}

func (n *NATS) Get(key string) (string, bool, error) {
	entry, err := n.kv.Get(key)
	switch {
	case errors.Is(err, nats.ErrKeyNotFound), errors.Is(err, nats.ErrKeyDeleted):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return string(entry.Value()), true, nil
}

func (n *NATS) Set(key, value string) error {
	if _, err := n.kv.PutString(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (n *NATS) Remove(key string) error {
	if err := n.kv.Delete(key); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
