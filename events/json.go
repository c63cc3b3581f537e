package events

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const typeField = "type"

// ToJSON serializes an event with a "type" discriminator.
func ToJSON(event Event) ([]byte, error) {
	if event == nil {
		return nil, errors.New("event is nil")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", event.typeName(), err)
	}
	return sjson.SetBytes(data, typeField, event.typeName())
}

// FromJSON decodes an event produced by ToJSON.
func FromJSON(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid event json")
	}

	typ := gjson.GetBytes(data, typeField)
	if !typ.Exists() {
		return nil, errors.New("event type is missing")
	}

	switch typ.String() {
	case MessageAppended{}.typeName():
		return decode[MessageAppended](data)
	case ChunkReceived{}.typeName():
		return decode[ChunkReceived](data)
	case Delim{}.typeName():
		return decode[Delim](data)
	case StatusChanged{}.typeName():
		return decode[StatusChanged](data)
	case BusyChanged{}.typeName():
		return decode[BusyChanged](data)
	case Reset{}.typeName():
		return decode[Reset](data)
	default:
		return nil, fmt.Errorf("unknown event type %q", typ.String())
	}
}

func decode[T Event](data []byte) (Event, error) {
	var event T
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal %s event: %w", event.typeName(), err)
	}
	return event, nil
}
