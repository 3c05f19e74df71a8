package worker

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Codec is an interface for decoding messages from a message broker into an Event.
type Codec interface {
	// Decode transforms a Watermill message into an Event.
	Decode(topic string, msg *message.Message) (*Event, error)
}

// DefaultCodec is the default implementation of the Codec interface.
// It decodes the JSON record published by the webhook gateway.
type DefaultCodec struct{}

// envelope is used to unmarshal the record's identifying fields.
type envelope struct {
	EventType string `json:"eventType"`
}

// Decode unmarshals a Watermill message into an Event.
func (DefaultCodec) Decode(topic string, msg *message.Message) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return nil, err
	}

	metadata := make(map[string]string, len(msg.Metadata))
	for key, value := range msg.Metadata {
		metadata[key] = value
	}

	provider := msg.Metadata.Get("provider")
	if provider == "" {
		provider = "line"
	}
	eventType := env.EventType
	if eventType == "" {
		eventType = msg.Metadata.Get("event")
	}

	var record map[string]interface{}
	if err := json.Unmarshal(msg.Payload, &record); err != nil {
		record = nil
	}

	return &Event{
		Provider: provider,
		Type:     eventType,
		Topic:    topic,
		Metadata: metadata,
		Payload:  json.RawMessage(msg.Payload),
		Record:   record,
	}, nil
}
