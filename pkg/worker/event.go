package worker

import "encoding/json"

// Event represents a message received by the worker.
type Event struct {
	// Provider is the name of the messaging platform the record came from.
	Provider string `json:"provider"`
	// Type is the webhook event type (e.g., "message", "follow").
	Type string `json:"type"`
	// Topic is the name of the topic the message was received on.
	Topic string `json:"topic"`
	// Metadata contains message-broker-specific metadata.
	Metadata map[string]string `json:"metadata"`
	// Payload is the raw JSON payload of the message.
	Payload json.RawMessage `json:"payload"`
	// Record is the decoded JSON record of the event.
	Record map[string]interface{} `json:"record"`
	// Client is an API client for the platform, if available.
	Client interface{} `json:"-"`
}

// WebhookEventID returns the platform's delivery identifier, if present.
func (e *Event) WebhookEventID() string {
	if e == nil {
		return ""
	}
	if id := e.Metadata["webhook_event_id"]; id != "" {
		return id
	}
	id, _ := e.Record["webhookEventId"].(string)
	return id
}

// ReplyToken returns the record's reply token, if the event carried one.
func (e *Event) ReplyToken() string {
	if e == nil {
		return ""
	}
	token, _ := e.Record["replyToken"].(string)
	return token
}
