package internal

// Event is the envelope handed to the rule engine and publishers for one
// normalized webhook record.
type Event struct {
	// Provider is the messaging platform the record came from ("line").
	Provider string `json:"provider"`
	// Name is the event kind (message, follow, postback, ...).
	Name string `json:"name"`
	// WebhookEventID is the platform-assigned delivery-unique event ID.
	WebhookEventID string `json:"webhookEventId,omitempty"`
	// Data is the flattened record, used as rule parameters.
	Data map[string]interface{} `json:"data,omitempty"`
	// RawObject is the normalized record as a generic value.
	RawObject interface{} `json:"-"`
	// RawPayload is the normalized record's JSON encoding; publishers forward
	// it verbatim when set.
	RawPayload []byte `json:"-"`
}
