package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event kinds delivered by the LINE platform.
const (
	EventMessage      = "message"
	EventFollow       = "follow"
	EventUnfollow     = "unfollow"
	EventJoin         = "join"
	EventLeave        = "leave"
	EventMemberJoined = "memberJoined"
	EventMemberLeft   = "memberLeft"
	EventPostback     = "postback"
	EventBeacon       = "beacon"
	EventAccountLink  = "accountLink"
	EventThings       = "things"
)

// Message content types nested in message events.
const (
	MessageText     = "text"
	MessageImage    = "image"
	MessageVideo    = "video"
	MessageAudio    = "audio"
	MessageFile     = "file"
	MessageLocation = "location"
	MessageSticker  = "sticker"
)

// ErrMalformedPayload is returned when the delivery body is not valid JSON
// or lacks an events array.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// Delivery is one inbound webhook call: a batch of events plus the
// destination bot ID.
type Delivery struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is the wire form of one LINE webhook event. The Type tag selects
// which of the kind-specific sub-objects is populated. Opaque platform
// structures (source, deliveryContext, members, ...) are kept as raw JSON so
// they round-trip byte-exact and absence stays observable.
type Event struct {
	Type            string          `json:"type"`
	Timestamp       int64           `json:"timestamp"`
	Source          json.RawMessage `json:"source,omitempty"`
	WebhookEventID  string          `json:"webhookEventId,omitempty"`
	DeliveryContext json.RawMessage `json:"deliveryContext,omitempty"`
	ReplyToken      string          `json:"replyToken,omitempty"`

	Message  *Message     `json:"message,omitempty"`
	Postback *Postback    `json:"postback,omitempty"`
	Joined   *Members     `json:"joined,omitempty"`
	Left     *Members     `json:"left,omitempty"`
	Beacon   *Beacon      `json:"beacon,omitempty"`
	Link     *AccountLink `json:"link,omitempty"`
	Things   *Things      `json:"things,omitempty"`
}

// Message is the nested content union of a message event. Pointer fields
// preserve presence: a field the platform did not send stays nil and is
// never copied into the normalized record.
type Message struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	// text
	Text    *string         `json:"text,omitempty"`
	Emojis  json.RawMessage `json:"emojis,omitempty"`
	Mention json.RawMessage `json:"mention,omitempty"`

	// image, video, audio, file
	ContentProvider json.RawMessage `json:"contentProvider,omitempty"`
	ImageSet        json.RawMessage `json:"imageSet,omitempty"`
	FileName        *string         `json:"fileName,omitempty"`
	FileSize        *int64          `json:"fileSize,omitempty"`
	Duration        *int64          `json:"duration,omitempty"`

	// location
	Title     *string  `json:"title,omitempty"`
	Address   *string  `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// sticker
	PackageID           *string         `json:"packageId,omitempty"`
	StickerID           *string         `json:"stickerId,omitempty"`
	StickerResourceType *string         `json:"stickerResourceType,omitempty"`
	Keywords            json.RawMessage `json:"keywords,omitempty"`
}

// Postback carries the data string of a tapped action and optional
// structured params (date, time, rich menu state).
type Postback struct {
	Data   string          `json:"data"`
	Params json.RawMessage `json:"params,omitempty"`
}

type Members struct {
	Members json.RawMessage `json:"members"`
}

type Beacon struct {
	HWID string  `json:"hwid"`
	Type string  `json:"type"`
	DM   *string `json:"dm,omitempty"`
}

type AccountLink struct {
	Result string `json:"result"`
	Nonce  string `json:"nonce"`
}

type Things struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId"`
}

// ParseDelivery decodes the verified raw body into a Delivery. A body that
// is not a JSON object or that carries no events array is malformed; events
// of unknown kinds are kept here and dropped later by Filter.
func ParseDelivery(raw []byte) (*Delivery, error) {
	var probe struct {
		Destination string           `json:"destination"`
		Events      *json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if probe.Events == nil {
		return nil, fmt.Errorf("%w: missing events array", ErrMalformedPayload)
	}

	var delivery Delivery
	if err := json.Unmarshal(raw, &delivery); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &delivery, nil
}

// Filter returns the events whose kind is in the subscribed set, preserving
// delivery order. Unrecognized kinds are dropped silently so future platform
// event kinds do not break processing.
func (d *Delivery) Filter(subscribed map[string]struct{}) []Event {
	kept := make([]Event, 0, len(d.Events))
	for _, event := range d.Events {
		if _, ok := subscribed[event.Type]; ok {
			kept = append(kept, event)
		}
	}
	return kept
}

func SubscriptionSet(kinds []string) map[string]struct{} {
	set := make(map[string]struct{}, len(kinds))
	for _, kind := range kinds {
		set[kind] = struct{}{}
	}
	return set
}
