package webhook

import "encoding/json"

// Record is the canonical flat form of one webhook event: the common fields
// every kind carries plus exactly one kind-specific sub-object. Fields the
// source event did not carry are omitted entirely, so consumers can test for
// presence.
type Record struct {
	EventType       string          `json:"eventType"`
	Timestamp       int64           `json:"timestamp"`
	Source          json.RawMessage `json:"source,omitempty"`
	WebhookEventID  string          `json:"webhookEventId,omitempty"`
	DeliveryContext json.RawMessage `json:"deliveryContext,omitempty"`
	ReplyToken      string          `json:"replyToken,omitempty"`

	Message  *MessageRecord `json:"message,omitempty"`
	Postback *Postback      `json:"postback,omitempty"`
	Joined   *Members       `json:"joined,omitempty"`
	Left     *Members       `json:"left,omitempty"`
	Beacon   *Beacon        `json:"beacon,omitempty"`
	Link     *AccountLink   `json:"link,omitempty"`
	Things   *Things        `json:"things,omitempty"`

	// Binary enrichment, set by the content fetcher.
	BinaryDownloaded    bool        `json:"binaryDownloaded,omitempty"`
	BinaryDownloadError string      `json:"binaryDownloadError,omitempty"`
	Attachment          *Attachment `json:"attachment,omitempty"`
}

// MessageRecord holds the per-subtype field set of a message event. Only the
// fields belonging to the message's type are populated; an unknown type
// keeps just the ID and type.
type MessageRecord struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Text    *string         `json:"text,omitempty"`
	Emojis  json.RawMessage `json:"emojis,omitempty"`
	Mention json.RawMessage `json:"mention,omitempty"`

	ContentProvider json.RawMessage `json:"contentProvider,omitempty"`
	ImageSet        json.RawMessage `json:"imageSet,omitempty"`
	FileName        *string         `json:"fileName,omitempty"`
	FileSize        *int64          `json:"fileSize,omitempty"`
	Duration        *int64          `json:"duration,omitempty"`

	Title     *string  `json:"title,omitempty"`
	Address   *string  `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	PackageID           *string         `json:"packageId,omitempty"`
	StickerID           *string         `json:"stickerId,omitempty"`
	StickerResourceType *string         `json:"stickerResourceType,omitempty"`
	Keywords            json.RawMessage `json:"keywords,omitempty"`
}

// Attachment is binary message content fetched from the platform's data
// endpoint. Property is the operator-configured name downstream consumers
// look the attachment up under.
type Attachment struct {
	Property string `json:"property"`
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
	Data     []byte `json:"data,omitempty"`
}

// HasBinaryContent reports whether the record is a message whose content
// lives behind the secondary content endpoint.
func (r *Record) HasBinaryContent() bool {
	if r.EventType != EventMessage || r.Message == nil {
		return false
	}
	switch r.Message.Type {
	case MessageImage, MessageVideo, MessageAudio, MessageFile:
		return true
	}
	return false
}

// Normalize maps one wire event to its canonical record. It is a pure
// function: same event in, same record out, no I/O. All eleven known kinds
// are covered; follow, unfollow, join and leave carry no kind-specific
// payload beyond the common fields.
func Normalize(event Event) Record {
	record := Record{
		EventType:       event.Type,
		Timestamp:       event.Timestamp,
		Source:          event.Source,
		WebhookEventID:  event.WebhookEventID,
		DeliveryContext: event.DeliveryContext,
		ReplyToken:      event.ReplyToken,
	}

	switch event.Type {
	case EventMessage:
		if event.Message != nil {
			record.Message = normalizeMessage(*event.Message)
		}
	case EventPostback:
		record.Postback = event.Postback
	case EventMemberJoined:
		record.Joined = event.Joined
	case EventMemberLeft:
		record.Left = event.Left
	case EventBeacon:
		record.Beacon = event.Beacon
	case EventAccountLink:
		record.Link = event.Link
	case EventThings:
		record.Things = event.Things
	case EventFollow, EventUnfollow, EventJoin, EventLeave:
		// Common fields only.
	}

	return record
}

// normalizeMessage copies the fixed field set of the message's type and
// nothing else, so records never leak fields across subtypes.
func normalizeMessage(msg Message) *MessageRecord {
	out := &MessageRecord{ID: msg.ID, Type: msg.Type}

	switch msg.Type {
	case MessageText:
		out.Text = msg.Text
		out.Emojis = msg.Emojis
		out.Mention = msg.Mention
	case MessageImage:
		out.ContentProvider = msg.ContentProvider
		out.ImageSet = msg.ImageSet
	case MessageVideo:
		out.ContentProvider = msg.ContentProvider
		out.Duration = msg.Duration
	case MessageAudio:
		out.ContentProvider = msg.ContentProvider
		out.Duration = msg.Duration
	case MessageFile:
		out.ContentProvider = msg.ContentProvider
		out.FileName = msg.FileName
		out.FileSize = msg.FileSize
	case MessageLocation:
		out.Title = msg.Title
		out.Address = msg.Address
		out.Latitude = msg.Latitude
		out.Longitude = msg.Longitude
	case MessageSticker:
		out.PackageID = msg.PackageID
		out.StickerID = msg.StickerID
		out.StickerResourceType = msg.StickerResourceType
		out.Keywords = msg.Keywords
	default:
		// Unknown message type: keep the partial {id, type} record rather
		// than failing the event.
	}

	return out
}
