package line

import "encoding/json"

// Message is one outbound message. Type selects which fields the platform
// reads; the builders below populate the right ones.
type Message struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	OriginalContentURL string `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string `json:"previewImageUrl,omitempty"`
	Duration           int64  `json:"duration,omitempty"`

	Title     string   `json:"title,omitempty"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	PackageID string `json:"packageId,omitempty"`
	StickerID string `json:"stickerId,omitempty"`

	AltText  string          `json:"altText,omitempty"`
	Contents json.RawMessage `json:"contents,omitempty"`
}

// TextMessage builds a plain text message.
func TextMessage(text string) Message {
	return Message{Type: "text", Text: text}
}

// ImageMessage builds an image message. Both URLs must be HTTPS.
func ImageMessage(originalContentURL, previewImageURL string) Message {
	return Message{
		Type:               "image",
		OriginalContentURL: originalContentURL,
		PreviewImageURL:    previewImageURL,
	}
}

// VideoMessage builds a video message. Both URLs must be HTTPS.
func VideoMessage(originalContentURL, previewImageURL string) Message {
	return Message{
		Type:               "video",
		OriginalContentURL: originalContentURL,
		PreviewImageURL:    previewImageURL,
	}
}

// AudioMessage builds an audio message; duration is in milliseconds.
func AudioMessage(originalContentURL string, duration int64) Message {
	return Message{
		Type:               "audio",
		OriginalContentURL: originalContentURL,
		Duration:           duration,
	}
}

// LocationMessage builds a location message.
func LocationMessage(title, address string, latitude, longitude float64) Message {
	return Message{
		Type:      "location",
		Title:     title,
		Address:   address,
		Latitude:  &latitude,
		Longitude: &longitude,
	}
}

// StickerMessage builds a sticker message.
func StickerMessage(packageID, stickerID string) Message {
	return Message{
		Type:      "sticker",
		PackageID: packageID,
		StickerID: stickerID,
	}
}

// FlexMessage builds a flex message from a raw container document. altText
// is shown on devices that cannot render flex content.
func FlexMessage(altText string, contents json.RawMessage) Message {
	return Message{
		Type:     "flex",
		AltText:  altText,
		Contents: contents,
	}
}
