package line

import (
	"encoding/json"
	"testing"
)

// TestTextMessageWire tests the text message JSON shape.
func TestTextMessageWire(t *testing.T) {
	encoded, err := json.Marshal(TextMessage("hello"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != `{"type":"text","text":"hello"}` {
		t.Fatalf("unexpected wire form: %s", encoded)
	}
}

// TestLocationMessageZeroCoordinates tests that zero coordinates survive serialization.
func TestLocationMessageZeroCoordinates(t *testing.T) {
	encoded, err := json.Marshal(LocationMessage("Null Island", "Gulf of Guinea", 0, 0))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(encoded, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if lat, ok := out["latitude"].(float64); !ok || lat != 0 {
		t.Fatalf("expected latitude 0 present, got %s", encoded)
	}
	if lon, ok := out["longitude"].(float64); !ok || lon != 0 {
		t.Fatalf("expected longitude 0 present, got %s", encoded)
	}
}

// TestFlexMessageCarriesContents tests that flex contents pass through verbatim.
func TestFlexMessageCarriesContents(t *testing.T) {
	contents := json.RawMessage(`{"type":"bubble","body":{"type":"box","layout":"vertical","contents":[]}}`)
	encoded, err := json.Marshal(FlexMessage("receipt", contents))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		Type     string          `json:"type"`
		AltText  string          `json:"altText"`
		Contents json.RawMessage `json:"contents"`
	}
	if err := json.Unmarshal(encoded, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Type != "flex" || out.AltText != "receipt" {
		t.Fatalf("unexpected envelope: %s", encoded)
	}
	if string(out.Contents) != string(contents) {
		t.Fatalf("expected contents verbatim, got %s", out.Contents)
	}
}

// TestStickerMessageWire tests the sticker builder.
func TestStickerMessageWire(t *testing.T) {
	msg := StickerMessage("11537", "52002734")
	if msg.Type != "sticker" || msg.PackageID != "11537" || msg.StickerID != "52002734" {
		t.Fatalf("unexpected sticker message: %+v", msg)
	}
}
