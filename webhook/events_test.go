package webhook

import (
	"errors"
	"testing"
)

// TestParseDeliveryValid tests that a well-formed delivery body parses with its events.
func TestParseDeliveryValid(t *testing.T) {
	raw := []byte(`{"destination":"Ubot","events":[{"type":"follow","timestamp":1700000000000,"source":{"type":"user","userId":"U1"}}]}`)

	delivery, err := ParseDelivery(raw)
	if err != nil {
		t.Fatalf("parse delivery: %v", err)
	}
	if delivery.Destination != "Ubot" {
		t.Fatalf("expected destination Ubot, got %q", delivery.Destination)
	}
	if len(delivery.Events) != 1 || delivery.Events[0].Type != "follow" {
		t.Fatalf("expected one follow event, got %+v", delivery.Events)
	}
}

// TestParseDeliveryInvalidJSON tests that a non-JSON body is malformed.
func TestParseDeliveryInvalidJSON(t *testing.T) {
	if _, err := ParseDelivery([]byte("not json")); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

// TestParseDeliveryMissingEvents tests that a body without an events array is malformed.
func TestParseDeliveryMissingEvents(t *testing.T) {
	if _, err := ParseDelivery([]byte(`{"destination":"U1"}`)); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

// TestParseDeliveryEmptyEvents tests that an empty events array is valid.
func TestParseDeliveryEmptyEvents(t *testing.T) {
	delivery, err := ParseDelivery([]byte(`{"events":[]}`))
	if err != nil {
		t.Fatalf("parse delivery: %v", err)
	}
	if len(delivery.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(delivery.Events))
	}
}

// TestFilterSubscribedOnly tests that only subscribed kinds survive, in delivery order.
func TestFilterSubscribedOnly(t *testing.T) {
	raw := []byte(`{"events":[
		{"type":"follow","webhookEventId":"W1"},
		{"type":"message","webhookEventId":"W2","message":{"id":"m1","type":"text","text":"hi"}},
		{"type":"unfollow","webhookEventId":"W3"},
		{"type":"message","webhookEventId":"W4","message":{"id":"m2","type":"text","text":"again"}}
	]}`)

	delivery, err := ParseDelivery(raw)
	if err != nil {
		t.Fatalf("parse delivery: %v", err)
	}

	kept := delivery.Filter(SubscriptionSet([]string{"message"}))
	if len(kept) != 2 {
		t.Fatalf("expected 2 events, got %d", len(kept))
	}
	if kept[0].WebhookEventID != "W2" || kept[1].WebhookEventID != "W4" {
		t.Fatalf("expected delivery order preserved, got %q then %q", kept[0].WebhookEventID, kept[1].WebhookEventID)
	}
}

// TestFilterUnknownKindDropped tests that unrecognized event kinds are dropped silently.
func TestFilterUnknownKindDropped(t *testing.T) {
	raw := []byte(`{"events":[{"type":"somethingNew"},{"type":"follow"}]}`)

	delivery, err := ParseDelivery(raw)
	if err != nil {
		t.Fatalf("parse delivery: %v", err)
	}

	kept := delivery.Filter(SubscriptionSet([]string{"follow", "message"}))
	if len(kept) != 1 || kept[0].Type != "follow" {
		t.Fatalf("expected only the follow event, got %+v", kept)
	}
}
