package worker

import (
	"context"

	"linehooks/pkg/line"
)

// ClientProvider is an interface for creating API clients.
// This allows handlers to call back into the messaging platform.
type ClientProvider interface {
	// Client returns an API client for the given event.
	Client(ctx context.Context, evt *Event) (interface{}, error)
}

// ClientProviderFunc is a function that implements the ClientProvider interface.
type ClientProviderFunc func(ctx context.Context, evt *Event) (interface{}, error)

// Client returns an API client by calling the underlying function.
func (fn ClientProviderFunc) Client(ctx context.Context, evt *Event) (interface{}, error) {
	return fn(ctx, evt)
}

// NewLineClientProvider returns a provider that hands every handler the same
// Messaging API client, authenticated with the channel access token.
func NewLineClientProvider(channelAccessToken string, opts ...line.Option) ClientProvider {
	client := line.NewClient(channelAccessToken, opts...)
	return ClientProviderFunc(func(ctx context.Context, evt *Event) (interface{}, error) {
		return client, nil
	})
}

// LineClient extracts the Messaging API client attached to the event, if any.
func LineClient(evt *Event) (*line.Client, bool) {
	if evt == nil {
		return nil, false
	}
	client, ok := evt.Client.(*line.Client)
	return client, ok
}
