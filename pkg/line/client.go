package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultAPIBaseURL  = "https://api.line.me"
	defaultDataBaseURL = "https://api-data.line.me"
)

// Client calls the LINE Messaging API. Message endpoints live on the API
// host; binary message content is served from the separate data host.
type Client struct {
	apiBase    string
	dataBase   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIBaseURL overrides the API host, for tests and proxies.
func WithAPIBaseURL(url string) Option {
	return func(c *Client) { c.apiBase = strings.TrimRight(url, "/") }
}

// WithDataBaseURL overrides the binary-content host.
func WithDataBaseURL(url string) Option {
	return func(c *Client) { c.dataBase = strings.TrimRight(url, "/") }
}

// WithHTTPClient replaces the underlying HTTP client. The caller is then
// responsible for attaching credentials.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a client authenticated with the channel access token.
// The token is attached as a bearer credential on every request.
func NewClient(channelAccessToken string, opts ...Option) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: channelAccessToken})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = 30 * time.Second

	client := &Client{
		apiBase:    defaultAPIBaseURL,
		dataBase:   defaultDataBaseURL,
		httpClient: httpClient,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Profile is a LINE user profile.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
	Language      string `json:"language,omitempty"`
}

// Push sends messages directly to a user, group or room.
func (c *Client) Push(ctx context.Context, to string, messages []Message) error {
	return c.post(ctx, "/v2/bot/message/push", map[string]interface{}{
		"to":       to,
		"messages": messages,
	})
}

// Reply sends messages in response to a webhook event, consuming its reply
// token. Reply tokens are short-lived and single-use.
func (c *Client) Reply(ctx context.Context, replyToken string, messages []Message) error {
	return c.post(ctx, "/v2/bot/message/reply", map[string]interface{}{
		"replyToken": replyToken,
		"messages":   messages,
	})
}

// Multicast sends messages to up to 500 users.
func (c *Client) Multicast(ctx context.Context, to []string, messages []Message) error {
	if len(to) == 0 {
		return fmt.Errorf("multicast requires at least one recipient")
	}
	if len(to) > 500 {
		return fmt.Errorf("multicast allows at most 500 recipients, got %d", len(to))
	}
	return c.post(ctx, "/v2/bot/message/multicast", map[string]interface{}{
		"to":       to,
		"messages": messages,
	})
}

// Broadcast sends messages to every user who has friended the bot.
func (c *Client) Broadcast(ctx context.Context, messages []Message) error {
	return c.post(ctx, "/v2/bot/message/broadcast", map[string]interface{}{
		"messages": messages,
	})
}

// Profile fetches a user's profile.
func (c *Client) Profile(ctx context.Context, userID string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v2/bot/profile/"+userID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

// MessageContent fetches the binary content of a message from the data host
// and returns the raw bytes with the MIME type from the response headers.
func (c *Client) MessageContent(ctx context.Context, messageID string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.dataBase+"/v2/bot/message/"+messageID+"/content", nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, "", err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("line api: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
}
