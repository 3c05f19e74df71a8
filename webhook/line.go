package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"linehooks/internal"
)

const signatureHeader = "X-Line-Signature"

// ContentFetcher retrieves binary message content by message ID, returning
// the raw bytes and the MIME type the platform reported.
type ContentFetcher interface {
	MessageContent(ctx context.Context, messageID string) ([]byte, string, error)
}

// Batch is the pipeline output for one delivery, in original event order.
// Records is always non-nil: an empty batch means no subscribed kinds
// matched, which is distinct from a processing error.
type Batch struct {
	Destination string   `json:"destination,omitempty"`
	Records     []Record `json:"records"`
}

func (b Batch) Empty() bool { return len(b.Records) == 0 }

// LineHandler handles incoming webhooks from the LINE platform: it verifies
// the delivery signature, filters and normalizes events, optionally fetches
// binary content, and emits the resulting records.
type LineHandler struct {
	secret         string
	subscribed     map[string]struct{}
	download       bool
	binaryProperty string
	topicPrefix    string
	contentTimeout time.Duration
	fetcher        ContentFetcher
	rules          *internal.RuleEngine
	publisher      internal.Publisher
	logger         *log.Logger
}

// NewLineHandler creates a new LineHandler. fetcher may be nil when content
// download is disabled.
func NewLineHandler(cfg internal.LineConfig, fetcher ContentFetcher, rules *internal.RuleEngine, publisher internal.Publisher, logger *log.Logger) (*LineHandler, error) {
	if cfg.ChannelSecret == "" {
		return nil, errors.New("line channel secret is required")
	}
	if cfg.DownloadContent && fetcher == nil {
		return nil, errors.New("content download enabled but no fetcher configured")
	}
	if logger == nil {
		logger = log.Default()
	}

	contentTimeout := time.Duration(cfg.ContentTimeoutMS) * time.Millisecond
	if contentTimeout <= 0 {
		contentTimeout = 30 * time.Second
	}

	return &LineHandler{
		secret:         cfg.ChannelSecret,
		subscribed:     SubscriptionSet(cfg.Events),
		download:       cfg.DownloadContent,
		binaryProperty: cfg.BinaryProperty,
		topicPrefix:    cfg.TopicPrefix,
		contentTimeout: contentTimeout,
		fetcher:        fetcher,
		rules:          rules,
		publisher:      publisher,
		logger:         logger,
	}, nil
}

// ServeHTTP handles an incoming HTTP request. The delivery is rejected
// outright on a missing or mismatched signature or a malformed body; a fast
// 200 acknowledges everything else, including deliveries where no subscribed
// kind matched.
func (h *LineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	internal.IncRequest("line")

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if len(r.Header.Values(signatureHeader)) == 0 {
		h.logger.Printf("line auth failed: %v", ErrMissingSignature)
		internal.IncAuthError("line")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if err := VerifySignature(rawBody, h.secret, r.Header.Get(signatureHeader)); err != nil {
		h.logger.Printf("line auth failed: %v", err)
		internal.IncAuthError("line")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	batch, err := h.Process(r.Context(), rawBody)
	if err != nil {
		h.logger.Printf("line parse failed: %v", err)
		internal.IncParseError("line")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	for i := range batch.Records {
		h.emit(r.Context(), batch.Records[i])
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]int{"received": len(batch.Records)})
}

// Process runs the pipeline on one verified delivery body: parse, filter by
// subscription, normalize, and enrich qualifying records with binary
// content. A fetch failure is recorded on the affected record and never
// fails the batch.
func (h *LineHandler) Process(ctx context.Context, raw []byte) (Batch, error) {
	delivery, err := ParseDelivery(raw)
	if err != nil {
		return Batch{}, err
	}

	events := delivery.Filter(h.subscribed)
	records := make([]Record, 0, len(events))
	for _, event := range events {
		records = append(records, Normalize(event))
	}

	if h.download && h.fetcher != nil {
		for i := range records {
			h.fetchContent(ctx, &records[i])
		}
	}

	return Batch{Destination: delivery.Destination, Records: records}, nil
}

func (h *LineHandler) fetchContent(ctx context.Context, record *Record) {
	if !record.HasBinaryContent() {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, h.contentTimeout)
	defer cancel()

	data, mimeType, err := h.fetcher.MessageContent(fetchCtx, record.Message.ID)
	if err != nil {
		record.BinaryDownloadError = fmt.Sprintf("content download failed: %v", err)
		internal.IncContentFetchError("line")
		return
	}

	record.BinaryDownloaded = true
	record.Attachment = &Attachment{
		Property: h.binaryProperty,
		MIMEType: mimeType,
		Size:     len(data),
		Data:     data,
	}
}

// emit routes one record to its topics and publishes it. With no rules
// configured every record goes to "<prefix>.<eventType>"; configured rules
// take over routing entirely.
func (h *LineHandler) emit(ctx context.Context, record Record) {
	internal.IncEventAccepted(record.EventType)

	payload, err := json.Marshal(record)
	if err != nil {
		h.logger.Printf("encode record failed: %v", err)
		return
	}

	event := internal.Event{
		Provider:       "line",
		Name:           record.EventType,
		WebhookEventID: record.WebhookEventID,
		RawPayload:     payload,
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(payload, &asMap); err == nil {
		event.Data = internal.Flatten(asMap)
		event.RawObject = asMap
	}

	if h.rules == nil || h.rules.Len() == 0 {
		topic := h.topicPrefix + "." + record.EventType
		if err := h.publisher.Publish(ctx, topic, event); err != nil {
			h.logger.Printf("publish %s failed: %v", topic, err)
		}
		return
	}

	matches := h.rules.Evaluate(event)
	h.logger.Printf("event provider=%s name=%s topics=%d", event.Provider, event.Name, len(matches))
	for _, match := range matches {
		if err := h.publisher.PublishForDrivers(ctx, match.Topic, event, match.Drivers); err != nil {
			h.logger.Printf("publish %s failed: %v", match.Topic, err)
		}
	}
}
