package push

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sitepulse/notify/internal/domain"
)

const (
	reconnectBase = 2 * time.Second
	reconnectMax  = 30 * time.Second
)

// Payload is one push message delivered over the backend's
// notification stream.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Receiver listens on the backend's websocket notification stream and
// translates delivered push payloads into source=push records in the
// device store.
type Receiver struct {
	streamURL string
	authToken string
	store     domain.DeviceStore
	logger    *zap.Logger
	dialer    *websocket.Dialer
}

// NewReceiver creates a stream receiver.
func NewReceiver(streamURL, authToken string, store domain.DeviceStore, logger *zap.Logger) *Receiver {
	return &Receiver{
		streamURL: streamURL,
		authToken: authToken,
		store:     store,
		logger:    logger,
		dialer:    websocket.DefaultDialer,
	}
}

// Run connects and reads until ctx is cancelled, reconnecting with
// capped backoff on connection loss.
func (r *Receiver) Run(ctx context.Context) {
	backoff := reconnectBase
	for {
		if ctx.Err() != nil {
			return
		}

		if err := r.readLoop(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("push stream disconnected",
				zap.Duration("retry_in", backoff), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (r *Receiver) readLoop(ctx context.Context) error {
	header := http.Header{}
	if r.authToken != "" {
		header.Set("Authorization", "Bearer "+r.authToken)
	}

	conn, _, err := r.dialer.DialContext(ctx, r.streamURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	r.logger.Debug("push stream connected", zap.String("url", r.streamURL))

	// Close the connection when the context ends so ReadMessage
	// unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		r.handleMessage(ctx, raw)
	}
}

// handleMessage stores one delivered payload. A malformed message is
// logged and skipped, never fatal to the stream.
func (r *Receiver) handleMessage(ctx context.Context, raw []byte) {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		r.logger.Warn("dropping malformed push payload", zap.Error(err))
		return
	}
	if payload.Title == "" && payload.Body == "" {
		return
	}

	rec := domain.NotificationRecord{
		ID:        domain.NewRecordID(),
		Title:     payload.Title,
		Body:      payload.Body,
		Data:      payload.Data,
		Timestamp: time.Now(),
		Source:    domain.SourcePush,
	}
	if err := r.store.Add(ctx, rec); err != nil {
		r.logger.Warn("failed to store push record", zap.Error(err))
	}
}
