// Package notify fans a rendered digest out to all subscribed chats.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// defaultMaxConcurrent caps parallel sends so a large subscriber set
	// does not stampede the chat API.
	defaultMaxConcurrent = 10

	// sendTimeout bounds one delivery attempt.
	sendTimeout = 30 * time.Second
)

// Transport delivers one message to one chat. Implementations own rate
// limiting and formatting quirks of their backend.
type Transport interface {
	Send(ctx context.Context, chatID int64, text string, markdown bool) error
}

// Subscribers yields the current broadcast audience.
type Subscribers interface {
	List(ctx context.Context) ([]int64, error)
}

// Service broadcasts digests. Per-chat failures are logged and counted but
// never abort the rest of the fan-out: one blocked bot or deleted chat must
// not cost everyone else their digest.
type Service struct {
	transport     Transport
	subscribers   Subscribers
	maxConcurrent int
}

// NewService creates a broadcast service. A non-positive maxConcurrent
// falls back to the default cap.
func NewService(transport Transport, subscribers Subscribers, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Service{
		transport:     transport,
		subscribers:   subscribers,
		maxConcurrent: maxConcurrent,
	}
}

// Broadcast sends text to every subscriber, at most maxConcurrent sends in
// flight. The returned error reflects only the inability to list
// subscribers; individual send failures are logged under a shared request
// ID and surface in metrics.
func (s *Service) Broadcast(ctx context.Context, text string, markdown bool) error {
	requestID := uuid.New().String()

	chatIDs, err := s.subscribers.List(ctx)
	if err != nil {
		return err
	}
	if len(chatIDs) == 0 {
		slog.Info("no subscribers, skipping broadcast",
			slog.String("request_id", requestID))
		return nil
	}

	slog.Info("broadcasting digest",
		slog.String("request_id", requestID),
		slog.Int("subscribers", len(chatIDs)))

	start := time.Now()
	sem := make(chan struct{}, s.maxConcurrent)
	var eg errgroup.Group

	for _, chatID := range chatIDs {
		chatID := chatID
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			sctx, cancel := context.WithTimeout(ctx, sendTimeout)
			defer cancel()

			sendStart := time.Now()
			err := s.transport.Send(sctx, chatID, text, markdown)
			recordSend(time.Since(sendStart), err)
			if err != nil {
				slog.Warn("send failed",
					slog.String("request_id", requestID),
					slog.Int64("chat_id", chatID),
					slog.Any("error", err))
			}
			return nil
		})
	}
	_ = eg.Wait() // send failures are absorbed above

	broadcastsTotal.Inc()
	slog.Info("broadcast finished",
		slog.String("request_id", requestID),
		slog.Int("subscribers", len(chatIDs)),
		slog.Duration("duration", time.Since(start)))
	return nil
}
