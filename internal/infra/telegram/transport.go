// Package telegram adapts the Telegram Bot API as the chat transport: one
// rate-limited sender used for broadcasts and replies, and the command loop
// that serves subscribers.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Telegram caps bots at roughly 30 messages per second across all chats.
// The limiter keeps broadcasts under that cap so the API never answers 429.
const (
	messagesPerSecond = 30
	sendBurst         = 5
)

// sender is the slice of tgbotapi.BotAPI the transport needs. Tests swap in
// a recorder.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client sends messages through the Bot API behind a global rate limiter.
// It implements notify.Transport.
type Client struct {
	api     sender
	limiter *rate.Limiter
}

// NewClient wraps an authorized Bot API handle.
func NewClient(api *tgbotapi.BotAPI) *Client {
	return newClient(api)
}

func newClient(api sender) *Client {
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(messagesPerSecond), sendBurst),
	}
}

// Send delivers text to one chat, waiting on the rate limiter first. With
// markdown set the message is sent in MarkdownV2 parse mode, so the text
// must already be escaped.
func (c *Client) Send(ctx context.Context, chatID int64, text string, markdown bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limiter: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdownV2
	}

	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	slog.Debug("message sent", slog.Int64("chat_id", chatID))
	return nil
}
