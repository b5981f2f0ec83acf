package telegram

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendPlainText(t *testing.T) {
	sender := &recordingSender{}
	c := newClient(sender)

	require.NoError(t, c.Send(context.Background(), 42, "hello", false))

	last := sender.last(t)
	assert.Equal(t, int64(42), last.ChatID)
	assert.Equal(t, "hello", last.Text)
	assert.Empty(t, last.ParseMode)
}

func TestClient_SendMarkdownSetsParseMode(t *testing.T) {
	sender := &recordingSender{}
	c := newClient(sender)

	require.NoError(t, c.Send(context.Background(), 42, `escaped\.`, true))

	assert.Equal(t, tgbotapi.ModeMarkdownV2, sender.last(t).ParseMode)
}

func TestClient_SendHonorsCancelledContext(t *testing.T) {
	sender := &recordingSender{}
	c := newClient(sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Exhaust the burst so the limiter has to wait, then cancel applies.
	for i := 0; i < sendBurst; i++ {
		_ = c.Send(context.Background(), 1, "x", false)
	}
	err := c.Send(ctx, 1, "x", false)
	assert.Error(t, err)
}
