package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"technews-bot/internal/domain/entity"
	"technews-bot/internal/repository"
	"technews-bot/internal/usecase/digest"
	"technews-bot/internal/usecase/provider"
	"technews-bot/internal/usecase/subscriber"
)

// recordingSender captures outgoing messages instead of hitting the API.
type recordingSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (r *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, fmt.Errorf("unexpected chattable %T", c)
	}
	r.sent = append(r.sent, msg)
	return tgbotapi.Message{}, nil
}

func (r *recordingSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.sent, "expected a reply to have been sent")
	return r.sent[len(r.sent)-1]
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// memStore is a minimal in-memory BlobStore for registry wiring.
type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (m *memStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return data, nil
}

func (m *memStore) Store(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return nil
}

// stubProvider answers GetNews and optionally categories.
type stubProvider struct {
	name       string
	items      []entity.NewsItem
	err        error
	categories []string
}

func (s *stubProvider) Name() string                          { return s.name }
func (s *stubProvider) UpdateNews(context.Context) error      { return nil }
func (s *stubProvider) CleanBlacklist(context.Context) error  { return nil }
func (s *stubProvider) Categories() []string                  { return s.categories }
func (s *stubProvider) GetNews(context.Context) ([]entity.NewsItem, error) {
	return s.items, s.err
}
func (s *stubProvider) GetNewsCategory(_ context.Context, category string) ([]entity.NewsItem, error) {
	for _, c := range s.categories {
		if c == category {
			return s.items, s.err
		}
	}
	return nil, fmt.Errorf("%w: %q (expected new, top or best)", entity.ErrUnknownCategory, category)
}

var _ provider.Provider = (*stubProvider)(nil)

func newTestBot(t *testing.T, providers []provider.Provider, access AccessConfig) (*Bot, *recordingSender) {
	t.Helper()
	sender := &recordingSender{}
	registry, err := subscriber.NewRegistry(context.Background(), &memStore{blobs: map[string][]byte{}})
	require.NoError(t, err)
	digests := digest.NewService(providers, time.Second)
	bot := NewBot(nil, newClient(sender), registry, digests, access)
	return bot, sender
}

func commandMessage(chatID int64, username, text string) *tgbotapi.Message {
	length := len(text)
	if idx := indexOf(text, ' '); idx > 0 {
		length = idx
	}
	return &tgbotapi.Message{
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: length},
		},
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{UserName: username},
	}
}

func indexOf(s string, ch byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == ch {
			return i
		}
	}
	return -1
}

func TestBot_SubscribeThenResubscribe(t *testing.T) {
	bot, sender := newTestBot(t, nil, AccessConfig{})
	ctx := context.Background()

	bot.handleCommand(ctx, commandMessage(10, "alice", "/subscribe"))
	assert.Contains(t, sender.last(t).Text, "Subscribed")

	bot.handleCommand(ctx, commandMessage(10, "alice", "/subscribe"))
	assert.Contains(t, sender.last(t).Text, "already subscribed")

	bot.handleCommand(ctx, commandMessage(10, "alice", "/unsubscribe"))
	assert.Contains(t, sender.last(t).Text, "Unsubscribed")
}

func TestBot_AllowlistGateBlocksStrangers(t *testing.T) {
	bot, sender := newTestBot(t, nil, AccessConfig{
		AllowlistEnabled: true,
		Allowed:          []string{"@Alice"},
	})
	ctx := context.Background()

	bot.handleCommand(ctx, commandMessage(1, "mallory", "/subscribe"))
	assert.Equal(t, 0, sender.count(), "stranger must get no reply")

	// Allowlist matching is case-insensitive and ignores the @ prefix.
	bot.handleCommand(ctx, commandMessage(2, "alice", "/subscribe"))
	assert.Contains(t, sender.last(t).Text, "Subscribed")
}

func TestBot_OpenSubscribeLetsStrangersManageSubscription(t *testing.T) {
	hn := &stubProvider{name: "HackerNews", categories: []string{"new", "top", "best"}}
	bot, sender := newTestBot(t, []provider.Provider{hn}, AccessConfig{
		AllowlistEnabled: true,
		Allowed:          []string{"alice"},
		OpenSubscribe:    true,
	})
	ctx := context.Background()

	bot.handleCommand(ctx, commandMessage(1, "mallory", "/subscribe"))
	assert.Contains(t, sender.last(t).Text, "Subscribed")

	before := sender.count()
	bot.handleCommand(ctx, commandMessage(1, "mallory", "/hackernews"))
	assert.Equal(t, before, sender.count(), "news commands stay gated")
}

func TestBot_HackerNewsUnknownCategoryGetsDescriptiveReply(t *testing.T) {
	hn := &stubProvider{name: "HackerNews", categories: []string{"new", "top", "best"}}
	bot, sender := newTestBot(t, []provider.Provider{hn}, AccessConfig{})

	bot.handleCommand(context.Background(), commandMessage(1, "alice", "/hackernews weird"))

	reply := sender.last(t).Text
	assert.Contains(t, reply, "weird")
	assert.Contains(t, reply, "new, top, best")
}

func TestBot_HackerNewsCategoryReturnsStory(t *testing.T) {
	hn := &stubProvider{
		name:       "HackerNews",
		categories: []string{"new", "top", "best"},
		items:      []entity.NewsItem{{Title: "A story", Link: "https://example.com/s", Provider: "HackerNews"}},
	}
	bot, sender := newTestBot(t, []provider.Provider{hn}, AccessConfig{})

	bot.handleCommand(context.Background(), commandMessage(1, "alice", "/hackernews top"))

	last := sender.last(t)
	assert.Contains(t, last.Text, "A story")
	assert.Equal(t, tgbotapi.ModeMarkdownV2, last.ParseMode)
}

func TestBot_NewsUnknownProviderListsKnownOnes(t *testing.T) {
	bot, sender := newTestBot(t, []provider.Provider{
		&stubProvider{name: "GoBlog"},
	}, AccessConfig{})

	bot.handleCommand(context.Background(), commandMessage(1, "alice", "/news nope"))

	reply := sender.last(t).Text
	assert.Contains(t, reply, `"nope"`)
	assert.Contains(t, reply, "GoBlog")
}

func TestBot_NewsNoNewsGetsNothingNewSentence(t *testing.T) {
	bot, sender := newTestBot(t, []provider.Provider{
		&stubProvider{name: "GoBlog", err: entity.ErrNoNews},
	}, AccessConfig{})

	bot.handleCommand(context.Background(), commandMessage(1, "alice", "/news goblog"))

	last := sender.last(t)
	assert.Equal(t, digest.NothingNew, last.Text)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, last.ParseMode)
}

func TestBot_NewsProviderFailureGetsApology(t *testing.T) {
	bot, sender := newTestBot(t, []provider.Provider{
		&stubProvider{name: "GoBlog", err: errors.New("dns failure")},
	}, AccessConfig{})

	bot.handleCommand(context.Background(), commandMessage(1, "alice", "/news GoBlog"))
	assert.Contains(t, sender.last(t).Text, "try again later")
}

func TestBot_UnknownCommand(t *testing.T) {
	bot, sender := newTestBot(t, nil, AccessConfig{})

	bot.handleCommand(context.Background(), commandMessage(1, "alice", "/frobnicate"))
	assert.Contains(t, sender.last(t).Text, "/help")
}
