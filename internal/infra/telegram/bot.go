package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"technews-bot/internal/domain/entity"
	"technews-bot/internal/usecase/digest"
	"technews-bot/internal/usecase/subscriber"
)

const helpText = `Commands:
/subscribe - receive the scheduled news digest in this chat
/unsubscribe - stop receiving digests
/hackernews [new|top|best] - one unseen HackerNews story
/news <provider> - unseen items from one provider
/help - this message`

// AccessConfig is the single gate in front of every command.
//
// With AllowlistEnabled unset the bot answers everyone. When set, only the
// listed usernames pass; OpenSubscribe additionally lets anyone manage
// their own subscription so the allowlist only guards the on-demand news
// commands.
type AccessConfig struct {
	AllowlistEnabled bool
	Allowed          []string
	OpenSubscribe    bool
}

// categoryProvider is implemented by providers that serve named categories.
type categoryProvider interface {
	GetNewsCategory(ctx context.Context, category string) ([]entity.NewsItem, error)
	Categories() []string
}

// updateSource is the slice of tgbotapi.BotAPI the update loop needs.
type updateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot serves the command interface: subscription management and on-demand
// news pulls.
type Bot struct {
	updates  updateSource
	client   *Client
	registry *subscriber.Registry
	digests  *digest.Service
	access   AccessConfig
	allowed  map[string]struct{}
}

// NewBot assembles the command bot on top of an authorized API handle.
func NewBot(api *tgbotapi.BotAPI, client *Client, registry *subscriber.Registry, digests *digest.Service, access AccessConfig) *Bot {
	b := &Bot{
		updates:  api,
		client:   client,
		registry: registry,
		digests:  digests,
		access:   access,
		allowed:  make(map[string]struct{}, len(access.Allowed)),
	}
	for _, name := range access.Allowed {
		b.allowed[strings.ToLower(strings.TrimPrefix(name, "@"))] = struct{}{}
	}
	return b
}

// Run consumes updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := b.updates.GetUpdatesChan(cfg)

	slog.Info("command loop started")
	for {
		select {
		case <-ctx.Done():
			b.updates.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// handleCommand gates, dispatches and replies to one command message.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	command := msg.Command()
	if !b.permitted(msg.From, command) {
		slog.Info("command rejected by access gate",
			slog.String("command", command),
			slog.Int64("chat_id", msg.Chat.ID))
		recordCommand(command, "denied")
		return
	}

	reply, markdown := b.dispatch(ctx, msg)
	if reply == "" {
		return
	}
	if err := b.client.Send(ctx, msg.Chat.ID, reply, markdown); err != nil {
		slog.Warn("reply failed",
			slog.String("command", command),
			slog.Int64("chat_id", msg.Chat.ID),
			slog.Any("error", err))
	}
}

// permitted decides whether a user may run a command. This is the only
// access check in the bot.
func (b *Bot) permitted(from *tgbotapi.User, command string) bool {
	if !b.access.AllowlistEnabled {
		return true
	}
	if from != nil {
		if _, ok := b.allowed[strings.ToLower(from.UserName)]; ok {
			return true
		}
	}
	if b.access.OpenSubscribe {
		switch command {
		case "subscribe", "unsubscribe", "help", "start":
			return true
		}
	}
	return false
}

func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) (reply string, markdown bool) {
	command := msg.Command()
	args := strings.Fields(msg.CommandArguments())

	switch command {
	case "start", "help":
		recordCommand(command, "ok")
		return helpText, false

	case "subscribe":
		added, err := b.registry.Subscribe(ctx, msg.Chat.ID)
		if err != nil {
			recordCommand(command, "error")
			return "Something went wrong, please try again later.", false
		}
		recordCommand(command, "ok")
		if !added {
			return "This chat is already subscribed.", false
		}
		return "Subscribed. This chat will receive the scheduled news digest.", false

	case "unsubscribe":
		if err := b.registry.Unsubscribe(ctx, msg.Chat.ID); err != nil {
			recordCommand(command, "error")
			return "Something went wrong, please try again later.", false
		}
		recordCommand(command, "ok")
		return "Unsubscribed. This chat will no longer receive digests.", false

	case "hackernews":
		category := ""
		if len(args) > 0 {
			category = strings.ToLower(args[0])
		}
		return b.hackerNews(ctx, category)

	case "news":
		if len(args) == 0 {
			recordCommand(command, "bad_request")
			return "Usage: /news <provider>. Known providers: " + b.providerNames() + ".", false
		}
		return b.providerNews(ctx, args[0])

	default:
		recordCommand(command, "unknown")
		return "Unknown command. Try /help.", false
	}
}

// hackerNews serves one unseen story from the requested category. An empty
// category uses the provider's default.
func (b *Bot) hackerNews(ctx context.Context, category string) (string, bool) {
	p, ok := b.digests.Lookup("HackerNews")
	if !ok {
		recordCommand("hackernews", "bad_request")
		return "The HackerNews provider is not configured.", false
	}
	cp, ok := p.(categoryProvider)
	if !ok {
		recordCommand("hackernews", "bad_request")
		return "The HackerNews provider is not configured.", false
	}

	var (
		items []entity.NewsItem
		err   error
	)
	if category == "" {
		items, err = p.GetNews(ctx)
	} else {
		items, err = cp.GetNewsCategory(ctx, category)
	}

	switch {
	case errors.Is(err, entity.ErrUnknownCategory):
		recordCommand("hackernews", "bad_request")
		return fmt.Sprintf("Unknown category %q. Use one of: %s.", category, strings.Join(cp.Categories(), ", ")), false
	case errors.Is(err, entity.ErrNoNews):
		recordCommand("hackernews", "no_news")
		return digest.NothingNew, true
	case err != nil:
		slog.Warn("hackernews command failed", slog.Any("error", err))
		recordCommand("hackernews", "error")
		return "HackerNews is unreachable right now, please try again later.", false
	}

	recordCommand("hackernews", "ok")
	return renderItems(items), true
}

// providerNews serves unseen items from one provider by name.
func (b *Bot) providerNews(ctx context.Context, name string) (string, bool) {
	p, ok := b.digests.Lookup(name)
	if !ok {
		recordCommand("news", "bad_request")
		return fmt.Sprintf("Unknown provider %q. Known providers: %s.", name, b.providerNames()), false
	}

	items, err := p.GetNews(ctx)
	switch {
	case errors.Is(err, entity.ErrNoNews):
		recordCommand("news", "no_news")
		return digest.NothingNew, true
	case err != nil:
		slog.Warn("news command failed",
			slog.String("provider", p.Name()),
			slog.Any("error", err))
		recordCommand("news", "error")
		return fmt.Sprintf("%s is unreachable right now, please try again later.", p.Name()), false
	}

	recordCommand("news", "ok")
	return renderItems(items), true
}

func (b *Bot) providerNames() string {
	providers := b.digests.Providers()
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ", ")
}

func renderItems(items []entity.NewsItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, digest.FormatLine(item))
	}
	return strings.Join(lines, "\n")
}
