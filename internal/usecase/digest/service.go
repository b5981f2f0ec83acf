// Package digest aggregates unseen news from all registered providers into
// one MarkdownV2 message ready for broadcast.
package digest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"technews-bot/internal/domain/entity"
	"technews-bot/internal/usecase/provider"
)

// NothingNew is the digest body sent when no provider has anything unseen.
// Already MarkdownV2-escaped.
const NothingNew = `Nothing new under the sun today\.`

// defaultProviderTimeout bounds one provider's GetNews inside a digest cycle.
const defaultProviderTimeout = 30 * time.Second

// Service collects news from a fixed, ordered set of providers. Providers
// fail independently: one slow or broken source never suppresses the others,
// and the digest keeps registration order regardless of completion order.
type Service struct {
	providers []provider.Provider
	timeout   time.Duration
}

// NewService creates a digest service over the given providers. The slice
// order is the digest order. A non-positive timeout falls back to the
// default per-provider timeout.
func NewService(providers []provider.Provider, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Service{providers: providers, timeout: timeout}
}

// Collect queries every provider concurrently and renders the combined
// digest. Providers that fail, time out, or report no news are omitted;
// when every provider comes back empty the fixed nothing-new sentence is
// returned instead of an empty message.
func (s *Service) Collect(ctx context.Context) string {
	start := time.Now()
	digestCyclesTotal.Inc()

	// Results are slotted by registration index so a missing provider
	// never shifts the ones after it.
	results := make([][]entity.NewsItem, len(s.providers))

	var eg errgroup.Group
	for i, p := range s.providers {
		i, p := i, p
		eg.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			items, err := p.GetNews(pctx)
			switch {
			case err == nil:
				results[i] = items
				digestItemsTotal.WithLabelValues(p.Name()).Add(float64(len(items)))
			case errors.Is(err, entity.ErrNoNews):
				digestProviderFailures.WithLabelValues(p.Name(), "no_news").Inc()
				slog.Debug("provider has no unseen news",
					slog.String("provider", p.Name()))
			case errors.Is(err, context.DeadlineExceeded):
				digestProviderFailures.WithLabelValues(p.Name(), "timeout").Inc()
				slog.Warn("provider timed out, omitting from digest",
					slog.String("provider", p.Name()),
					slog.Duration("timeout", s.timeout))
			default:
				digestProviderFailures.WithLabelValues(p.Name(), "error").Inc()
				slog.Warn("provider failed, omitting from digest",
					slog.String("provider", p.Name()),
					slog.Any("error", err))
			}
			return nil
		})
	}
	_ = eg.Wait() // goroutines report through results/logs, never errors

	var lines []string
	for _, items := range results {
		for _, item := range items {
			if !item.Valid() {
				continue
			}
			lines = append(lines, FormatLine(item))
		}
	}

	digestDuration.Observe(time.Since(start).Seconds())
	slog.Info("digest collected",
		slog.Int("providers", len(s.providers)),
		slog.Int("items", len(lines)),
		slog.Duration("duration", time.Since(start)))

	if len(lines) == 0 {
		return NothingNew
	}
	return strings.Join(lines, "\n")
}

// UpdateAll refreshes every provider's snapshot sequentially. Failures are
// logged per provider and never abort the run.
func (s *Service) UpdateAll(ctx context.Context) {
	for _, p := range s.providers {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := p.UpdateNews(pctx)
		cancel()
		if err != nil {
			slog.Warn("provider update failed",
				slog.String("provider", p.Name()),
				slog.Any("error", err))
		}
	}
}

// CleanAll resets every provider's blacklist. Failures are logged per
// provider and never abort the run.
func (s *Service) CleanAll(ctx context.Context) {
	for _, p := range s.providers {
		if err := p.CleanBlacklist(ctx); err != nil {
			slog.Warn("blacklist reset failed",
				slog.String("provider", p.Name()),
				slog.Any("error", err))
		}
	}
}

// Providers returns the registered providers in digest order.
func (s *Service) Providers() []provider.Provider {
	return s.providers
}

// Lookup finds a registered provider by name, case-insensitively.
func (s *Service) Lookup(name string) (provider.Provider, bool) {
	for _, p := range s.providers {
		if strings.EqualFold(p.Name(), name) {
			return p, true
		}
	}
	return nil, false
}
