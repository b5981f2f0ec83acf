// Package config loads the bot configuration file: which providers exist,
// where state lives, and who may talk to the bot. Operational knobs
// (schedules, ports, timeouts) come from the environment instead, see
// internal/infra/worker.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when BOT_CONFIG is not set.
const DefaultPath = "config.yaml"

// BotConfig is the root of the YAML config file.
type BotConfig struct {
	// DataDir is the root directory for all persisted state: snapshots,
	// blacklists, the subscriber set.
	DataDir string `yaml:"data_dir"`

	Telegram  TelegramConfig  `yaml:"telegram"`
	Providers ProvidersConfig `yaml:"providers"`
}

// TelegramConfig covers the access gate. The bot token itself is a secret
// and comes from the TELEGRAM_BOT_TOKEN environment variable.
type TelegramConfig struct {
	// AllowlistEnabled gates commands to AllowedUsers. Off by default: the
	// bot answers everyone.
	AllowlistEnabled bool     `yaml:"allowlist_enabled"`
	AllowedUsers     []string `yaml:"allowed_users"`

	// OpenSubscribe lets non-allowlisted users still manage their own
	// subscription when the allowlist is on.
	OpenSubscribe bool `yaml:"open_subscribe"`
}

// ProvidersConfig declares the news sources.
type ProvidersConfig struct {
	HackerNews HackerNewsConfig `yaml:"hackernews"`
	RSS        []RSSFeedConfig  `yaml:"rss"`
}

// HackerNewsConfig configures the HackerNews provider.
type HackerNewsConfig struct {
	Enabled bool `yaml:"enabled"`

	// DefaultCategory is served when no category is asked for: one of
	// "new", "top", "best".
	DefaultCategory string `yaml:"default_category"`

	// Selection is "first" or "random".
	Selection string `yaml:"selection"`
}

// RSSFeedConfig configures one RSS provider.
type RSSFeedConfig struct {
	Name      string `yaml:"name"`
	FeedURL   string `yaml:"feed_url"`
	UserAgent string `yaml:"user_agent"`
	MaxItems  int    `yaml:"max_items"`
}

// Default returns the config used when no file exists: HackerNews only,
// open access, state under ./data.
func Default() BotConfig {
	return BotConfig{
		DataDir: "./data",
		Telegram: TelegramConfig{
			OpenSubscribe: true,
		},
		Providers: ProvidersConfig{
			HackerNews: HackerNewsConfig{
				Enabled:         true,
				DefaultCategory: "new",
				Selection:       "first",
			},
		},
	}
}

// Load reads the config file at path. A missing file yields the defaults;
// an unreadable or invalid file is an error, because silently dropping a
// configured feed list would be worse than failing startup.
func Load(path string) (BotConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *BotConfig) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}

	seen := map[string]bool{"hackernews": true}
	for i, feed := range c.Providers.RSS {
		if feed.Name == "" {
			return fmt.Errorf("providers.rss[%d]: name must not be empty", i)
		}
		if feed.FeedURL == "" {
			return fmt.Errorf("providers.rss[%d] (%s): feed_url must not be empty", i, feed.Name)
		}
		if feed.MaxItems < 0 {
			return fmt.Errorf("providers.rss[%d] (%s): max_items must not be negative", i, feed.Name)
		}
		key := strings.ToLower(feed.Name)
		if seen[key] {
			return fmt.Errorf("providers.rss[%d]: duplicate provider name %q", i, feed.Name)
		}
		seen[key] = true
	}
	return nil
}
