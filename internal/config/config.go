// Package config loads the face settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/blacktop/xface/internal/xface"
)

const (
	envPlatform    = "XFACE_PLATFORM"
	envToken       = "XFACE_TOKEN"
	envChannelID   = "XFACE_CHANNEL_ID"
	envPostType    = "XFACE_POST_TYPE"
	envScoringType = "XFACE_SCORING_TYPE"
	envScraping    = "XFACE_SCRAPING_TYPE"
	envServer      = "XFACE_MASTODON_SERVER"
	envClientID    = "XFACE_MASTODON_CLIENT_ID"
	envSecret      = "XFACE_MASTODON_CLIENT_SECRET"
	envHandle      = "XFACE_BLUESKY_HANDLE"
	envPDSURL      = "XFACE_BLUESKY_PDS_URL"

	PlatformDiscord  = "discord"
	PlatformMastodon = "mastodon"
	PlatformBluesky  = "bluesky"

	DefaultPostType    = "text-only"
	DefaultScoringType = "reactions"
	DefaultScraping    = "basic"
	DefaultPDSURL      = "https://bsky.social"
)

// Mastodon holds the server settings used when Platform is mastodon.
type Mastodon struct {
	Server       string `yaml:"server"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Bluesky holds the account settings used when Platform is bluesky. The
// app password travels as Token.
type Bluesky struct {
	Handle string `yaml:"handle"`
	PDSURL string `yaml:"pds_url"`
}

// Config is the configuration bundle the face is built from.
type Config struct {
	Platform       string                    `yaml:"platform"`
	Token          string                    `yaml:"token"`
	ChannelID      string                    `yaml:"channel_id"`
	PostType       string                    `yaml:"post_type"`
	ScoringType    string                    `yaml:"scoring_type"`
	ScorersParams  map[string]map[string]any `yaml:"scorers_params"`
	ScrapingType   string                    `yaml:"scraping_type"`
	ScrapersParams map[string]map[string]any `yaml:"scrapers_params"`
	Mastodon       Mastodon                  `yaml:"mastodon"`
	Bluesky        Bluesky                   `yaml:"bluesky"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (optional; empty skips the file), applies XFACE_*
// environment overrides and defaults. A .env file in the working directory
// is loaded first when present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&cfg.Platform, envPlatform)
	override(&cfg.Token, envToken)
	override(&cfg.ChannelID, envChannelID)
	override(&cfg.PostType, envPostType)
	override(&cfg.ScoringType, envScoringType)
	override(&cfg.ScrapingType, envScraping)
	override(&cfg.Mastodon.Server, envServer)
	override(&cfg.Mastodon.ClientID, envClientID)
	override(&cfg.Mastodon.ClientSecret, envSecret)
	override(&cfg.Bluesky.Handle, envHandle)
	override(&cfg.Bluesky.PDSURL, envPDSURL)
}

func applyDefaults(cfg *Config) {
	cfg.Platform = strings.ToLower(strings.TrimSpace(cfg.Platform))
	if cfg.Platform == "" {
		cfg.Platform = PlatformDiscord
	}
	if cfg.Platform == PlatformBluesky && cfg.Bluesky.PDSURL == "" {
		cfg.Bluesky.PDSURL = DefaultPDSURL
	}
	if cfg.PostType == "" {
		cfg.PostType = DefaultPostType
	}
	if cfg.ScoringType == "" {
		cfg.ScoringType = DefaultScoringType
	}
	if cfg.ScrapingType == "" {
		cfg.ScrapingType = DefaultScraping
	}
	if cfg.ScorersParams == nil {
		cfg.ScorersParams = map[string]map[string]any{}
	}
	if cfg.ScrapersParams == nil {
		cfg.ScrapersParams = map[string]map[string]any{}
	}
}

// Validate reports missing credentials for the selected platform.
func (c Config) Validate() error {
	var missing []string
	if c.Token == "" {
		missing = append(missing, envToken)
	}

	switch c.Platform {
	case PlatformDiscord:
		if c.ChannelID == "" {
			missing = append(missing, envChannelID)
		}
	case PlatformMastodon:
		if c.Mastodon.Server == "" {
			missing = append(missing, envServer)
		}
	case PlatformBluesky:
		if c.Bluesky.Handle == "" {
			missing = append(missing, envHandle)
		}
	default:
		return fmt.Errorf("unsupported platform %q", c.Platform)
	}

	if len(missing) > 0 {
		return xface.MissingEnvError{Provider: c.Platform, Variables: missing}
	}
	return nil
}
