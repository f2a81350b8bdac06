package face

import (
	"context"
	"fmt"

	"github.com/blacktop/xface/internal/config"
	"github.com/blacktop/xface/internal/xface"
	"github.com/blacktop/xface/internal/xface/bluesky"
	"github.com/blacktop/xface/internal/xface/discord"
	"github.com/blacktop/xface/internal/xface/mastodon"
)

// Dial connects to the platform named by cfg.Platform.
func Dial(ctx context.Context, cfg config.Config) (xface.Client, error) {
	switch cfg.Platform {
	case config.PlatformDiscord:
		return discord.New(ctx, discord.Config{Token: cfg.Token})
	case config.PlatformMastodon:
		return mastodon.New(ctx, mastodon.Config{
			Server:       cfg.Mastodon.Server,
			AccessToken:  cfg.Token,
			ClientID:     cfg.Mastodon.ClientID,
			ClientSecret: cfg.Mastodon.ClientSecret,
		})
	case config.PlatformBluesky:
		return bluesky.New(ctx, bluesky.Config{
			Handle:      cfg.Bluesky.Handle,
			AppPassword: cfg.Token,
			PDSURL:      cfg.Bluesky.PDSURL,
		})
	default:
		return nil, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
}
