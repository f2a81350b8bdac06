package face

import (
	"context"
	"fmt"

	"github.com/blacktop/xface/internal/config"
	"github.com/blacktop/xface/internal/processor"
	"github.com/blacktop/xface/internal/registry"
	"github.com/blacktop/xface/internal/scorer"
	"github.com/blacktop/xface/internal/scraper"
	"github.com/blacktop/xface/internal/xface"
)

// State is everything one face instance owns. It is built once and only
// read afterwards; Cleanup releases Client.
type State struct {
	Token string

	ProcessorType string
	Processor     processor.Processor

	ScoringType   string
	Scorer        scorer.Scorer
	ScorersParams map[string]map[string]any

	ScrapingType   string
	Scraper        scraper.Scraper
	ScrapersParams map[string]map[string]any

	Client  xface.Client
	Channel xface.Channel
}

// Dialer opens the platform connection described by cfg.
type Dialer func(ctx context.Context, cfg config.Config) (xface.Client, error)

// Option customizes how a face is built.
type Option func(*options)

type options struct {
	dial       Dialer
	processors *registry.Registry[processor.Processor]
	scorers    *registry.Registry[scorer.Scorer]
	scrapers   *registry.Registry[scraper.Scraper]
}

// WithDialer replaces the platform dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dial = d
		}
	}
}

// WithScorers replaces the scorer registry.
func WithScorers(r *registry.Registry[scorer.Scorer]) Option {
	return func(o *options) { o.scorers = r }
}

func buildOptions(opts []Option) options {
	o := options{
		dial:       Dial,
		processors: processor.Registry,
		scorers:    scorer.Registry,
		scrapers:   scraper.Registry,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// plugins names the categories and params a state is assembled from.
type plugins struct {
	processorType  string
	scoringType    string
	scorersParams  map[string]map[string]any
	scrapingType   string
	scrapersParams map[string]map[string]any
}

func (o options) buildState(ctx context.Context, cfg config.Config, p plugins, channelID, restoreDir string) (*State, error) {
	proc, err := o.processors.Build(p.processorType, nil)
	if err != nil {
		return nil, err
	}
	sc, err := o.scorers.Build(p.scoringType, p.scorersParams[p.scoringType])
	if err != nil {
		return nil, err
	}
	sp, err := o.scrapers.Build(p.scrapingType, p.scrapersParams[p.scrapingType])
	if err != nil {
		return nil, err
	}

	if restoreDir != "" {
		if err := restorePlugins(restoreDir, proc, sc, sp); err != nil {
			return nil, err
		}
	}

	client, err := o.dial(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Platform, err)
	}
	ch, err := client.Channel(ctx, channelID)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("resolve channel %q: %w (close: %v)", channelID, err, closeErr)
		}
		return nil, fmt.Errorf("resolve channel %q: %w", channelID, err)
	}

	return &State{
		Token:          cfg.Token,
		ProcessorType:  p.processorType,
		Processor:      proc,
		ScoringType:    p.scoringType,
		Scorer:         sc,
		ScorersParams:  p.scorersParams,
		ScrapingType:   p.scrapingType,
		Scraper:        sp,
		ScrapersParams: p.scrapersParams,
		Client:         client,
		Channel:        ch,
	}, nil
}
