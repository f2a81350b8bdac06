// Package scorer rates published messages.
package scorer

import (
	"context"

	"github.com/blacktop/xface/internal/registry"
	"github.com/blacktop/xface/internal/xface"
)

// Scorer computes a quality score for a platform message.
type Scorer interface {
	Score(ctx context.Context, msg *xface.Message) (float64, error)
}

// Registry holds the available scorers.
var Registry = registry.New[Scorer]("scorer")

func init() {
	Registry.Register("reactions", newReactions)
}

// Reactions scores a message by its reaction count.
type Reactions struct {
	// Emoji restricts counting to one emoji; empty counts all of them.
	Emoji string `mapstructure:"emoji"`
}

func newReactions(params registry.Params) (Scorer, error) {
	s := &Reactions{}
	if err := registry.Decode(params, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Score sums the matching reaction counts.
func (s *Reactions) Score(_ context.Context, msg *xface.Message) (float64, error) {
	total := 0
	for _, r := range msg.Reactions {
		if s.Emoji != "" && r.Emoji != s.Emoji {
			continue
		}
		total += r.Count
	}
	return float64(total), nil
}
