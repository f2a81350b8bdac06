// Package face drives one messaging channel on behalf of a posting agent:
// it publishes posts, scores published ones and scrapes channel history.
package face

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"

	"github.com/blacktop/xface/internal/config"
	"github.com/blacktop/xface/internal/logutil"
	"github.com/blacktop/xface/internal/stream"
	"github.com/blacktop/xface/internal/xface"
)

// ErrScrapConsumed is yielded when a scrap sequence is ranged over twice.
var ErrScrapConsumed = errors.New("scrap sequence already consumed")

// Face is a posting adapter bound to a single channel. Operations take the
// state lock for reading; Cleanup takes it for writing.
type Face struct {
	postType string
	schema   *jsonschema.Schema

	mu     sync.RWMutex
	state  *State
	closed bool
}

// New builds a face from configuration and connects to the channel.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Face, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	state, err := o.buildState(ctx, cfg, plugins{
		processorType:  cfg.PostType,
		scoringType:    cfg.ScoringType,
		scorersParams:  cfg.ScorersParams,
		scrapingType:   cfg.ScrapingType,
		scrapersParams: cfg.ScrapersParams,
	}, cfg.ChannelID, "")
	if err != nil {
		return nil, err
	}

	logutil.Infof("face ready: platform=%s channel=%s post_type=%s scorer=%s scraper=%s",
		state.Client.Name(), state.Channel.ID(), state.ProcessorType, state.ScoringType, state.ScrapingType)
	return newFace(state), nil
}

// Restore rebuilds a face saved in dir. Credentials and the platform still
// come from cfg; plugins and the channel come from the saved descriptor.
func Restore(ctx context.Context, cfg config.Config, dir string, opts ...Option) (*Face, error) {
	d, err := ReadDescriptor(dir)
	if err != nil {
		return nil, err
	}
	if cfg.PostType != "" && cfg.PostType != d.ProcessorType {
		logutil.Warnf("configured post type %s ignored, restoring saved %s", cfg.PostType, d.ProcessorType)
	}
	cfg.PostType = d.ProcessorType
	cfg.ChannelID = d.ChannelID

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	state, err := o.buildState(ctx, cfg, plugins{
		processorType:  d.ProcessorType,
		scoringType:    d.ScoringType,
		scorersParams:  d.ScorersParams,
		scrapingType:   d.ScrapingType,
		scrapersParams: d.ScrapersParams,
	}, d.ChannelID, dir)
	if err != nil {
		return nil, err
	}

	logutil.Infof("face restored: dir=%s platform=%s channel=%s", dir, state.Client.Name(), state.Channel.ID())
	return newFace(state), nil
}

func newFace(state *State) *Face {
	return &Face{
		postType: state.ProcessorType,
		schema:   state.Processor.Schema(),
		state:    state,
	}
}

// Category identifies the face to the host registry. It is the post type
// name.
func (f *Face) Category() string { return f.postType }

// PostType is the post type this face implements.
func (f *Face) PostType() string { return f.postType }

// PostSchema describes the payloads accepted by PostPayload.
func (f *Face) PostSchema() *jsonschema.Schema { return f.schema }

func (f *Face) read(fn func(s *State) error) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return xface.ErrStateClosed
	}
	return fn(f.state)
}

func readValue[T any](f *Face, fn func(s *State) (T, error)) (T, error) {
	var out T
	err := f.read(func(s *State) error {
		var err error
		out, err = fn(s)
		return err
	})
	return out, err
}

// Post publishes post to the channel.
func (f *Face) Post(ctx context.Context, post xface.PostData) (uuid.UUID, error) {
	return readValue(f, func(s *State) (uuid.UUID, error) {
		return send(ctx, s, post)
	})
}

// PostPayload validates a wire payload against the post schema and publishes it.
func (f *Face) PostPayload(ctx context.Context, payload xface.Payload) (uuid.UUID, error) {
	return readValue(f, func(s *State) (uuid.UUID, error) {
		if err := s.Processor.Validate(payload); err != nil {
			return uuid.Nil, err
		}
		post, err := s.Processor.FromExternal(payload)
		if err != nil {
			return uuid.Nil, xface.ValidationError{PostType: s.ProcessorType, Reason: err.Error()}
		}
		return send(ctx, s, post)
	})
}

func send(ctx context.Context, s *State, post xface.PostData) (uuid.UUID, error) {
	payload, err := s.Processor.ToExternal(post)
	if err != nil {
		return uuid.Nil, err
	}
	draft, err := payload.Draft()
	if err != nil {
		return uuid.Nil, xface.ValidationError{PostType: s.ProcessorType, Reason: err.Error()}
	}

	msg, err := s.Channel.Send(ctx, draft)
	if err != nil {
		return uuid.Nil, err
	}
	id := xface.PostID(msg.ID)
	logutil.Debugf("posted: message_id=%d post_id=%s files=%d", msg.ID, id, len(draft.Files))
	return id, nil
}

// Score fetches a published post and rates it.
func (f *Face) Score(ctx context.Context, postID uuid.UUID) (float64, error) {
	return readValue(f, func(s *State) (float64, error) {
		id, ok := xface.MessageID(postID)
		if !ok {
			return 0, xface.NotFoundError{Provider: s.Client.Name(), ID: postID.String()}
		}
		msg, err := s.Channel.Message(ctx, id)
		if err != nil {
			return 0, err
		}
		return s.Scorer.Score(ctx, msg)
	})
}

// ScrapOptions bound a scrap. Nil fields are unbounded.
type ScrapOptions struct {
	Limit  *int
	Before *time.Time
	After  *time.Time
}

// Scraped is one harvested post.
type Scraped struct {
	PostID uuid.UUID
	Post   xface.PostData
	Score  float64
}

// Scrap opens a lazy, single-pass sequence of scored posts from the channel
// history. Messages that cannot be converted are skipped; a scoring failure
// ends the sequence with that error. Stopping the range releases the
// scraper.
func (f *Face) Scrap(ctx context.Context, opts ScrapOptions) (iter.Seq2[Scraped, error], error) {
	limit := -1
	if opts.Limit != nil {
		if *opts.Limit < 0 {
			return nil, fmt.Errorf("scrap limit must not be negative: %d", *opts.Limit)
		}
		limit = *opts.Limit
	}

	messages, err := readValue(f, func(s *State) (iter.Seq2[*xface.Message, error], error) {
		return s.Scraper.Scrap(ctx, s.Channel, opts.Before, opts.After), nil
	})
	if err != nil {
		return nil, err
	}

	posts := stream.Take(f.fetch(ctx, messages), limit)
	return stream.Once(posts, func() error { return ErrScrapConsumed }), nil
}

func (f *Face) fetch(ctx context.Context, messages iter.Seq2[*xface.Message, error]) iter.Seq2[Scraped, error] {
	return func(yield func(Scraped, error) bool) {
		next, stop := iter.Pull2(messages)
		defer stop()

		for {
			item, more, err := f.step(ctx, next)
			if err != nil {
				yield(Scraped{}, err)
				return
			}
			if !more {
				return
			}
			if item == nil {
				continue
			}
			if !yield(*item, nil) {
				return
			}
		}
	}
}

// step pulls and processes one message under a fresh read lock. A nil item
// with more set means the message was skipped.
func (f *Face) step(ctx context.Context, next func() (*xface.Message, error, bool)) (item *Scraped, more bool, err error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, false, xface.ErrStateClosed
	}
	s := f.state

	msg, err, ok := next()
	if !ok {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	score, err := s.Scorer.Score(ctx, msg)
	if err != nil {
		return nil, false, fmt.Errorf("score message %d: %w", msg.ID, err)
	}

	post, err := s.Processor.ToInternal(ctx, msg)
	if err != nil {
		logutil.Debugf("skipping message %d: %v", msg.ID, err)
		return nil, true, nil
	}

	return &Scraped{PostID: xface.PostID(msg.ID), Post: post, Score: score}, true, nil
}

// Save writes the face descriptor to dir and lets plugins that persist
// state save it under dir/<kind>.
func (f *Face) Save(dir string) error {
	return f.read(func(s *State) error {
		if err := savePlugins(dir,
			namedPlugin{"processor", s.Processor},
			namedPlugin{"scorer", s.Scorer},
			namedPlugin{"scraper", s.Scraper},
		); err != nil {
			return err
		}
		if err := WriteDescriptor(dir, Descriptor{
			ProcessorType:  s.ProcessorType,
			ScoringType:    s.ScoringType,
			ScorersParams:  s.ScorersParams,
			ScrapingType:   s.ScrapingType,
			ScrapersParams: s.ScrapersParams,
			ChannelID:      s.Channel.ID(),
		}); err != nil {
			return err
		}
		logutil.Debugf("face saved: dir=%s", dir)
		return nil
	})
}

// Cleanup waits for in-flight operations, then closes the platform
// connection. It must be the last call on the face.
func (f *Face) Cleanup() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return xface.ErrStateClosed
	}

	s := f.state
	f.closed = true
	f.state = nil

	if err := s.Client.Close(); err != nil {
		return xface.TransportError{Provider: s.Client.Name(), Op: "close", Err: err}
	}
	logutil.Infof("face closed: platform=%s channel=%s", s.Client.Name(), s.Channel.ID())
	return nil
}
