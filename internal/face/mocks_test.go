package face

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/blacktop/xface/internal/config"
	"github.com/blacktop/xface/internal/registry"
	"github.com/blacktop/xface/internal/scorer"
	"github.com/blacktop/xface/internal/xface"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(minute int) *time.Time {
	t := base.Add(time.Duration(minute) * time.Minute)
	return &t
}

type fakeClient struct {
	channel  *fakeChannel
	closed   int
	closeErr error
	chanErr  error
}

func (c *fakeClient) Name() string { return "fake" }

func (c *fakeClient) Channel(_ context.Context, id string) (xface.Channel, error) {
	if c.chanErr != nil {
		return nil, c.chanErr
	}
	if id != c.channel.id {
		return nil, xface.NotFoundError{Provider: "fake", ID: id}
	}
	return c.channel, nil
}

func (c *fakeClient) Close() error {
	c.closed++
	return c.closeErr
}

// fakeChannel stores messages by id. Message i is created i minutes after
// base, so CursorAt maps a time to the id just past it.
type fakeChannel struct {
	id string

	mu       sync.Mutex
	messages map[uint64]*xface.Message
	sent     []xface.Draft
	pages    int

	// entered and release, when set, make Send block until release closes.
	entered chan struct{}
	release chan struct{}
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{id: "c1", messages: map[uint64]*xface.Message{}}
}

func (c *fakeChannel) ID() string { return c.id }

func (c *fakeChannel) add(msg *xface.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg.CreatedAt = base.Add(time.Duration(msg.ID) * time.Minute)
	c.messages[msg.ID] = msg
}

func (c *fakeChannel) Send(_ context.Context, draft xface.Draft) (*xface.Message, error) {
	if c.entered != nil {
		close(c.entered)
		<-c.release
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, draft)

	id := uint64(len(c.messages) + 1)
	msg := &xface.Message{ID: id, CreatedAt: base.Add(time.Duration(id) * time.Minute)}
	if draft.Content != "" {
		content := draft.Content
		msg.Content = &content
	}
	for _, f := range draft.Files {
		msg.Attachments = append(msg.Attachments, staticAttachment{name: f.Name, data: f.Data})
	}
	c.messages[id] = msg
	return msg, nil
}

func (c *fakeChannel) Message(_ context.Context, id uint64) (*xface.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.messages[id]
	if !ok {
		return nil, xface.NotFoundError{Provider: "fake", ID: strconv.FormatUint(id, 10)}
	}
	return msg, nil
}

func (c *fakeChannel) History(_ context.Context, page xface.Page) ([]*xface.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages++

	var out []*xface.Message
	for id, msg := range c.messages {
		if page.Before == 0 || id < page.Before {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (c *fakeChannel) CursorAt(t time.Time) uint64 {
	return uint64(t.Sub(base)/time.Minute) + 1
}

type staticAttachment struct {
	name string
	data []byte
	err  error
}

func (a staticAttachment) Filename() string { return a.name }

func (a staticAttachment) Read(context.Context) ([]byte, error) {
	return a.data, a.err
}

func textMessage(id uint64, content string, likes int) *xface.Message {
	return &xface.Message{
		ID:          id,
		Content:     &content,
		Attachments: []xface.Attachment{staticAttachment{name: "img.png", data: []byte{byte(id)}}},
		Reactions:   []xface.Reaction{{Emoji: "👍", Count: likes}},
	}
}

func testConfig(postType string) config.Config {
	return config.Config{
		Platform:       config.PlatformDiscord,
		Token:          "token",
		ChannelID:      "c1",
		PostType:       postType,
		ScoringType:    config.DefaultScoringType,
		ScorersParams:  map[string]map[string]any{},
		ScrapingType:   config.DefaultScraping,
		ScrapersParams: map[string]map[string]any{},
	}
}

func dialer(c *fakeClient) Option {
	return WithDialer(func(context.Context, config.Config) (xface.Client, error) {
		return c, nil
	})
}

var errScore = errors.New("scoring backend unavailable")

// failingScorer fails on one message id and scores the rest by id.
type failingScorer struct {
	failOn uint64
}

func (s failingScorer) Score(_ context.Context, msg *xface.Message) (float64, error) {
	if msg.ID == s.failOn {
		return 0, errScore
	}
	return float64(msg.ID), nil
}

// statefulScorer keeps a bonus that survives save and restore.
type statefulScorer struct {
	Bonus    float64 `mapstructure:"bonus"`
	restored string
}

func (s *statefulScorer) Score(_ context.Context, msg *xface.Message) (float64, error) {
	return s.Bonus + float64(msg.ID), nil
}

func (s *statefulScorer) Save(dir string) error {
	return os.WriteFile(filepath.Join(dir, "bonus"), []byte(strconv.FormatFloat(s.Bonus, 'f', -1, 64)), 0o644)
}

func (s *statefulScorer) Restore(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, "bonus"))
	if err != nil {
		return err
	}
	s.restored = string(data)
	return nil
}

func testScorers(built *[]*statefulScorer) *registry.Registry[scorer.Scorer] {
	r := registry.New[scorer.Scorer]("scorer")
	r.Register("failing", func(params registry.Params) (scorer.Scorer, error) {
		s := failingScorer{}
		if v, ok := params["fail_on"].(int); ok {
			s.failOn = uint64(v)
		}
		return s, nil
	})
	r.Register("stateful", func(params registry.Params) (scorer.Scorer, error) {
		s := &statefulScorer{}
		if err := registry.Decode(params, s); err != nil {
			return nil, err
		}
		if built != nil {
			*built = append(*built, s)
		}
		return s, nil
	})
	return r
}
