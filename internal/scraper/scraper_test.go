package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blacktop/xface/internal/registry"
	"github.com/blacktop/xface/internal/xface"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeChannel holds messages 1..n, message i created i minutes after base.
type fakeChannel struct {
	n       int
	calls   int
	failAt  int
	history []xface.Page
}

func (c *fakeChannel) ID() string { return "fake" }

func (c *fakeChannel) Send(context.Context, xface.Draft) (*xface.Message, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeChannel) Message(context.Context, uint64) (*xface.Message, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeChannel) History(_ context.Context, page xface.Page) ([]*xface.Message, error) {
	c.calls++
	c.history = append(c.history, page)
	if c.failAt > 0 && c.calls == c.failAt {
		return nil, errors.New("listing failed")
	}
	top := uint64(c.n)
	if page.Before != 0 && page.Before-1 < top {
		top = page.Before - 1
	}
	var out []*xface.Message
	for id := top; id >= 1 && len(out) < page.Limit; id-- {
		out = append(out, &xface.Message{ID: id, CreatedAt: base.Add(time.Duration(id) * time.Minute)})
	}
	return out, nil
}

func (c *fakeChannel) CursorAt(t time.Time) uint64 {
	return uint64(t.Sub(base)/time.Minute) + 1
}

func ids(t *testing.T, s Scraper, ch xface.Channel, before, after *time.Time) []uint64 {
	t.Helper()
	var out []uint64
	for msg, err := range s.Scrap(context.Background(), ch, before, after) {
		require.NoError(t, err)
		out = append(out, msg.ID)
	}
	return out
}

func at(minute int) *time.Time {
	t := base.Add(time.Duration(minute) * time.Minute)
	return &t
}

func TestBasicScrap(t *testing.T) {
	s, err := Registry.Build("basic", registry.Params{"page_size": 3})
	require.NoError(t, err)

	t.Run("whole history newest first", func(t *testing.T) {
		ch := &fakeChannel{n: 7}
		assert.Equal(t, []uint64{7, 6, 5, 4, 3, 2, 1}, ids(t, s, ch, nil, nil))
		assert.Equal(t, 3, ch.calls)
	})

	t.Run("window is [after, before)", func(t *testing.T) {
		ch := &fakeChannel{n: 10}
		assert.Equal(t, []uint64{7, 6, 5, 4, 3}, ids(t, s, ch, at(8), at(3)))
		assert.Equal(t, uint64(9), ch.history[0].Before)
	})

	t.Run("stops at first message older than after", func(t *testing.T) {
		ch := &fakeChannel{n: 10}
		assert.Equal(t, []uint64{10, 9}, ids(t, s, ch, nil, at(9)))
		assert.Equal(t, 1, ch.calls)
	})

	t.Run("empty channel", func(t *testing.T) {
		ch := &fakeChannel{n: 0}
		assert.Empty(t, ids(t, s, ch, nil, nil))
	})
}

func TestBasicScrapIsLazy(t *testing.T) {
	s, err := Registry.Build("basic", registry.Params{"page_size": 2})
	require.NoError(t, err)

	ch := &fakeChannel{n: 10}
	for msg, err := range s.Scrap(context.Background(), ch, nil, nil) {
		require.NoError(t, err)
		if msg.ID == 9 {
			break
		}
	}
	assert.Equal(t, 1, ch.calls)
}

func TestBasicScrapListingError(t *testing.T) {
	s, err := Registry.Build("basic", registry.Params{"page_size": 2})
	require.NoError(t, err)

	ch := &fakeChannel{n: 10, failAt: 2}
	var got []uint64
	var gotErr error
	for msg, err := range s.Scrap(context.Background(), ch, nil, nil) {
		if err != nil {
			gotErr = err
			break
		}
		got = append(got, msg.ID)
	}
	assert.Equal(t, []uint64{10, 9}, got)
	assert.EqualError(t, gotErr, "listing failed")
}

func TestBasicScrapCancelled(t *testing.T) {
	s, err := Registry.Build("basic", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := &fakeChannel{n: 3}
	for _, err := range s.Scrap(ctx, ch, nil, nil) {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Zero(t, ch.calls)
}

func TestBasicParams(t *testing.T) {
	_, err := Registry.Build("basic", registry.Params{"page_size": 0})
	assert.Error(t, err)

	s, err := Registry.Build("basic", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, s.(*Basic).PageSize)
}
