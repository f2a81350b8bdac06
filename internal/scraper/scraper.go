// Package scraper lists historical channel messages.
package scraper

import (
	"context"
	"errors"
	"iter"
	"sort"
	"time"

	"github.com/blacktop/xface/internal/registry"
	"github.com/blacktop/xface/internal/xface"
)

// Scraper produces a lazy sequence of channel messages inside the window
// [after, before). Nil bounds are open.
type Scraper interface {
	Scrap(ctx context.Context, ch xface.Channel, before, after *time.Time) iter.Seq2[*xface.Message, error]
}

// Registry holds the available scrapers.
var Registry = registry.New[Scraper]("scraper")

func init() {
	Registry.Register("basic", newBasic)
}

const defaultPageSize = 100

// Basic walks the channel history newest first, one page at a time.
type Basic struct {
	PageSize int `mapstructure:"page_size"`
}

func newBasic(params registry.Params) (Scraper, error) {
	s := &Basic{PageSize: defaultPageSize}
	if err := registry.Decode(params, s); err != nil {
		return nil, err
	}
	if s.PageSize <= 0 {
		return nil, errors.New("page_size must be positive")
	}
	return s, nil
}

// Scrap yields messages newest first. A page is fetched only once the
// consumer has drained the previous one.
func (s *Basic) Scrap(ctx context.Context, ch xface.Channel, before, after *time.Time) iter.Seq2[*xface.Message, error] {
	return func(yield func(*xface.Message, error) bool) {
		var cursor uint64
		if before != nil {
			cursor = ch.CursorAt(*before)
		}

		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			page, err := ch.History(ctx, xface.Page{Before: cursor, Limit: s.PageSize})
			if err != nil {
				yield(nil, err)
				return
			}
			if len(page) == 0 {
				return
			}
			sort.SliceStable(page, func(i, j int) bool { return page[i].ID > page[j].ID })

			for _, msg := range page {
				if before != nil && !msg.CreatedAt.Before(*before) {
					continue
				}
				if after != nil && msg.CreatedAt.Before(*after) {
					return
				}
				if !yield(msg, nil) {
					return
				}
			}

			last := page[len(page)-1].ID
			if len(page) < s.PageSize || (cursor != 0 && last >= cursor) {
				return
			}
			cursor = last
		}
	}
}
