/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blacktop/xface/internal/face"
	"github.com/blacktop/xface/internal/xface"
)

type scrapFlags struct {
	limit  int
	before string
	after  string
}

// scrapRecord is one JSON line of scrap output.
type scrapRecord struct {
	PostID string        `json:"post_id"`
	Score  float64       `json:"score"`
	Post   xface.Payload `json:"post"`
}

func newScrapCommand() *cobra.Command {
	var flags scrapFlags

	cmd := &cobra.Command{
		Use:   "scrap",
		Short: "Harvest scored posts from the channel history",
		Long: "Walk the channel history newest first and print every post with its score. " +
			"Output is a table on a terminal and JSON lines otherwise.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			return withFace(cmd.Context(), func(f *face.Face) error {
				return runScrap(cmd, f, opts)
			})
		},
	}

	cmd.Flags().IntVarP(&flags.limit, "limit", "n", -1, "Maximum number of posts (negative for no limit)")
	cmd.Flags().StringVar(&flags.before, "before", "", "Only posts created before this RFC 3339 time")
	cmd.Flags().StringVar(&flags.after, "after", "", "Only posts created at or after this RFC 3339 time")
	cmd.Flags().SortFlags = false

	return cmd
}

func (f scrapFlags) options() (face.ScrapOptions, error) {
	var opts face.ScrapOptions
	if f.limit >= 0 {
		limit := f.limit
		opts.Limit = &limit
	}
	var err error
	if opts.Before, err = parseTime("before", f.before); err != nil {
		return opts, err
	}
	if opts.After, err = parseTime("after", f.after); err != nil {
		return opts, err
	}
	return opts, nil
}

func parseTime(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return &t, nil
}

func runScrap(cmd *cobra.Command, f *face.Face, opts face.ScrapOptions) error {
	seq, err := f.Scrap(cmd.Context(), opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	human := isTerminal(out)
	enc := json.NewEncoder(out)

	for item, err := range seq {
		if err != nil {
			return err
		}
		if human {
			printScraped(out, item)
			continue
		}
		if err := enc.Encode(scrapRecord{
			PostID: item.PostID.String(),
			Score:  item.Score,
			Post:   xface.EncodePost(item.Post),
		}); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}

func printScraped(w io.Writer, item face.Scraped) {
	var parts []string
	if item.Post.Text != nil {
		parts = append(parts, fmt.Sprintf("%q", truncate(item.Post.Text.Content, 60)))
	}
	if item.Post.Image != nil {
		parts = append(parts, fmt.Sprintf("[image %s, %d bytes]", item.Post.Image.Filename, len(item.Post.Image.Raw)))
	}
	fmt.Fprintf(w, "%s  %8g  %s\n", item.PostID, item.Score, strings.Join(parts, " "))
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
