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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blacktop/xface/internal/config"
	"github.com/blacktop/xface/internal/face"
	"github.com/blacktop/xface/internal/processor"
	"github.com/blacktop/xface/internal/xface"
)

type postFlags struct {
	text      string
	imagePath string
	payload   string
	dryRun    bool
}

func newPostCommand() *cobra.Command {
	var flags postFlags

	cmd := &cobra.Command{
		Use:   "post [message]",
		Short: "Publish a post to the channel",
		Long: "Publish a post built from the message, --text and --image, or a raw JSON " +
			"payload given with --payload (use - to read it from stdin).",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPost(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.text, "text", "m", "", "Text of the post")
	cmd.Flags().StringVar(&flags.imagePath, "image", "", "Path to an image to attach")
	cmd.Flags().StringVar(&flags.payload, "payload", "", "JSON payload matching the post schema")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate and print the payload without posting")
	cmd.Flags().SortFlags = false

	return cmd
}

func runPost(cmd *cobra.Command, args []string, flags postFlags) error {
	payload, err := resolvePayload(cmd, args, flags)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if flags.dryRun {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		postType, channelID, err := dryRunTarget(cfg)
		if err != nil {
			return err
		}
		proc, err := processor.Registry.Build(postType, nil)
		if err != nil {
			return err
		}
		if err := proc.Validate(payload); err != nil {
			return err
		}
		fmt.Fprintf(out, "[dry-run] would post %s to %s channel %s:\n", postType, cfg.Platform, channelID)
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	return withFace(cmd.Context(), func(f *face.Face) error {
		id, err := f.PostPayload(cmd.Context(), payload)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, id)
		return nil
	})
}

// dryRunTarget returns the post type and channel a real post would use: the
// saved ones when --state-dir holds a face, the configured ones otherwise.
func dryRunTarget(cfg config.Config) (postType, channelID string, err error) {
	if stateDir == "" || !face.HasDescriptor(stateDir) {
		return cfg.PostType, cfg.ChannelID, nil
	}
	d, err := face.ReadDescriptor(stateDir)
	if err != nil {
		return "", "", err
	}
	return d.ProcessorType, d.ChannelID, nil
}

func resolvePayload(cmd *cobra.Command, args []string, flags postFlags) (xface.Payload, error) {
	if flags.payload != "" {
		if flags.text != "" || flags.imagePath != "" || len(args) > 0 {
			return nil, errors.New("--payload cannot be combined with a message, --text or --image")
		}
		return readPayload(cmd.InOrStdin(), flags.payload)
	}

	text := strings.TrimSpace(flags.text)
	if len(args) > 0 {
		if text != "" {
			return nil, errors.New("provide the message either as an argument or with --text, not both")
		}
		text = strings.TrimSpace(strings.Join(args, " "))
	}

	var post xface.PostData
	if text != "" {
		post.Text = &xface.TextContent{Content: text}
	}
	if flags.imagePath != "" {
		data, err := os.ReadFile(flags.imagePath)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		post.Image = &xface.ImageContent{Raw: data, Filename: filepath.Base(flags.imagePath)}
	}
	if post.Text == nil && post.Image == nil {
		return nil, errors.New("message, --text, --image or --payload is required")
	}
	return xface.EncodePost(post), nil
}

func readPayload(stdin io.Reader, value string) (xface.Payload, error) {
	data := []byte(value)
	if value == "-" {
		var err error
		if data, err = io.ReadAll(stdin); err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	}
	var payload xface.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return payload, nil
}
