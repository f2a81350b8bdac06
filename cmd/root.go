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
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/blacktop/xface/internal/config"
	"github.com/blacktop/xface/internal/face"
	"github.com/blacktop/xface/internal/logutil"
	"github.com/blacktop/xface/internal/xface"
)

var (
	configPath string
	stateDir   string
	verbose    bool
)

// ExecuteContext runs the root command with ctx as the command context.
func ExecuteContext(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xface",
		Short: "Drive a social channel on behalf of a posting agent",
		Long: "xface publishes posts to a Discord channel or a Mastodon or Bluesky account, scores " +
			"published posts by their reactions and scrapes the channel history.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logutil.SetVerbose(verbose)
		},
		Example: `  xface post "hello world"
  xface post --image ./shot.png --text "release notes"
  xface scrap --limit 20 --after 2025-01-01T00:00:00Z | jq .score
  xface score 00000000-0000-0000-1234-56789abcdef0`,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	flags.StringVar(&stateDir, "state-dir", "", "Restore the face from and save it to this directory")
	flags.BoolVarP(&verbose, "verbose", "V", false, "Enable debug logging")
	flags.SortFlags = false

	cmd.AddCommand(
		newPostCommand(),
		newScoreCommand(),
		newScrapCommand(),
		newSchemaCommand(),
		newCategoriesCommand(),
	)

	return cmd
}

func openFace(ctx context.Context, cfg config.Config) (*face.Face, error) {
	if stateDir != "" && face.HasDescriptor(stateDir) {
		return face.Restore(ctx, cfg, stateDir)
	}
	return face.New(ctx, cfg)
}

// withFace opens a face, runs fn and tears the face down again, saving it
// first when --state-dir is set.
func withFace(ctx context.Context, fn func(*face.Face) error) (err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	f, err := openFace(ctx, cfg)
	if err != nil {
		var missing xface.MissingEnvError
		if errors.As(err, &missing) {
			return fmt.Errorf("%w (set them in the environment, a .env file or --config)", err)
		}
		return err
	}
	defer func() {
		if cerr := f.Cleanup(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := fn(f); err != nil {
		return err
	}
	if stateDir != "" {
		return f.Save(stateDir)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
