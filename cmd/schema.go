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
	"strings"

	"github.com/spf13/cobra"

	"github.com/blacktop/xface/internal/config"
	"github.com/blacktop/xface/internal/processor"
	"github.com/blacktop/xface/internal/scorer"
	"github.com/blacktop/xface/internal/scraper"
)

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [post-type]",
		Short: "Print the JSON schema of a post type",
		Long:  "Print the JSON schema of the given post type, or of the configured one.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postType := ""
			if len(args) == 1 {
				postType = args[0]
			} else {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				postType = cfg.PostType
			}

			proc, err := processor.Registry.Build(postType, nil)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(proc.Schema(), "", "  ")
			if err != nil {
				return fmt.Errorf("encode schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the registered post types, scorers and scrapers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", processor.Registry.Kind(), strings.Join(processor.Registry.Categories(), ", "))
			fmt.Fprintf(out, "%s: %s\n", scorer.Registry.Kind(), strings.Join(scorer.Registry.Categories(), ", "))
			fmt.Fprintf(out, "%s: %s\n", scraper.Registry.Kind(), strings.Join(scraper.Registry.Categories(), ", "))
		},
	}
}
