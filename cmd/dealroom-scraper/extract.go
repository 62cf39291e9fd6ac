package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dealroom-scraper/internal/extract"
	"dealroom-scraper/internal/telemetry"
)

func newExtractCmd(o *rootOptions) *cobra.Command {
	var sourceURL string

	cmd := &cobra.Command{
		Use:   "extract <file.html> [--url <source>]",
		Short: "Run the extractor on a saved profile page and print the record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := telemetry.InitSlog(cmd.ErrOrStderr(), o.verbose, "")

			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if sourceURL == "" {
				sourceURL = args[0]
			}
			rec := extract.New(log).Extract(string(b), sourceURL)
			if err := writeJSON(cmd.OutOrStdout(), rec); err != nil {
				return fmt.Errorf("print record: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceURL, "url", "", "value for raw_source_url (default: the file path)")
	return cmd
}
