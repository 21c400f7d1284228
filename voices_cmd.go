package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speakpad/speakpad/internal/speech"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the available voices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, v := range speech.Voices() {
			line := "  " + v.String()
			if v == opts.voice {
				line = keyword("* " + v.String())
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
				return fmt.Errorf("unable to write to writer: %w", err)
			}
		}
		return nil
	},
}
