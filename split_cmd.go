package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/speakpad/speakpad/internal/chunk"
)

var splitCmd = &cobra.Command{
	Use:   "split [FILE|-]",
	Short: "Print the chunks the text is sent in",
	Long: paragraph(fmt.Sprintf("\n%s the text the way it is sent for synthesis, one request per chunk.",
		keyword("Split"))),
	Example: paragraph("speakpad split notes.md --markdown\nspeakpad split --max-chunk 200 essay.txt"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(args, false, opts.markdown)
		if err != nil {
			return err
		}
		if strings.TrimSpace(src.text) == "" {
			return errNoText
		}
		return printChunks(cmd.OutOrStdout(), src.text, opts.maxChunk)
	},
}

func printChunks(w io.Writer, text string, maxLength int) error {
	chunks := chunk.Split(strings.TrimSpace(text), maxLength)
	for i, c := range chunks {
		header := fmt.Sprintf("#%d · %d chars · %s", i+1, utf8.RuneCountInString(c), humanize.Bytes(uint64(len(c))))
		if _, err := fmt.Fprintf(w, "%s\n%s\n\n", keyword(header), c); err != nil {
			return fmt.Errorf("unable to write to writer: %w", err)
		}
	}
	return nil
}
