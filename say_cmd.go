package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/speakpad/speakpad/internal/playback"
)

var sayPaste bool

var sayCmd = &cobra.Command{
	Use:   "say [FILE|-]",
	Short: "Read text aloud without the TUI",
	Long: paragraph(fmt.Sprintf("\n%s the text from FILE, stdin or the clipboard and play it to the end.",
		keyword("Speak"))),
	Example: paragraph("speakpad say notes.txt\necho 'Hello there.' | speakpad say --voice onyx"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(args, sayPaste, opts.markdown)
		if err != nil {
			return err
		}
		if strings.TrimSpace(src.text) == "" {
			return errNoText
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		live := term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec
		p := newProgress(cmd.OutOrStdout(), live)

		r, closer, err := newReader(playback.WithOnChange(p.update))
		if err != nil {
			return err
		}
		defer closer()

		return say(ctx, r, src.text, p)
	},
}

func init() {
	sayCmd.Flags().BoolVar(&sayPaste, "paste", false, "read the clipboard contents")
}

// speaker is the part of the Sequencer used by say.
type speaker interface {
	Generate(ctx context.Context, text string) error
}

// say generates text and blocks until playback completes, fails, or ctx
// is cancelled.
func say(ctx context.Context, r speaker, text string, p *progress) error {
	start := time.Now()
	if err := r.Generate(ctx, text); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		p.finish()
		return nil
	case st := <-p.done:
		p.finish()
		if st.Status == playback.StatusError && st.Err != nil {
			return st.Err
		}
		log.Debug("Finished reading", "tracks", st.Tracks, "skipped", st.Failed, "took", time.Since(start).Round(time.Second))
		return nil
	}
}

// progress prints playback state changes. On a terminal the line is
// redrawn in place; otherwise a line is printed per track.
type progress struct {
	w    io.Writer
	out  *termenv.Output
	live bool
	done chan playback.State

	mu       sync.Mutex
	last     string
	lastIdx  int
	finished bool
}

func newProgress(w io.Writer, live bool) *progress {
	return &progress{
		w:       w,
		out:     termenv.NewOutput(w),
		live:    live,
		lastIdx: -1,
		done:    make(chan playback.State, 1),
	}
}

func (p *progress) update(st playback.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished {
		return
	}
	if st.Complete || (st.Status == playback.StatusError && !st.Generating) {
		p.finished = true
		p.print(st)
		p.done <- st
		return
	}
	if st.Tracks == 0 {
		return
	}
	p.print(st)
}

func (p *progress) print(st playback.State) {
	line := progressLine(st)
	if p.live {
		if line == p.last {
			return
		}
		p.out.ClearLine()
		fmt.Fprint(p.out, "\r"+line)
		p.last = line
		return
	}
	if st.Index != p.lastIdx || st.Complete || st.Status == playback.StatusError {
		fmt.Fprintln(p.w, line)
		p.lastIdx = st.Index
	}
}

func (p *progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = true
	if p.live && p.last != "" {
		fmt.Fprintln(p.w)
	}
}

func progressLine(st playback.State) string {
	if st.Complete {
		return fmt.Sprintf("Done: %d tracks read, %d skipped", st.Tracks, st.Failed)
	}
	if st.Status == playback.StatusError {
		var msg string
		if st.Err != nil {
			msg = st.Err.Error()
		}
		return "Error: " + msg
	}

	parts := []string{
		st.Status.String(),
		fmt.Sprintf("track %d/%d", st.Index+1, st.Tracks),
	}
	if st.Loaded && st.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%s / %s",
			st.Position.Round(time.Second), st.Duration.Round(time.Second)))
	}
	if st.Elapsed > 0 {
		parts = append(parts, "elapsed "+st.Elapsed.Round(time.Second).String())
	}
	if n := st.Pending(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d loading", n))
	}
	return strings.Join(parts, " · ")
}
