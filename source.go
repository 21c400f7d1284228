package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"

	"github.com/speakpad/speakpad/internal/chunk"
)

// source is the initial text and the file it was read from, if any.
type source struct {
	text string
	path string
}

// readSource resolves the text to start with. A pipe on stdin wins, then
// the argument (a file, or - for stdin), then the clipboard when paste is
// set. No argument at all yields an empty source.
func readSource(args []string, paste, markdown bool) (*source, error) {
	// if stdin is a pipe then use stdin for input. note that you can also
	// explicitly use a - to read from stdin.
	if yes, err := stdinIsPipe(); err != nil {
		return nil, err
	} else if yes || (len(args) == 1 && args[0] == "-") {
		return readFrom(os.Stdin, "", markdown)
	}

	if len(args) == 1 {
		return sourceFromFile(args[0], markdown)
	}

	if paste {
		text, err := clipboard.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("unable to read clipboard: %w", err)
		}
		return &source{text: text}, nil
	}

	return &source{}, nil
}

func sourceFromFile(arg string, markdown bool) (*source, error) {
	st, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", arg)
	}

	f, err := os.Open(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	u, err := filepath.Abs(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return readFrom(f, u, markdown)
}

func readFrom(r io.Reader, path string, markdown bool) (*source, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read from reader: %w", err)
	}
	text := string(b)
	if markdown {
		text = chunk.PlainText(text)
	}
	return &source{text: text, path: path}, nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

var errNoText = errors.New("no text to read: pass a FILE, pipe text on stdin or use --paste")
