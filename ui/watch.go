package ui

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/speakpad/speakpad/internal/chunk"
)

type reloadMsg struct{ text string }

func newWatcher() *fsnotify.Watcher {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error("error creating fsnotify watcher", "error", err)
		return nil
	}
	return w
}

// watchFile blocks until path is written and returns its new contents.
// The directory is watched, since editors often replace files on save.
func watchFile(w *fsnotify.Watcher, path string, markdown bool) tea.Cmd {
	return func() tea.Msg {
		dir := filepath.Dir(path)
		if err := w.Add(dir); err != nil {
			log.Error("error adding dir to fsnotify watcher", "error", err)
			return nil
		}

		log.Info("fsnotify watching dir", "dir", dir)

		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return nil
				}
				if event.Name != path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
				text, err := readText(path, markdown)
				if err != nil {
					return errMsg{err}
				}
				return reloadMsg{text: text}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				log.Debug("fsnotify error", "dir", dir, "error", err)
			}
		}
	}
}

// readText loads the text to read aloud from path.
func readText(path string, markdown bool) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("unable to read file: %w", err)
	}
	if markdown {
		return chunk.PlainText(string(b)), nil
	}
	return string(b), nil
}
