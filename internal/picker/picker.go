// Package picker is the interactive terminal UI used to choose the "from" and
// "to" revisions from the graph log.
package picker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thiagokokada/gde-go/internal/git/backend"
	"github.com/thiagokokada/gde-go/internal/logline"
)

var ErrNoCommits = errors.New("no commits to pick from")

type Options struct {
	// All logs every ref instead of HEAD only.
	All   bool
	Theme ThemePreference
	// Watch reloads the log when the repository changes.
	Watch bool
}

// Run shows the picker until the user confirms or aborts. ok is false when the
// user quit without choosing.
func Run(ctx context.Context, b backend.Backend, opts Options) (from, to string, ok bool, err error) {
	entries, err := loadEntries(ctx, b, opts.All)
	if err != nil {
		return "", "", false, err
	}
	if !hasCommit(entries) {
		return "", "", false, ErrNoCommits
	}

	m := NewModel(entries, paletteForPreference(opts.Theme))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if opts.Watch {
		watch, err := startAutoReload(b.RootDir(), func() {
			entries, err := loadEntries(ctx, b, opts.All)
			if err != nil {
				p.Send(reloadErrMsg{err: err})
				return
			}
			slog.Debug("log reloaded", slog.Int("lines", len(entries)))
			p.Send(reloadMsg{entries: entries})
		})
		if err != nil {
			slog.Error("auto reload disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := watch.Close(); err != nil {
					slog.Error("watcher close", slog.Any("error", err))
				}
			}()
		}
	}

	final, err := p.Run()
	if err != nil {
		return "", "", false, fmt.Errorf("picker: %w", err)
	}
	from, to, ok = final.(Model).Result()
	return from, to, ok, nil
}

func loadEntries(ctx context.Context, b backend.Backend, all bool) ([]logline.Entry, error) {
	lines, err := b.LogLines(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return logline.ParseAll(lines), nil
}

func hasCommit(entries []logline.Entry) bool {
	for _, e := range entries {
		if _, ok := e.(logline.Commit); ok {
			return true
		}
	}
	return false
}
