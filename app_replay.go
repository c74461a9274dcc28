package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"sc2summariser/internal/session"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"
)

var errNoWindow = errors.New("window not ready")

// ChooseReplay opens a native file dialog and selects the picked replay
func (a *App) ChooseReplay() session.Snapshot {
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Select a Starcraft 2 replay",
		Filters: []runtime.FileFilter{
			{DisplayName: "Starcraft 2 Replays (*" + a.cfg.ReplayExtension + ")", Pattern: "*" + a.cfg.ReplayExtension},
			{DisplayName: "All Files (*.*)", Pattern: "*.*"},
		},
	})
	if err != nil {
		a.log.Warn("file dialog failed", zap.Error(err))
		a.session.Notify(session.MsgSomethingWrong)
		return a.session.Snapshot()
	}
	if path == "" {
		// Cancelled
		return a.session.Snapshot()
	}
	return a.SelectReplay(path)
}

// SelectReplay selects the replay at path, e.g. from a drag and drop
func (a *App) SelectReplay(path string) session.Snapshot {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		a.log.Warn("cannot read replay", zap.String("path", path), zap.Error(err))
		a.session.Notify(session.MsgWrongExtension)
		return a.session.Snapshot()
	}

	// Rejections are already shown as a notice.
	_ = a.session.ChooseFile(session.File{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	})
	return a.session.Snapshot()
}

// UploadReplay sends the selected replay for analysis
func (a *App) UploadReplay() session.Snapshot {
	_ = a.session.Upload()
	return a.session.Snapshot()
}

// SelectPlayer scopes the summary to a player; id <= 0 clears the selection
func (a *App) SelectPlayer(id int) session.Snapshot {
	var selected *int
	if id > 0 {
		selected = &id
	}
	_ = a.session.SelectPlayer(selected)
	return a.session.Snapshot()
}

// CopySummary copies the summary to the clipboard
func (a *App) CopySummary() session.Snapshot {
	_, _ = a.session.CopySummary()
	return a.session.Snapshot()
}

// CopyPrompt copies the LLM prompt to the clipboard
func (a *App) CopyPrompt() session.Snapshot {
	_, _ = a.session.CopyPrompt()
	return a.session.Snapshot()
}

// Reset clears the session
func (a *App) Reset() session.Snapshot {
	a.session.Reset()
	return a.session.Snapshot()
}

// GetState returns the current snapshot
func (a *App) GetState() session.Snapshot {
	return a.session.Snapshot()
}
