package main

import (
	"sc2summariser/internal/session"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// eventPublisher forwards every session snapshot to the frontend
type eventPublisher struct {
	app *App
}

func (p eventPublisher) Publish(snap session.Snapshot) {
	// No window yet; the frontend calls GetState once it loads.
	if p.app.ctx == nil {
		return
	}
	runtime.EventsEmit(p.app.ctx, "session:update", snap)
}

// wailsClipboard writes copied text to the system clipboard
type wailsClipboard struct {
	app *App
}

func (c wailsClipboard) SetText(text string) error {
	if c.app.ctx == nil {
		return errNoWindow
	}
	return runtime.ClipboardSetText(c.app.ctx, text)
}
