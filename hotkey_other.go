//go:build !windows

package main

// registerHotkeys is a no-op; global copy shortcuts are Windows only
func (a *App) registerHotkeys() {}
