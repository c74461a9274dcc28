package main

import (
	"syscall"
	"unsafe"

	"go.uber.org/zap"
)

var (
	user32               = syscall.NewLazyDLL("user32.dll")
	procSetWindowsHookEx = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx   = user32.NewProc("CallNextHookEx")
	procGetMessage       = user32.NewProc("GetMessageW")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
)

const (
	WH_KEYBOARD_LL = 13
	WM_KEYDOWN     = 0x0100
	VK_P           = 0x50
	VK_S           = 0x53
	VK_CONTROL     = 0x11
	VK_SHIFT       = 0x10
)

// KBDLLHOOKSTRUCT contains information about a low-level keyboard input event
type KBDLLHOOKSTRUCT struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type MSG struct {
	HWND    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

var appInstance *App
var keyboardHook uintptr

// isKeyPressed checks if a key is currently pressed
func isKeyPressed(vk uintptr) bool {
	ret, _, _ := procGetAsyncKeyState.Call(vk)
	return ret&0x8000 != 0
}

// keyboardProc is the low-level keyboard hook callback. Ctrl+Shift+P copies
// the prompt and Ctrl+Shift+S the summary, so either works with the game
// focused.
func keyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode >= 0 && wParam == WM_KEYDOWN && appInstance != nil {
		kbStruct := (*KBDLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		if isKeyPressed(VK_CONTROL) && isKeyPressed(VK_SHIFT) {
			switch kbStruct.VkCode {
			case VK_P:
				// Off the hook thread; the clipboard call goes through the webview.
				go appInstance.CopyPrompt()
			case VK_S:
				go appInstance.CopySummary()
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(keyboardHook, uintptr(nCode), wParam, lParam)
	return ret
}

// registerHotkeys installs a low-level keyboard hook for the copy shortcuts
func (a *App) registerHotkeys() {
	appInstance = a

	go func() {
		callback := syscall.NewCallback(keyboardProc)

		ret, _, err := procSetWindowsHookEx.Call(
			WH_KEYBOARD_LL,
			callback,
			0,
			0,
		)
		if ret == 0 {
			a.log.Warn("failed to install keyboard hook", zap.Error(err))
			return
		}
		keyboardHook = ret
		a.log.Info("installed copy hotkeys", zap.String("prompt", "Ctrl+Shift+P"), zap.String("summary", "Ctrl+Shift+S"))

		// Message loop to keep the hook alive
		var msg MSG
		for {
			ret, _, _ := procGetMessage.Call(
				uintptr(unsafe.Pointer(&msg)),
				0, 0, 0,
			)
			if ret == 0 {
				break
			}
		}
	}()
}
