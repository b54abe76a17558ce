// Package clipboard reads and writes the system text clipboard and sends
// the platform paste shortcut.
package clipboard

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

var clipboardLock sync.Mutex

// GetText returns the current clipboard text.
func GetText() (string, error) {
	clipboardLock.Lock()
	defer clipboardLock.Unlock()

	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return text, nil
}

// SetText replaces the clipboard content with text.
func SetText(text string) error {
	clipboardLock.Lock()
	defer clipboardLock.Unlock()

	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

var (
	kbOnce sync.Once
	kb     keybd_event.KeyBonding
	kbErr  error
)

// keyboard returns the shared virtual keyboard. On Linux the uinput device
// needs a moment after creation before events are delivered.
func keyboard() (*keybd_event.KeyBonding, error) {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
		if kbErr == nil && runtime.GOOS == "linux" {
			time.Sleep(2 * time.Second)
		}
	})
	if kbErr != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", kbErr)
	}
	return &kb, nil
}

var pasteLock sync.Mutex

// Paste sends the paste shortcut (Cmd+V on macOS, Ctrl+V elsewhere) to the
// focused window.
func Paste() error {
	pasteLock.Lock()
	defer pasteLock.Unlock()

	k, err := keyboard()
	if err != nil {
		return err
	}
	k.Clear()
	k.SetKeys(keybd_event.VK_V)
	setPasteModifier(k)
	if err := k.Launching(); err != nil {
		return fmt.Errorf("send paste shortcut: %w", err)
	}
	return nil
}
