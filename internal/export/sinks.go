package export

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/pkg/browser"
)

var (
	// ErrClipboard is wrapped when the system clipboard rejects a write.
	ErrClipboard = errors.New("clipboard unavailable")
	// ErrNoDiagram is returned by export actions before anything was generated.
	ErrNoDiagram = errors.New("no diagram generated yet")
)

// Clipboard receives copied markup.
type Clipboard interface {
	WriteAll(text string) error
}

// Opener opens a URL for the user, typically in a browser tab.
type Opener interface {
	Open(url string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("%w: no clipboard utility found", ErrClipboard)
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboard, err)
	}
	return nil
}

// BrowserOpener opens URLs in the default browser.
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	return browser.OpenURL(url)
}
