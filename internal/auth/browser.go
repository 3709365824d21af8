package auth

import (
	"os/exec"
	"runtime"
)

// BrowserOpener launches the user's browser at the authorization URL.
// It is an externally observable side effect, kept behind an interface so
// tests can drive the callback without a real browser.
type BrowserOpener interface {
	Open(url string) error
}

// SystemBrowser opens URLs with the platform's default handler.
type SystemBrowser struct{}

func (SystemBrowser) Open(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("cmd", "/C", "start", "", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
