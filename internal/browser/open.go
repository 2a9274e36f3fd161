// Package browser opens URLs in the user's default browser. The client uses
// it to hand the payment checkout page off to the system browser, since the
// hosted checkout cannot run inside a terminal.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// startCommand is a test seam so tests can observe the launch without
// actually spawning a browser.
var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Open opens the specified URL in the user's default browser.
func Open(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return startCommand("open", url)
	case "linux":
		return startCommand("xdg-open", url)
	case "windows":
		return startCommand("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}
