// Package clipboard places text on the system clipboard.
package clipboard

import (
	"errors"
	"os/exec"
	"runtime"
	"strings"

	atotto "github.com/atotto/clipboard"
)

// Writer places text on a clipboard. Tests substitute a Memory writer.
type Writer interface {
	WriteText(s string) error
}

// Error reports that no clipboard mechanism accepted the text. It is never
// fatal: callers tell the user and carry on.
type Error struct {
	Err error
}

func (e *Error) Error() string { return "clipboard unavailable: " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// System writes to the OS clipboard, falling back to the usual helper
// commands when the library has no backend (headless sessions, wayland).
type System struct{}

func (System) WriteText(s string) error {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if !atotto.Unsupported {
		if err := atotto.WriteAll(s); err == nil {
			return nil
		}
	}
	if err := fallback(s); err != nil {
		return &Error{Err: err}
	}
	return nil
}

func fallback(s string) error {
	switch runtime.GOOS {
	case "darwin":
		return run("pbcopy", nil, s)
	case "windows":
		if err := run("cmd", []string{"/c", "clip"}, s); err == nil {
			return nil
		}
		return run("powershell", []string{"-NoProfile", "-Command", "Set-Clipboard"}, s)
	default:
		if err := run("wl-copy", nil, s); err == nil {
			return nil
		}
		if err := run("xclip", []string{"-selection", "clipboard"}, s); err == nil {
			return nil
		}
		return run("xsel", []string{"--clipboard", "--input"}, s)
	}
}

func run(name string, args []string, stdin string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	if err := cmd.Run(); err != nil {
		return errors.New(name + ": " + err.Error())
	}
	return nil
}

// Memory keeps the last written text.
type Memory struct {
	Text string
	Err  error
}

func (m *Memory) WriteText(s string) error {
	if m.Err != nil {
		return &Error{Err: m.Err}
	}
	m.Text = s
	return nil
}
