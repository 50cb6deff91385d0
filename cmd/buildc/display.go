package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/buildtool-accel/buildc/internal/render"
)

// terminalDisplay draws render.Frame values to the real terminal, clearing
// and repositioning with ANSI escapes rather than a full-screen curses
// library — the same "stdin in raw mode, stdout plain ANSI" split the
// catherd attach client uses for its PTY passthrough.
type terminalDisplay struct {
	fd    int
	dumb  bool
	lines int // how many lines the previous Draw left on screen, for Clear
}

// newTerminalDisplay puts stdin into raw mode (skipped for a dumb terminal,
// spec §4.5) and returns the Display plus a restore func the caller must
// defer.
func newTerminalDisplay(dumb bool) (*terminalDisplay, func()) {
	d := &terminalDisplay{fd: int(os.Stdin.Fd()), dumb: dumb}
	if dumb {
		return d, func() {}
	}
	oldState, err := term.MakeRaw(d.fd)
	if err != nil {
		d.dumb = true
		return d, func() {}
	}
	return d, func() { term.Restore(d.fd, oldState) }
}

func (d *terminalDisplay) Clear() {
	if d.dumb || d.lines == 0 {
		return
	}
	fmt.Printf("\x1b[%dA\x1b[J", d.lines)
	d.lines = 0
}

func (d *terminalDisplay) Draw(f render.Frame) {
	if d.dumb {
		return
	}
	d.Clear()
	for _, line := range f.Lines {
		fmt.Print(line, "\r\n")
	}
	d.lines = len(f.Lines)
}

func (d *terminalDisplay) Size() (rows, cols int) {
	cols, rows, err := term.GetSize(d.fd)
	if err != nil {
		return 24, 80
	}
	return rows, cols
}
