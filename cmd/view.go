package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"

	"nwszones/internal/config"
	"nwszones/internal/render"
	"nwszones/internal/types"
)

// view draws the dissolved regions. On a terminal it lets the user step
// through the regions with the arrow keys until Enter, Esc or Ctrl-C;
// otherwise it prints the plot once and returns.
func view(c *types.Collection, cfg config.Config) error {
	inFd, outFd := int(os.Stdin.Fd()), int(os.Stdout.Fd())
	width, height := plotSize(cfg, len(c.Records), func() (int, int, error) {
		if !term.IsTerminal(outFd) {
			return 0, 0, fmt.Errorf("stdout is not a terminal")
		}
		return term.GetSize(outFd)
	})
	cv := render.Plot(c, cfg.GroupByField, width, height)

	if !term.IsTerminal(inFd) || len(cv.Groups) == 0 {
		printPlot(os.Stdout, cv, -1, false, "\n")
		return nil
	}
	return interactiveView(inFd, cv)
}

// plotSize picks the canvas size, leaving room below the plot for the
// legend and the key help line.
func plotSize(cfg config.Config, groups int, size func() (int, int, error)) (int, int) {
	w, h, err := size()
	if err != nil || w < 1 || h < 1 {
		return cfg.PlotWidth, cfg.PlotHeight
	}
	h -= groups + 2
	if h < 5 {
		h = 5
	}
	return w, h
}

func printPlot(w io.Writer, cv render.Canvas, highlight int, color bool, eol string) {
	var sb strings.Builder
	for _, l := range cv.Lines(highlight, color) {
		sb.WriteString(l)
		sb.WriteString(eol)
	}
	for _, l := range cv.Legend(highlight) {
		sb.WriteString(l)
		sb.WriteString(eol)
	}
	fmt.Fprint(w, sb.String())
}

type key int

const (
	keyNone key = iota
	keyUp
	keyDown
	keyQuit
)

// readKey decodes one key press from a raw-mode terminal. Windows consoles
// send 0 or 224 followed by a scan code; everything else sends ANSI escapes.
func readKey(r *bufio.Reader) (key, error) {
	b1, err := r.ReadByte()
	if err != nil {
		return keyQuit, err
	}
	if b1 == 0 || b1 == 224 {
		b2, _ := r.ReadByte()
		switch b2 {
		case 72:
			return keyUp, nil
		case 80:
			return keyDown, nil
		}
		return keyNone, nil
	}

	switch b1 {
	case 27: // ESC or ANSI sequence
		if r.Buffered() == 0 {
			return keyQuit, nil
		}
		b2, _ := r.ReadByte()
		if b2 != '[' || r.Buffered() == 0 {
			return keyNone, nil
		}
		b3, _ := r.ReadByte()
		switch b3 {
		case 'A':
			return keyUp, nil
		case 'B':
			return keyDown, nil
		}
	case '\r', '\n', 3, 'q':
		return keyQuit, nil
	case 'k':
		return keyUp, nil
	case 'j':
		return keyDown, nil
	}
	return keyNone, nil
}

func interactiveView(fd int, cv render.Canvas) error {
	if runtime.GOOS == "windows" {
		enableVT()
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		printPlot(os.Stdout, cv, -1, false, "\n")
		return nil
	}
	defer term.Restore(fd, oldState)

	reader := bufio.NewReader(os.Stdin)
	selected := 0

	redraw := func() {
		fmt.Print("\033[H\033[2J")
		printPlot(os.Stdout, cv, selected, true, "\r\n")
		fmt.Print("(↑/↓ to highlight a region, Enter or Esc to continue)\r\n")
	}
	redraw()

	for {
		k, err := readKey(reader)
		if err != nil {
			return nil
		}
		switch k {
		case keyUp:
			selected = (selected - 1 + len(cv.Groups)) % len(cv.Groups)
			redraw()
		case keyDown:
			selected = (selected + 1) % len(cv.Groups)
			redraw()
		case keyQuit:
			fmt.Print("\r\n")
			return nil
		}
	}
}
