package host

import (
	"fmt"
	"io"
	"time"

	"github.com/cjriches/simulatron/device"
	"golang.org/x/term"
)

// Display polls a device.Display's character/colour snapshot at a
// fixed redraw interval and renders it to a terminal using ANSI escape
// sequences. It is a convenience front end, not part of the emulation
// core's correctness surface.
type Display struct {
	out  io.Writer
	stop chan struct{}
}

// NewDisplay starts redrawing dev to out every interval until Stop is
// called. If out is a terminal, term.GetSize is used once at startup
// to log a size mismatch warning (the grid is always fixed at
// device.Rows x device.Cols regardless of the real terminal size).
func NewDisplay(out io.Writer, dev *device.Display, interval time.Duration) *Display {
	if f, ok := out.(interface{ Fd() uintptr }); ok {
		if w, h, err := term.GetSize(int(f.Fd())); err == nil {
			if w < device.Cols || h < device.Rows {
				fmt.Fprintf(out, "host: terminal %dx%d is smaller than the %dx%d display grid\n",
					w, h, device.Cols, device.Rows)
			}
		}
	}

	d := &Display{out: out, stop: make(chan struct{})}
	go d.run(dev, interval)
	return d
}

func (d *Display) Stop() { close(d.stop) }

func (d *Display) run(dev *device.Display, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.render(dev.Snapshot())
		}
	}
}

// render redraws the whole grid. Colour escape codes are only emitted
// on a foreground/background change, since most frames touch a small
// fraction of the 2000 cells.
func (d *Display) render(cells [device.Cells]device.Cell) {
	fmt.Fprint(d.out, "\x1b[H")
	var lastFg, lastBg [3]byte
	first := true
	for row := 0; row < device.Rows; row++ {
		for col := 0; col < device.Cols; col++ {
			cell := cells[row*device.Cols+col]
			if first || cell.FgRGB != lastFg || cell.BgRGB != lastBg {
				fmt.Fprintf(d.out, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm",
					cell.FgRGB[0], cell.FgRGB[1], cell.FgRGB[2],
					cell.BgRGB[0], cell.BgRGB[1], cell.BgRGB[2])
				lastFg, lastBg = cell.FgRGB, cell.BgRGB
				first = false
			}
			ch := cell.Char
			if ch == 0 {
				ch = ' '
			}
			fmt.Fprintf(d.out, "%c", ch)
		}
		fmt.Fprint(d.out, "\x1b[0m\r\n")
		first = true
	}
}
