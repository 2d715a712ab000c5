package device

import "sync"

// Display dimensions: a 25x80 character grid.
const (
	Rows    = 25
	Cols    = 80
	Cells   = Rows * Cols
	charsOffset = 0
	fgOffset    = Cells
	bgOffset    = 2 * Cells
)

// Display is the memory-mapped display register file: three parallel,
// write-only byte arrays (characters, foreground colour, background
// colour), one entry per of the 2000 cells. It never reads back to the
// bus; rendering is the host front-end's job, done by polling Snapshot.
type Display struct {
	mu    sync.Mutex
	chars [Cells]byte
	fg    [Cells]byte
	bg    [Cells]byte
}

func NewDisplay() *Display {
	return &Display{}
}

// WriteRegister implements bus.RegisterDevice over the combined
// 6000-byte write-only window (chars, then fg, then bg).
func (d *Display) WriteRegister(offset uint32, value byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case offset < fgOffset:
		d.chars[offset-charsOffset] = value
	case offset < bgOffset:
		d.fg[offset-fgOffset] = value
	default:
		d.bg[offset-bgOffset] = value
	}
}

// ReadRegister is unused: the display register file is write-only to
// the bus. Present only to satisfy bus.RegisterDevice.
func (d *Display) ReadRegister(uint32) byte { return 0 }

// Cell is one rendered grid position, decoded for a host front-end.
type Cell struct {
	Char  byte
	FgRGB [3]byte
	BgRGB [3]byte
}

// twoBitChannel maps a 2-bit colour channel value to {0, 85, 170, 255}.
func twoBitChannel(v byte) byte {
	switch v {
	case 0:
		return 0
	case 1:
		return 85
	case 2:
		return 170
	default:
		return 255
	}
}

func decodeColour(b byte) [3]byte {
	r := (b >> 4) & 0x3
	g := (b >> 2) & 0x3
	bch := b & 0x3
	return [3]byte{twoBitChannel(r), twoBitChannel(g), twoBitChannel(bch)}
}

// Snapshot returns a copy of the full grid, decoded for rendering.
// Character i maps to row i/Cols, column i%Cols.
func (d *Display) Snapshot() [Cells]Cell {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out [Cells]Cell
	for i := 0; i < Cells; i++ {
		out[i] = Cell{
			Char:  d.chars[i],
			FgRGB: decodeColour(d.fg[i]),
			BgRGB: decodeColour(d.bg[i]),
		}
	}
	return out
}
