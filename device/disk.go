package device

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/cjriches/simulatron/interrupt"
)

// Disk status bits.
const (
	DiskConnected  byte = 1 << 0
	DiskFinished   byte = 1 << 1
	DiskSuccess    byte = 1 << 2
	DiskBadCommand byte = 1 << 3
)

// Disk commands.
const (
	CommandRead             byte = 1
	CommandWrite            byte = 2
	CommandContiguousRead   byte = 3
	CommandContiguousWrite  byte = 4
)

// BlockSize is the unit of transfer between the backing file and the
// bus-visible data window: one 4 KiB page.
const BlockSize = 4096

// Disk is one of the two disk controllers. It watches a single host
// directory for the file that makes it "connected", and on command
// transfers one BlockSize block between that file and the data buffer
// the bus exposes at its 0x2000/0x3000 window.
type Disk struct {
	mu   sync.Mutex
	dir  string
	irq  *interrupt.Controller
	irqN uint8
	data []byte // shared with the bus's data window, BlockSize long

	file       *os.File
	connected  bool
	status     byte
	blockAddr  uint32

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// NewDisk constructs a disk controller rooted at dir, sharing data as its
// bus-visible transfer buffer, raising irqN on completion/connection
// change. It starts watching dir immediately.
func NewDisk(dir string, data []byte, irq *interrupt.Controller, irqN uint8) *Disk {
	d := &Disk{
		dir:    dir,
		data:   data,
		irq:    irq,
		irqN:   irqN,
		stopCh: make(chan struct{}),
	}
	d.rescan()
	w, err := fsnotify.NewWatcher()
	if err == nil {
		if addErr := w.Add(dir); addErr == nil {
			d.watcher = w
			go d.watch()
		} else {
			w.Close()
		}
	} else {
		log.Printf("disk: could not watch %s: %v", dir, err)
	}
	return d
}

// Stop terminates the directory watcher. Any in-flight command still
// completes per §5's "cannot be cancelled" rule; Stop only ends the
// connection-change watch.
func (d *Disk) Stop() {
	close(d.stopCh)
	if d.watcher != nil {
		d.watcher.Close()
	}
}

func (d *Disk) watch() {
	for {
		select {
		case _, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.mu.Lock()
			was := d.connected
			d.rescanLocked()
			changed := was != d.connected
			d.mu.Unlock()
			if changed {
				d.irq.Raise(d.irqN)
			}
		case <-d.watcher.Errors:
		case <-d.stopCh:
			return
		}
	}
}

// singleFile returns the one file in dir, if exactly one exists.
func singleFile(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var found string
	count := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			found = filepath.Join(dir, e.Name())
			count++
		}
	}
	if count != 1 {
		return "", false
	}
	return found, true
}

func (d *Disk) rescan() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rescanLocked()
}

func (d *Disk) rescanLocked() {
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
	path, ok := singleFile(d.dir)
	if !ok {
		d.connected = false
		d.status = 0
		return
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		d.connected = false
		d.status = 0
		return
	}
	d.file = f
	d.connected = true
	d.status = DiskConnected
}

func (d *Disk) blocksAvailable() uint32 {
	if d.file == nil {
		return 0
	}
	info, err := d.file.Stat()
	if err != nil {
		return 0
	}
	return uint32(info.Size() / BlockSize)
}

// ReadRegister implements bus.RegisterDevice for offsets 0-4: status
// then the 4-byte, big-endian blocks-available count.
func (d *Disk) ReadRegister(offset uint32) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch offset {
	case 0:
		return d.status
	case 1, 2, 3, 4:
		nba := d.blocksAvailable()
		shift := uint(8 * (4 - offset))
		return byte(nba >> shift)
	default:
		return 0
	}
}

// WriteRegister implements bus.RegisterDevice for offsets 5-9: the
// 4-byte, big-endian block address, then the command byte.
func (d *Disk) WriteRegister(offset uint32, value byte) {
	d.mu.Lock()
	switch offset {
	case 5, 6, 7, 8:
		shift := uint(8 * (8 - offset))
		mask := ^(uint32(0xFF) << shift)
		d.blockAddr = (d.blockAddr & mask) | (uint32(value) << shift)
		d.mu.Unlock()
	case 9:
		cmd := value
		d.mu.Unlock()
		d.execute(cmd)
	default:
		d.mu.Unlock()
	}
}

// execute runs one disk command to completion and raises exactly one
// completion interrupt, per §5's cancellation rule.
func (d *Disk) execute(cmd byte) {
	d.mu.Lock()
	defer func() {
		d.mu.Unlock()
		d.irq.Raise(d.irqN)
	}()

	d.status &^= DiskSuccess | DiskBadCommand
	d.status ^= DiskFinished // F toggles on every completion, per §6

	switch cmd {
	case CommandRead, CommandContiguousRead:
		if !d.readBlock() {
			d.status |= DiskBadCommand
			return
		}
		d.status |= DiskSuccess
		if cmd == CommandContiguousRead {
			d.blockAddr++
		}
	case CommandWrite, CommandContiguousWrite:
		if !d.writeBlock() {
			d.status |= DiskBadCommand
			return
		}
		d.status |= DiskSuccess
		if cmd == CommandContiguousWrite {
			d.blockAddr++
		}
	default:
		d.status |= DiskBadCommand
	}
}

// readBlock and writeBlock assume d.mu is held.
func (d *Disk) readBlock() bool {
	if d.file == nil || d.blockAddr >= d.blocksAvailable() {
		return false
	}
	_, err := d.file.ReadAt(d.data[:BlockSize], int64(d.blockAddr)*BlockSize)
	return err == nil || err == io.EOF
}

func (d *Disk) writeBlock() bool {
	if d.file == nil || d.blockAddr >= d.blocksAvailable() {
		return false
	}
	_, err := d.file.WriteAt(d.data[:BlockSize], int64(d.blockAddr)*BlockSize)
	return err == nil
}
