package device

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cjriches/simulatron/interrupt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBlockAddr(d *Disk, addr uint32) {
	d.WriteRegister(5, byte(addr>>24))
	d.WriteRegister(6, byte(addr>>16))
	d.WriteRegister(7, byte(addr>>8))
	d.WriteRegister(8, byte(addr))
}

func TestDiskReadCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")
	contents := make([]byte, BlockSize*2)
	contents[0] = 0xAB
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	irq := interrupt.New()
	irq.SetIMR(1 << interrupt.DiskA)
	data := make([]byte, BlockSize)
	d := NewDisk(dir, data, irq, interrupt.DiskA)
	defer d.Stop()

	assert.Equal(t, byte(DiskConnected), d.ReadRegister(0))

	writeBlockAddr(d, 0)
	d.WriteRegister(9, CommandRead)

	status := d.ReadRegister(0)
	assert.NotEqual(t, byte(0), status&DiskFinished)
	assert.NotEqual(t, byte(0), status&DiskSuccess)
	assert.Equal(t, byte(0xAB), data[0])

	n, ok := irq.Service()
	assert.True(t, ok)
	assert.Equal(t, interrupt.DiskA, n)
}

func TestDiskBadCommandBeyondBlocksAvailable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(path, make([]byte, BlockSize), 0o644))

	irq := interrupt.New()
	data := make([]byte, BlockSize)
	d := NewDisk(dir, data, irq, interrupt.DiskA)
	defer d.Stop()

	writeBlockAddr(d, 5) // out of range: only 1 block available
	d.WriteRegister(9, CommandRead)

	assert.NotEqual(t, byte(0), d.ReadRegister(0)&DiskBadCommand)
}

func TestDiskContiguousReadIncrementsAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(path, make([]byte, BlockSize*2), 0o644))

	irq := interrupt.New()
	data := make([]byte, BlockSize)
	d := NewDisk(dir, data, irq, interrupt.DiskA)
	defer d.Stop()

	writeBlockAddr(d, 0)
	d.WriteRegister(9, CommandContiguousRead)
	assert.Equal(t, uint32(1), d.blockAddr)
}

func TestDiskConnectionChangeRaisesInterrupt(t *testing.T) {
	dir := t.TempDir()
	irq := interrupt.New()
	irq.SetIMR(1 << interrupt.DiskB)
	data := make([]byte, BlockSize)
	d := NewDisk(dir, data, irq, interrupt.DiskB)
	defer d.Stop()

	assert.Equal(t, byte(0), d.ReadRegister(0)&DiskConnected)

	path := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(path, make([]byte, BlockSize), 0o644))

	require.Eventually(t, func() bool {
		_, ok := irq.Service()
		return ok
	}, time.Second, 5*time.Millisecond)
}
