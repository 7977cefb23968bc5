package minix

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test images are built by poking bytes into a buffer, one fixed
// geometry for all tests: 1024-byte blocks, one-block zones, 64 inodes.
//
//	block 0      boot block
//	block 1      superblock
//	block 2      inode bitmap
//	block 3      zone bitmap
//	blocks 4-7   inode table (64 inodes x 64 bytes)
//	block 8...   data zones
const (
	tBlockSize = 1024
	tNinodes   = 64
	tFirstData = 8
	tZones     = 600
)

type testImage struct {
	buf      []byte
	nextZone uint32
}

func newTestImage() *testImage {
	ti := &testImage{
		buf:      make([]byte, tZones*tBlockSize),
		nextZone: tFirstData,
	}

	sb := ti.buf[1024:]
	binary.LittleEndian.PutUint32(sb[0:4], tNinodes)
	binary.LittleEndian.PutUint16(sb[6:8], 1)  // i_blocks
	binary.LittleEndian.PutUint16(sb[8:10], 1) // z_blocks
	binary.LittleEndian.PutUint16(sb[10:12], tFirstData)
	binary.LittleEndian.PutUint16(sb[12:14], 0) // log_zone_size
	binary.LittleEndian.PutUint32(sb[16:20], 0x7FFFFFFF)
	binary.LittleEndian.PutUint32(sb[20:24], tZones)
	binary.LittleEndian.PutUint16(sb[24:26], Magic)
	binary.LittleEndian.PutUint16(sb[28:30], tBlockSize)
	sb[30] = 0
	return ti
}

// setInode writes inode n. zones fill the direct slots in order; the
// rest stay 0.
func (ti *testImage) setInode(n uint32, mode uint16, size uint32, zones ...uint32) {
	b := ti.inodeBytes(n)
	binary.LittleEndian.PutUint16(b[0:2], mode)
	binary.LittleEndian.PutUint16(b[2:4], 1) // links
	binary.LittleEndian.PutUint32(b[8:12], size)
	for i, z := range zones {
		binary.LittleEndian.PutUint32(b[24+i*4:28+i*4], z)
	}
}

func (ti *testImage) setIndirect(n, single, double uint32) {
	b := ti.inodeBytes(n)
	binary.LittleEndian.PutUint32(b[52:56], single)
	binary.LittleEndian.PutUint32(b[56:60], double)
}

func (ti *testImage) inodeBytes(n uint32) []byte {
	off := 4*tBlockSize + int(n-1)*inodeSize
	return ti.buf[off : off+inodeSize]
}

// allocZone reserves the next free data zone.
func (ti *testImage) allocZone() uint32 {
	z := ti.nextZone
	ti.nextZone++
	return z
}

func (ti *testImage) writeZone(z uint32, data []byte) {
	copy(ti.buf[int(z)*tBlockSize:], data)
}

// writeFile lays content into fresh zones and writes inode n, leaving a
// hole wherever holes names a block index.
func (ti *testImage) writeFile(n uint32, mode uint16, content []byte, holes ...int) {
	isHole := make(map[int]bool, len(holes))
	for _, h := range holes {
		isHole[h] = true
	}

	var zones []uint32
	for blk := 0; blk*tBlockSize < len(content); blk++ {
		if isHole[blk] {
			zones = append(zones, 0)
			continue
		}
		z := ti.allocZone()
		end := (blk + 1) * tBlockSize
		if end > len(content) {
			end = len(content)
		}
		ti.writeZone(z, content[blk*tBlockSize:end])
		zones = append(zones, z)
	}
	ti.setInode(n, mode, uint32(len(content)), zones...)
}

type dirEnt struct {
	inode uint32
	name  string
}

func dirBlock(entries ...dirEnt) []byte {
	b := make([]byte, tBlockSize)
	for i, e := range entries {
		slot := b[i*dirEntrySize:]
		binary.LittleEndian.PutUint32(slot[0:4], e.inode)
		copy(slot[4:4+nameLen], e.name)
	}
	return b
}

// writeDir lays the entries into a fresh zone and writes the directory
// inode n.
func (ti *testImage) writeDir(n uint32, entries ...dirEnt) {
	z := ti.allocZone()
	ti.writeZone(z, dirBlock(entries...))
	ti.setInode(n, ModeDir|0o755, uint32(len(entries)*dirEntrySize), z)
}

func (ti *testImage) open(t *testing.T) *FS {
	t.Helper()
	f, err := Open(bytes.NewReader(ti.buf))
	require.NoError(t, err)
	return f
}

// buildBasicFS returns an image with this tree:
//
//	/
//	  hello.txt   inode 2, "Hello, MINIX!\n"
//	  sub/        inode 3
//	    nested.txt  inode 5, 1500 bytes
//	  sparse      inode 4, 5000 bytes, hole at block 2
func buildBasicFS() *testImage {
	ti := newTestImage()

	ti.writeDir(1,
		dirEnt{1, "."},
		dirEnt{1, ".."},
		dirEnt{2, "hello.txt"},
		dirEnt{3, "sub"},
		dirEnt{4, "sparse"},
	)
	// the builder allocates zones in call order; the root got the first
	ti.writeFile(2, ModeRegular|0o644, []byte("Hello, MINIX!\n"))
	ti.writeDir(3,
		dirEnt{3, "."},
		dirEnt{1, ".."},
		dirEnt{5, "nested.txt"},
	)
	ti.writeFile(4, ModeRegular|0o600, sparseContent(), 2)
	ti.writeFile(5, ModeRegular|0o644, patternBytes(1500, 7))
	return ti
}

// sparseContent is 5000 bytes whose block 2 is all zeros, so it can live
// in a file with a hole there.
func sparseContent() []byte {
	b := patternBytes(5000, 3)
	for i := 2 * tBlockSize; i < 3*tBlockSize; i++ {
		b[i] = 0
	}
	return b
}

func patternBytes(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)*seed + seed
	}
	return b
}
