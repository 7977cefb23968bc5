// Package minix implements read-only MINIX version-3 filesystem support.
//
// An FS decodes a filesystem image through an io.ReaderAt positioned at
// the filesystem start (partition selection happens before Open, see
// fsys/part). The zero block of the image is the boot block and never
// holds file data, so a zone number of 0 anywhere in an inode's zone
// tables denotes a sparse hole.
package minix

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/luuk/minfs/fsys"
)

const (
	superblockOffset = 1024
	superblockSize   = 32

	// Magic is the MINIX v3 superblock magic number.
	Magic = 0x4D5A

	directZones  = 7
	inodeSize    = 64
	dirEntrySize = 64
	nameLen      = 60

	// RootInode is the inode number of the root directory. Inode
	// numbering is 1-based; 0 marks an absent entry.
	RootInode = 1
)

// File type and permission bits of Inode.Mode.
const (
	ModeTypeMask = 0o170000
	ModeDir      = 0o040000
	ModeRegular  = 0o100000
)

var (
	// ErrIO covers seek failures, short reads and any other I/O error
	// against the image.
	ErrIO = errors.New("image read failed")

	// ErrBadMagic indicates a superblock whose magic is not Magic.
	ErrBadMagic = errors.New("bad filesystem magic")

	// ErrBadInode indicates an inode number of 0 or beyond ninodes.
	ErrBadInode = errors.New("inode number out of range")

	// ErrNotFound indicates a path component with no matching entry.
	ErrNotFound = errors.New("no such file or directory")

	// ErrNotDir indicates path traversal through a non-directory.
	ErrNotDir = errors.New("not a directory")

	// ErrNotRegular indicates an extraction target that is not a
	// regular file.
	ErrNotRegular = errors.New("not a regular file")
)

// Superblock holds the decoded on-disk superblock.
type Superblock struct {
	Ninodes     uint32 // inode count, numbering starts at 1
	IBlocks     int16  // blocks used by the inode bitmap
	ZBlocks     int16  // blocks used by the zone bitmap
	Firstdata   uint16 // first data zone
	LogZoneSize int16  // log2 of blocks per zone
	MaxFile     uint32 // advisory maximum file size
	Zones       uint32 // zones on disk
	Magic       uint16
	Blocksize   uint16 // block size in bytes
	Subversion  uint8
}

func decodeSuperblock(b []byte) Superblock {
	return Superblock{
		Ninodes:     binary.LittleEndian.Uint32(b[0:4]),
		IBlocks:     int16(binary.LittleEndian.Uint16(b[6:8])),
		ZBlocks:     int16(binary.LittleEndian.Uint16(b[8:10])),
		Firstdata:   binary.LittleEndian.Uint16(b[10:12]),
		LogZoneSize: int16(binary.LittleEndian.Uint16(b[12:14])),
		MaxFile:     binary.LittleEndian.Uint32(b[16:20]),
		Zones:       binary.LittleEndian.Uint32(b[20:24]),
		Magic:       binary.LittleEndian.Uint16(b[24:26]),
		Blocksize:   binary.LittleEndian.Uint16(b[28:30]),
		Subversion:  b[30],
	}
}

// Info returns a human-readable superblock dump, the layout the tools
// print under -v.
func (sb Superblock) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Superblock contents:\n")
	fmt.Fprintf(&b, "  ninodes       %d\n", sb.Ninodes)
	fmt.Fprintf(&b, "  i_blocks      %d\n", sb.IBlocks)
	fmt.Fprintf(&b, "  z_blocks      %d\n", sb.ZBlocks)
	fmt.Fprintf(&b, "  firstdata     %d\n", sb.Firstdata)
	fmt.Fprintf(&b, "  log_zone_size %d\n", sb.LogZoneSize)
	fmt.Fprintf(&b, "  max_file      %d\n", sb.MaxFile)
	fmt.Fprintf(&b, "  zones         %d\n", sb.Zones)
	fmt.Fprintf(&b, "  magic         0x%04x\n", sb.Magic)
	fmt.Fprintf(&b, "  blocksize     %d\n", sb.Blocksize)
	fmt.Fprintf(&b, "  subversion    %d\n", sb.Subversion)
	return b.String()
}

// FS is an opened MINIX v3 filesystem. It is not safe for concurrent
// use: the directory and indirect-table scratch buffers are shared
// across calls.
type FS struct {
	r io.ReaderAt

	sb            Superblock
	blocksPerZone uint32
	zoneSize      int64 // blocksize * blocksPerZone
	ptrsPerBlock  uint32

	// scratch buffers sized from blocksize, reused across calls
	blockBuf []byte
	ind1Buf  []byte
	ind2Buf  []byte
}

// Open decodes and validates the superblock at byte 1024 of r and
// returns a filesystem session. r must be positioned at the filesystem
// start; use fsys/part.Locate to find it on a partitioned disk.
func Open(r io.ReaderAt) (*FS, error) {
	buf := make([]byte, superblockSize)
	if _, err := r.ReadAt(buf, superblockOffset); err != nil {
		return nil, fmt.Errorf("reading superblock: %w: %v", ErrIO, err)
	}

	sb := decodeSuperblock(buf)
	if sb.Magic != Magic {
		return nil, fmt.Errorf("%w: 0x%04x", ErrBadMagic, sb.Magic)
	}
	if sb.Blocksize == 0 || sb.Blocksize%dirEntrySize != 0 {
		return nil, fmt.Errorf("unsupported blocksize %d: not a positive multiple of %d", sb.Blocksize, dirEntrySize)
	}
	if sb.LogZoneSize < 0 {
		return nil, fmt.Errorf("unsupported log_zone_size %d", sb.LogZoneSize)
	}

	f := &FS{
		r:             r,
		sb:            sb,
		blocksPerZone: 1 << uint(sb.LogZoneSize),
		ptrsPerBlock:  uint32(sb.Blocksize) / 4,
	}
	f.zoneSize = int64(sb.Blocksize) * int64(f.blocksPerZone)
	f.blockBuf = make([]byte, sb.Blocksize)
	f.ind1Buf = make([]byte, sb.Blocksize)
	f.ind2Buf = make([]byte, sb.Blocksize)
	return f, nil
}

// Superblock returns the decoded superblock.
func (f *FS) Superblock() Superblock { return f.sb }

// Blocksize returns the block size in bytes.
func (f *FS) Blocksize() uint32 { return uint32(f.sb.Blocksize) }

// Reader returns the underlying filesystem-relative reader.
func (f *FS) Reader() io.ReaderAt { return f.r }

// Type returns the filesystem type name.
func (f *FS) Type() string { return "MINIX3" }

// Close releases the session. The image handle is owned by the caller
// and stays open.
func (f *FS) Close() error { return nil }

// readAt reads exactly len(p) bytes at the given offset from the
// filesystem start. Negative offsets, short reads and I/O errors all
// surface as ErrIO.
func (f *FS) readAt(p []byte, off int64) error {
	if off < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrIO, off)
	}
	n, err := f.r.ReadAt(p, off)
	if err != nil && !(err == io.EOF && n == len(p)) {
		return fmt.Errorf("%w: %d bytes at offset %d: %v", ErrIO, len(p), off, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: short read at offset %d: %d of %d bytes", ErrIO, off, n, len(p))
	}
	return nil
}

var _ fsys.FS = (*FS)(nil)
var _ fsys.ExtentMapper = (*FS)(nil)
