// Package part parses DOS-style partition tables and locates a MINIX
// filesystem on a partitioned disk image, descending through at most one
// level of sub-partitioning.
package part

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// SectorSize is the fixed sector size of DOS partitioning.
	SectorSize = 512

	// TypeMinix is the partition type byte of a MINIX partition.
	TypeMinix = 0x81

	tableOffset = 0x1BE
)

var (
	// ErrBadMagic indicates a sector that should hold a partition table
	// but lacks the 0x55AA boot signature.
	ErrBadMagic = errors.New("partition table with bad magic")

	// ErrBadNumber indicates a partition index outside 0..3.
	ErrBadNumber = errors.New("partition number out of range (0-3)")

	// ErrNotMinix indicates a selected partition whose type byte is not
	// TypeMinix.
	ErrNotMinix = errors.New("not a MINIX partition")
)

// Entry is one 16-byte slot of a DOS partition table. The CHS fields are
// decoded but play no part in locating; lFirst is always a
// disk-absolute LBA sector number, including in sub-partition tables.
type Entry struct {
	Bootind  byte
	StartCHS [3]byte
	Type     byte
	EndCHS   [3]byte
	LFirst   uint32 // first sector, LBA, disk-absolute
	Sectors  uint32 // size in sectors
}

// StartOffset returns the partition's starting byte offset on the disk.
func (e Entry) StartOffset() int64 {
	return int64(e.LFirst) * SectorSize
}

// SizeBytes returns the partition size in bytes.
func (e Entry) SizeBytes() int64 {
	return int64(e.Sectors) * SectorSize
}

// Table holds the four entries of one partition table sector.
type Table struct {
	Entries [4]Entry
}

// ReadTable reads and validates the partition table in the sector at the
// given byte offset. The sector must carry the 0x55AA signature at bytes
// 510 and 511; otherwise ErrBadMagic is returned naming the observed
// bytes.
func ReadTable(r io.ReaderAt, offset int64) (*Table, error) {
	sector := make([]byte, SectorSize)
	if _, err := r.ReadAt(sector, offset); err != nil {
		return nil, fmt.Errorf("reading partition table at offset %d: %w", offset, err)
	}

	if sector[510] != 0x55 || sector[511] != 0xAA {
		return nil, fmt.Errorf("%w: 0x%02x%02x", ErrBadMagic, sector[511], sector[510])
	}

	var t Table
	for i := range t.Entries {
		raw := sector[tableOffset+i*16 : tableOffset+(i+1)*16]
		e := &t.Entries[i]
		e.Bootind = raw[0]
		copy(e.StartCHS[:], raw[1:4])
		e.Type = raw[4]
		copy(e.EndCHS[:], raw[5:8])
		e.LFirst = binary.LittleEndian.Uint32(raw[8:12])
		e.Sectors = binary.LittleEndian.Uint32(raw[12:16])
	}
	return &t, nil
}

// Minix returns the table entry at index n, which must name a MINIX
// partition.
func (t *Table) Minix(n int) (Entry, error) {
	if n < 0 || n > 3 {
		return Entry{}, fmt.Errorf("%w: %d", ErrBadNumber, n)
	}
	e := t.Entries[n]
	if e.Type != TypeMinix {
		return Entry{}, fmt.Errorf("partition %d is type 0x%02x, %w (0x%02x)", n, e.Type, ErrNotMinix, TypeMinix)
	}
	return e, nil
}

// Locate resolves the byte offset of the filesystem start within the
// image. primary and sub select a partition and sub-partition; pass -1
// for either to skip that level. With primary absent the image is taken
// to be a bare filesystem starting at offset 0.
func Locate(r io.ReaderAt, primary, sub int) (int64, error) {
	if primary < 0 {
		return 0, nil
	}

	t, err := ReadTable(r, 0)
	if err != nil {
		return 0, err
	}
	e, err := t.Minix(primary)
	if err != nil {
		return 0, err
	}
	base := e.StartOffset()

	if sub < 0 {
		return base, nil
	}

	// The sub-partition table lives in the first sector of the primary
	// partition; its lFirst values are still disk-absolute.
	st, err := ReadTable(r, base)
	if err != nil {
		return 0, err
	}
	se, err := st.Minix(sub)
	if err != nil {
		return 0, err
	}
	return se.StartOffset(), nil
}

// Info returns a human-readable rendering of the table, one line per
// slot, in the layout the tools print under -v.
func (t *Table) Info() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-4s %-10s %12s %12s\n", "SLOT", "TYPE", "FIRST", "SECTORS"))
	for i, e := range t.Entries {
		boot := ""
		if e.Bootind == 0x80 {
			boot = " (bootable)"
		}
		sb.WriteString(fmt.Sprintf("%-4d %-10s %12d %12d%s\n",
			i, TypeString(e.Type), e.LFirst, e.Sectors, boot))
	}
	return sb.String()
}

// TypeString returns a human-readable partition type name.
func TypeString(t byte) string {
	switch t {
	case 0x00:
		return "empty"
	case 0x01:
		return "FAT12"
	case 0x04, 0x06, 0x0E:
		return "FAT16"
	case 0x0B, 0x0C:
		return "FAT32"
	case 0x05, 0x0F:
		return "Extended"
	case TypeMinix:
		return "MINIX"
	case 0x82:
		return "Linux swap"
	case 0x83:
		return "Linux"
	default:
		return fmt.Sprintf("0x%02X", t)
	}
}
