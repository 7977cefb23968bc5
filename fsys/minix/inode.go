package minix

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// Inode is the decoded 64-byte on-disk inode record.
type Inode struct {
	Mode  uint16 // file type and permission bits
	Links uint16
	Uid   uint16
	Gid   uint16
	Size  uint32 // logical file length in bytes
	Atime int32
	Mtime int32
	Ctime int32

	Zone        [directZones]uint32 // direct zones; 0 is a hole
	Indirect    uint32              // single indirect zone
	TwoIndirect uint32              // double indirect zone
}

func decodeInode(b []byte) Inode {
	ino := Inode{
		Mode:  binary.LittleEndian.Uint16(b[0:2]),
		Links: binary.LittleEndian.Uint16(b[2:4]),
		Uid:   binary.LittleEndian.Uint16(b[4:6]),
		Gid:   binary.LittleEndian.Uint16(b[6:8]),
		Size:  binary.LittleEndian.Uint32(b[8:12]),
		Atime: int32(binary.LittleEndian.Uint32(b[12:16])),
		Mtime: int32(binary.LittleEndian.Uint32(b[16:20])),
		Ctime: int32(binary.LittleEndian.Uint32(b[20:24])),
	}
	for i := 0; i < directZones; i++ {
		ino.Zone[i] = binary.LittleEndian.Uint32(b[24+i*4 : 28+i*4])
	}
	ino.Indirect = binary.LittleEndian.Uint32(b[52:56])
	ino.TwoIndirect = binary.LittleEndian.Uint32(b[56:60])
	return ino
}

// IsDir reports whether the inode is a directory.
func (ino Inode) IsDir() bool {
	return ino.Mode&ModeTypeMask == ModeDir
}

// IsRegular reports whether the inode is a regular file.
func (ino Inode) IsRegular() bool {
	return ino.Mode&ModeTypeMask == ModeRegular
}

// ReadInode reads inode n. Numbering is 1-based; n must be in
// [1, ninodes].
func (f *FS) ReadInode(n uint32) (Inode, error) {
	if n == 0 || n > f.sb.Ninodes {
		return Inode{}, fmt.Errorf("%w: %d", ErrBadInode, n)
	}

	// The inode table follows the boot block, superblock and the two
	// bitmap regions.
	tableStart := int64(2+int32(f.sb.IBlocks)+int32(f.sb.ZBlocks)) * int64(f.sb.Blocksize)
	offset := tableStart + int64(n-1)*inodeSize

	buf := make([]byte, inodeSize)
	if err := f.readAt(buf, offset); err != nil {
		return Inode{}, fmt.Errorf("inode %d: %w", n, err)
	}
	return decodeInode(buf), nil
}

// ModeString renders mode as the 10-character ls-style string: a type
// character ('d' for directories, '-' otherwise) followed by rwx groups
// for owner, group and other.
func ModeString(mode uint16) string {
	var b [10]byte
	b[0] = '-'
	if mode&ModeTypeMask == ModeDir {
		b[0] = 'd'
	}
	bits := [9]struct {
		mask uint16
		c    byte
	}{
		{0o400, 'r'}, {0o200, 'w'}, {0o100, 'x'},
		{0o040, 'r'}, {0o020, 'w'}, {0o010, 'x'},
		{0o004, 'r'}, {0o002, 'w'}, {0o001, 'x'},
	}
	for i, bit := range bits {
		if mode&bit.mask != 0 {
			b[i+1] = bit.c
		} else {
			b[i+1] = '-'
		}
	}
	return string(b[:])
}

// Info returns a human-readable inode dump, the layout the tools print
// under -v.
func (ino Inode) Info(num uint32) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File inode %d:\n", num)
	fmt.Fprintf(&b, "  mode   0x%04x (%s)\n", ino.Mode, ModeString(ino.Mode))
	fmt.Fprintf(&b, "  links  %d\n", ino.Links)
	fmt.Fprintf(&b, "  uid    %d\n", ino.Uid)
	fmt.Fprintf(&b, "  gid    %d\n", ino.Gid)
	fmt.Fprintf(&b, "  size   %d\n", ino.Size)
	fmt.Fprintf(&b, "  atime  %d --- %s\n", ino.Atime, time.Unix(int64(ino.Atime), 0).UTC().Format(time.ANSIC))
	fmt.Fprintf(&b, "  mtime  %d --- %s\n", ino.Mtime, time.Unix(int64(ino.Mtime), 0).UTC().Format(time.ANSIC))
	fmt.Fprintf(&b, "  ctime  %d --- %s\n", ino.Ctime, time.Unix(int64(ino.Ctime), 0).UTC().Format(time.ANSIC))
	fmt.Fprintf(&b, "  Direct zones:\n")
	for i, z := range ino.Zone {
		fmt.Fprintf(&b, "    zone[%d] = %d\n", i, z)
	}
	fmt.Fprintf(&b, "  indirect     %d\n", ino.Indirect)
	fmt.Fprintf(&b, "  two_indirect %d\n", ino.TwoIndirect)
	return b.String()
}
