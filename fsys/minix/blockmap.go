package minix

import (
	"encoding/binary"
	"fmt"

	"github.com/luuk/minfs/fsys"
)

// MapBlock translates a file-relative logical block index into an
// absolute block number on the filesystem. A return of 0 denotes a
// sparse hole: a zero zone slot at any level of the direct, single
// indirect or double indirect tables, or an index beyond the
// addressable range. Read failures on indirect tables are errors, not
// holes.
func (f *FS) MapBlock(ino *Inode, logical uint32) (uint32, error) {
	logicalZone := logical / f.blocksPerZone
	blockInZone := logical % f.blocksPerZone
	p := f.ptrsPerBlock

	var zone uint32
	switch {
	case logicalZone < directZones:
		zone = ino.Zone[logicalZone]

	case logicalZone < directZones+p:
		if ino.Indirect == 0 {
			return 0, nil
		}
		if err := f.readZoneTable(ino.Indirect, f.ind1Buf); err != nil {
			return 0, fmt.Errorf("indirect zone %d: %w", ino.Indirect, err)
		}
		zone = tableSlot(f.ind1Buf, logicalZone-directZones)

	case logicalZone < directZones+p+p*p:
		if ino.TwoIndirect == 0 {
			return 0, nil
		}
		if err := f.readZoneTable(ino.TwoIndirect, f.ind1Buf); err != nil {
			return 0, fmt.Errorf("double indirect zone %d: %w", ino.TwoIndirect, err)
		}
		within := logicalZone - directZones - p
		second := tableSlot(f.ind1Buf, within/p)
		if second == 0 {
			return 0, nil
		}
		if err := f.readZoneTable(second, f.ind2Buf); err != nil {
			return 0, fmt.Errorf("indirect zone %d: %w", second, err)
		}
		zone = tableSlot(f.ind2Buf, within%p)

	default:
		// beyond the double-indirect range
		return 0, nil
	}

	if zone == 0 {
		return 0, nil
	}
	return zone*f.blocksPerZone + blockInZone, nil
}

// readZoneTable reads the first block of the given zone, which holds an
// array of little-endian zone numbers.
func (f *FS) readZoneTable(zone uint32, buf []byte) error {
	return f.readAt(buf, int64(zone)*f.zoneSize)
}

func tableSlot(buf []byte, i uint32) uint32 {
	return binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
}

// extents walks the inode's block map and returns the physical extents
// of its data, merging runs of contiguous blocks. Holes appear as gaps
// between extents.
func (f *FS) extents(ino *Inode) ([]fsys.Extent, error) {
	var exts []fsys.Extent
	blockSize := int64(f.sb.Blocksize)
	remaining := int64(ino.Size)

	var logical int64
	for blk := uint32(0); remaining > 0; blk++ {
		disk, err := f.MapBlock(ino, blk)
		if err != nil {
			return nil, err
		}

		length := blockSize
		if length > remaining {
			length = remaining
		}

		if disk != 0 {
			phys := int64(disk) * blockSize
			if n := len(exts); n > 0 &&
				exts[n-1].Logical+exts[n-1].Length == logical &&
				exts[n-1].Physical+exts[n-1].Length == phys {
				exts[n-1].Length += length
			} else {
				exts = append(exts, fsys.Extent{Logical: logical, Physical: phys, Length: length})
			}
		}

		logical += length
		remaining -= length
	}

	return exts, nil
}

// FileExtents implements fsys.ExtentMapper: it resolves path to a
// non-directory inode and returns its physical extents within the
// filesystem.
func (f *FS) FileExtents(path string) ([]fsys.Extent, error) {
	num, err := f.Resolve(path)
	if err != nil {
		return nil, err
	}
	ino, err := f.ReadInode(num)
	if err != nil {
		return nil, err
	}
	if ino.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", CanonicalPath(path))
	}
	return f.extents(&ino)
}

// FileReader returns a sparse-aware ReaderAt over the regular file at
// path; its Size is the file's size. Holes read as zero bytes; reads
// never go past the image blocks that actually back the file.
func (f *FS) FileReader(path string) (*fsys.ExtentReaderAt, error) {
	canon := CanonicalPath(path)
	num, err := f.Resolve(canon)
	if err != nil {
		return nil, err
	}
	ino, err := f.ReadInode(num)
	if err != nil {
		return nil, err
	}
	if !ino.IsRegular() {
		return nil, fmt.Errorf("%s: %w", canon, ErrNotRegular)
	}
	exts, err := f.extents(&ino)
	if err != nil {
		return nil, err
	}
	return fsys.NewExtentReaderAt(f.r, exts, int64(ino.Size)), nil
}

// readFileData reads up to maxSize bytes of the inode's data, with
// holes materialized as zeros. A maxSize of 0 means the whole file.
func (f *FS) readFileData(ino *Inode, maxSize int64) ([]byte, error) {
	size := int64(ino.Size)
	if maxSize > 0 && maxSize < size {
		size = maxSize
	}

	data := make([]byte, size)
	blockSize := int64(f.sb.Blocksize)

	for off := int64(0); off < size; off += blockSize {
		disk, err := f.MapBlock(ino, uint32(off/blockSize))
		if err != nil {
			return nil, err
		}
		if disk == 0 {
			continue // hole, left zero
		}
		n := blockSize
		if off+n > size {
			n = size - off
		}
		if err := f.readAt(data[off:off+n], int64(disk)*blockSize); err != nil {
			return nil, err
		}
	}

	return data, nil
}
