// Package fsys provides the read-only building blocks shared by the
// minfs tools: a filesystem interface over disk images and a sparse-aware
// ReaderAt that maps logical file offsets onto physical image offsets.
package fsys

import (
	"fmt"
	"io"
	"io/fs"
	"sort"
)

// Extent maps a run of logical file offsets to physical image offsets.
type Extent struct {
	Logical  int64 // Offset within the file
	Physical int64 // Offset within the image
	Length   int64 // Length of this extent
}

// FS is a read-only filesystem opened from a disk image.
// It embeds io/fs.FS and adds image-specific functionality.
type FS interface {
	fs.FS
	fs.ReadDirFS
	fs.StatFS

	// Type returns the filesystem type name (e.g., "MINIX3")
	Type() string

	// Close releases any resources held by the filesystem
	Close() error
}

// ExtentMapper is an optional interface for filesystems that can report
// the physical location of file data within the image. Gaps between
// extents are sparse holes and read as zeros.
type ExtentMapper interface {
	// FileExtents returns the extents mapping a file's logical offsets
	// to physical offsets in the image. Returns an error if the path
	// doesn't exist or is a directory.
	FileExtents(path string) ([]Extent, error)
}

// FileInfo extends fs.FileInfo with the on-disk inode number.
type FileInfo interface {
	fs.FileInfo

	// Inode returns the inode number (0 for filesystems without inodes)
	Inode() uint64
}

// ExtentReaderAt exposes a file's data through its extent list without
// loading the file into memory. Offsets not covered by any extent read
// as zero bytes.
type ExtentReaderAt struct {
	r       io.ReaderAt
	extents []Extent
	size    int64
}

// NewExtentReaderAt creates an ExtentReaderAt from a base reader and
// extents. If the base reader is itself an ExtentReaderAt the mappings
// are composed, so reads always go to the innermost reader in one hop.
func NewExtentReaderAt(r io.ReaderAt, extents []Extent, size int64) *ExtentReaderAt {
	sorted := make([]Extent, len(extents))
	copy(sorted, extents)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Logical < sorted[j].Logical
	})

	if inner, ok := r.(*ExtentReaderAt); ok {
		composed := ComposeExtents(sorted, inner.extents)
		return &ExtentReaderAt{r: inner.r, extents: composed, size: size}
	}

	return &ExtentReaderAt{r: r, extents: sorted, size: size}
}

// ComposeExtents takes outer extents (which map logical offsets into an
// inner coordinate space) and inner extents (which map that space to
// actual physical offsets) and returns extents mapping directly from
// outer logical to physical. Portions of an outer extent that fall into
// a gap of the inner mapping stay unmapped, i.e. remain sparse.
func ComposeExtents(outer, inner []Extent) []Extent {
	var composed []Extent

	for _, o := range outer {
		remaining := o.Length
		innerLogical := o.Physical
		outerLogical := o.Logical

		for remaining > 0 {
			found := false
			for _, i := range inner {
				iEnd := i.Logical + i.Length
				if innerLogical < i.Logical || innerLogical >= iEnd {
					continue
				}

				offsetInInner := innerLogical - i.Logical
				useLength := i.Length - offsetInInner
				if useLength > remaining {
					useLength = remaining
				}

				composed = append(composed, Extent{
					Logical:  outerLogical,
					Physical: i.Physical + offsetInInner,
					Length:   useLength,
				})

				outerLogical += useLength
				innerLogical += useLength
				remaining -= useLength
				found = true
				break
			}

			if !found {
				// innerLogical falls into a gap; skip forward to the
				// next inner extent, leaving the gap sparse.
				nextStart := int64(-1)
				for _, i := range inner {
					if i.Logical > innerLogical && (nextStart < 0 || i.Logical < nextStart) {
						nextStart = i.Logical
					}
				}
				if nextStart < 0 {
					break
				}
				gap := nextStart - innerLogical
				if gap > remaining {
					gap = remaining
				}
				outerLogical += gap
				innerLogical += gap
				remaining -= gap
			}
		}
	}

	return composed
}

// Size returns the logical size of the file
func (e *ExtentReaderAt) Size() int64 {
	return e.size
}

// Extents returns the (flattened) extent list.
func (e *ExtentReaderAt) Extents() []Extent {
	return e.extents
}

// ReadAt implements io.ReaderAt. Offsets covered by no extent are
// sparse and fill the buffer with zeros.
func (e *ExtentReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= e.size {
		return 0, io.EOF
	}

	if off+int64(len(p)) > e.size {
		p = p[:e.size-off]
	}

	totalRead := 0
	remaining := len(p)

	for remaining > 0 && off < e.size {
		ext, found := e.findExtent(off)
		if !found {
			gapEnd := e.nextExtentStart(off)
			if gapEnd > e.size {
				gapEnd = e.size
			}
			zeroLen := int(gapEnd - off)
			if zeroLen > remaining {
				zeroLen = remaining
			}
			for i := 0; i < zeroLen; i++ {
				p[totalRead+i] = 0
			}
			totalRead += zeroLen
			remaining -= zeroLen
			off += int64(zeroLen)
			continue
		}

		extentOffset := off - ext.Logical
		toRead := int(ext.Length - extentOffset)
		if toRead > remaining {
			toRead = remaining
		}

		nr, err := e.r.ReadAt(p[totalRead:totalRead+toRead], ext.Physical+extentOffset)
		totalRead += nr
		remaining -= nr
		off += int64(nr)

		if err != nil && err != io.EOF {
			return totalRead, err
		}
		if nr < toRead {
			return totalRead, io.EOF
		}
	}

	if totalRead == 0 && off >= e.size {
		return 0, io.EOF
	}

	return totalRead, nil
}

// findExtent finds the extent containing the given logical offset
func (e *ExtentReaderAt) findExtent(off int64) (Extent, bool) {
	for _, ext := range e.extents {
		if off >= ext.Logical && off < ext.Logical+ext.Length {
			return ext, true
		}
	}
	return Extent{}, false
}

// nextExtentStart returns the start of the next extent after the given offset
func (e *ExtentReaderAt) nextExtentStart(off int64) int64 {
	for _, ext := range e.extents {
		if ext.Logical > off {
			return ext.Logical
		}
	}
	return e.size
}
