package minix

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// DirEntry is one decoded 64-byte directory slot.
type DirEntry struct {
	Inode uint32
	Name  string
}

// walkDir iterates the live entries of a directory inode in on-disk
// order, calling fn for each. fn returns true to stop the walk early.
// Vacant slots (inode 0) are skipped and hole blocks contribute no
// entries.
func (f *FS) walkDir(ino *Inode, fn func(DirEntry) (stop bool, err error)) error {
	blockSize := int64(f.sb.Blocksize)
	entriesPerBlock := int(f.sb.Blocksize) / dirEntrySize

	for i := uint32(0); int64(i)*blockSize < int64(ino.Size); i++ {
		disk, err := f.MapBlock(ino, i)
		if err != nil {
			return err
		}
		if disk == 0 {
			continue
		}
		if err := f.readAt(f.blockBuf, int64(disk)*blockSize); err != nil {
			return fmt.Errorf("directory block %d: %w", disk, err)
		}

		for j := 0; j < entriesPerBlock; j++ {
			slot := f.blockBuf[j*dirEntrySize : (j+1)*dirEntrySize]
			num := binary.LittleEndian.Uint32(slot[0:4])
			if num == 0 {
				continue
			}
			stop, err := fn(DirEntry{Inode: num, Name: entryName(slot[4 : 4+nameLen])})
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
	}
	return nil
}

// entryName interprets the 60-byte name field: terminated at the first
// NUL, or the full 60 bytes if none.
func entryName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// ReadDirEntries returns the live entries of the directory inode number
// num in on-disk order, including "." and "..".
func (f *FS) ReadDirEntries(num uint32) ([]DirEntry, error) {
	ino, err := f.ReadInode(num)
	if err != nil {
		return nil, err
	}
	if !ino.IsDir() {
		return nil, fmt.Errorf("inode %d: %w", num, ErrNotDir)
	}

	var entries []DirEntry
	err = f.walkDir(&ino, func(e DirEntry) (bool, error) {
		entries = append(entries, e)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CanonicalPath collapses runs of slashes, ensures a leading slash and
// strips any trailing slash unless the result is the root itself. The
// empty path canonicalizes to "/". The function is idempotent.
func CanonicalPath(path string) string {
	var comps []string
	for _, c := range strings.Split(path, "/") {
		if c != "" {
			comps = append(comps, c)
		}
	}
	return "/" + strings.Join(comps, "/")
}

// Resolve canonicalizes path and walks it from the root directory,
// returning the inode number of the final component. Matching is exact
// on length and bytes; the first matching entry in on-disk order wins.
func (f *FS) Resolve(path string) (uint32, error) {
	canon := CanonicalPath(path)
	current := uint32(RootInode)

	if canon == "/" {
		return current, nil
	}

	for _, comp := range strings.Split(canon[1:], "/") {
		ino, err := f.ReadInode(current)
		if err != nil {
			return 0, err
		}
		// Descending into anything but a directory means a non-final
		// component named a file.
		if !ino.IsDir() {
			return 0, fmt.Errorf("%s: %w", canon, ErrNotDir)
		}

		var match uint32
		err = f.walkDir(&ino, func(e DirEntry) (bool, error) {
			if e.Name == comp {
				match = e.Inode
				return true, nil
			}
			return false, nil
		})
		if err != nil {
			return 0, err
		}
		if match == 0 {
			return 0, fmt.Errorf("%s: %w", canon, ErrNotFound)
		}
		current = match
	}

	return current, nil
}
