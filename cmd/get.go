package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/luuk/minfs/fsys"
	"github.com/luuk/minfs/fsys/minix"
)

// Fetch resolves path and validates that it names a regular file,
// returning a sparse-aware reader over its contents. Validation happens
// before any output is produced, so callers can delay creating a
// destination until Fetch succeeds.
func Fetch(f *minix.FS, path string, opts Options) (*fsys.ExtentReaderAt, error) {
	canon := minix.CanonicalPath(path)

	num, err := f.Resolve(canon)
	if err != nil {
		if errors.Is(err, minix.ErrNotFound) {
			return nil, fmt.Errorf("Can't find %s", canon)
		}
		return nil, err
	}

	if opts.Verbose != nil {
		if ino, err := f.ReadInode(num); err == nil {
			fmt.Fprint(opts.Verbose, ino.Info(num))
		}
	}

	return f.FileReader(canon)
}

// Get copies the regular file at path to out, exactly size bytes, with
// holes materialized as zeros.
func Get(f *minix.FS, path string, out io.Writer, opts Options) error {
	r, err := Fetch(f, path, opts)
	if err != nil {
		return err
	}
	return Copy(r, int64(f.Blocksize()), out)
}

// Copy streams the reader's contents to out one block at a time,
// writing min(blockSize, remaining) bytes each step. Hole blocks come
// out of the sparse reader as zeros without touching the image.
func Copy(r *fsys.ExtentReaderAt, blockSize int64, out io.Writer) error {
	size := r.Size()
	buf := make([]byte, blockSize)

	for offset := int64(0); offset < size; {
		toRead := blockSize
		if offset+toRead > size {
			toRead = size - offset
		}

		n, err := r.ReadAt(buf[:toRead], offset)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("writing output: %w", werr)
			}
			offset += int64(n)
		}
		if err != nil {
			if err == io.EOF && offset >= size {
				break
			}
			return err
		}
	}
	return nil
}
