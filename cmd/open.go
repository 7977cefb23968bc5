// Package cmd implements the minls and minget operations.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/luuk/minfs/detect"
	"github.com/luuk/minfs/fsys"
	"github.com/luuk/minfs/fsys/minix"
	"github.com/luuk/minfs/fsys/part"
)

// Options selects the filesystem within an image and controls verbose
// diagnostics. Primary and Sub are partition indices, -1 for none.
type Options struct {
	Primary int
	Sub     int
	Verbose io.Writer // verbose diagnostics sink, nil to disable
}

// Session bundles the opened image with the decoded filesystem. Close
// it on every exit path after a successful OpenImage.
type Session struct {
	FS *minix.FS

	file *os.File
}

// Close releases the image handle.
func (s *Session) Close() error {
	return s.file.Close()
}

// OpenImage opens a disk image, locates the filesystem according to the
// partition selection in opts and decodes its superblock.
func OpenImage(imagePath string, opts Options) (*Session, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}

	s, err := openSession(file, opts)
	if err != nil {
		file.Close()
		return nil, err
	}
	return s, nil
}

func openSession(file *os.File, opts Options) (*Session, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	size := info.Size()

	base, err := part.Locate(file, opts.Primary, opts.Sub)
	if err != nil {
		return nil, err
	}
	if base >= size {
		return nil, fmt.Errorf("partition start %d beyond end of image (%d bytes)", base, size)
	}

	if opts.Verbose != nil && opts.Primary >= 0 {
		dumpTables(file, opts, opts.Verbose)
	}

	// A single-extent view shifted to the filesystem base; nested
	// extent readers built on top of it flatten back to the image file.
	view := fsys.NewExtentReaderAt(file,
		[]fsys.Extent{{Logical: 0, Physical: base, Length: size - base}}, size-base)

	mfs, err := minix.Open(view)
	if err != nil {
		if errors.Is(err, minix.ErrBadMagic) && opts.Primary < 0 {
			if t, derr := detect.Detect(file); derr == nil && t == detect.MBR {
				err = fmt.Errorf("%w (the image holds a %s; select a partition with -p)", err, t)
			}
		}
		return nil, err
	}

	if opts.Verbose != nil {
		fmt.Fprint(opts.Verbose, mfs.Superblock().Info())
	}

	return &Session{FS: mfs, file: file}, nil
}

func dumpTables(r io.ReaderAt, opts Options, w io.Writer) {
	t, err := part.ReadTable(r, 0)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "Partition table:\n%s", t.Info())
	if opts.Sub < 0 {
		return
	}
	e, err := t.Minix(opts.Primary)
	if err != nil {
		return
	}
	st, err := part.ReadTable(r, e.StartOffset())
	if err != nil {
		return
	}
	fmt.Fprintf(w, "Subpartition table:\n%s", st.Info())
}
