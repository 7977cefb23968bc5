package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/luuk/minfs/fsys/minix"
)

// Ls lists the target of path. For a directory it prints the path
// followed by one line per entry in on-disk order; for anything else it
// prints the single line for the target itself.
func Ls(f *minix.FS, path string, out io.Writer, opts Options) error {
	canon := minix.CanonicalPath(path)

	num, err := f.Resolve(canon)
	if err != nil {
		if errors.Is(err, minix.ErrNotFound) {
			return fmt.Errorf("Can't find %s", canon)
		}
		return err
	}

	ino, err := f.ReadInode(num)
	if err != nil {
		return err
	}
	if opts.Verbose != nil {
		fmt.Fprint(opts.Verbose, ino.Info(num))
	}

	if !ino.IsDir() {
		listEntry(out, ino, baseName(canon))
		return nil
	}

	fmt.Fprintf(out, "%s:\n", canon)
	entries, err := f.ReadDirEntries(num)
	if err != nil {
		return err
	}
	for _, e := range entries {
		eino, err := f.ReadInode(e.Inode)
		if err != nil {
			return fmt.Errorf("entry %s: %w", e.Name, err)
		}
		listEntry(out, eino, e.Name)
	}
	return nil
}

// listEntry prints one listing line: the mode string, the size
// right-aligned to width 9, and the name.
func listEntry(out io.Writer, ino minix.Inode, name string) {
	fmt.Fprintf(out, "%s %9d %s\n", minix.ModeString(ino.Mode), ino.Size, name)
}

// baseName returns the final component of a canonical path, or "." for
// the root.
func baseName(canon string) string {
	if canon == "/" {
		return "."
	}
	return canon[strings.LastIndexByte(canon, '/')+1:]
}
