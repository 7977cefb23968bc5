package minix

import (
	"io"
	"io/fs"
	"path"
	"sort"
	"time"
)

// The io/fs view of the filesystem. Paths follow io/fs conventions
// ("." for the root, no leading slash); the tools use the FS methods
// Resolve/ReadDirEntries instead, which preserves on-disk entry
// order and absolute paths.

// Open implements fs.FS.
func (f *FS) Open(name string) (fs.File, error) {
	num, ino, err := f.statPath("open", name)
	if err != nil {
		return nil, err
	}
	if ino.IsDir() {
		return &minixDir{fs: f, inode: ino, inodeNum: num, name: fsBase(name)}, nil
	}
	return &minixFile{fs: f, inode: ino, inodeNum: num, name: fsBase(name)}, nil
}

// ReadDir implements fs.ReadDirFS. Entries are sorted by name per the
// io/fs contract; "." and ".." are omitted.
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	file, err := f.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	dir, ok := file.(fs.ReadDirFile)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	return dir.ReadDir(-1)
}

// Stat implements fs.StatFS.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	num, ino, err := f.statPath("stat", name)
	if err != nil {
		return nil, err
	}
	return &minixFileInfo{inode: ino, inodeNum: num, name: fsBase(name)}, nil
}

func (f *FS) statPath(op, name string) (uint32, Inode, error) {
	if !fs.ValidPath(name) {
		return 0, Inode{}, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	abs := "/"
	if name != "." {
		abs += name
	}
	num, err := f.Resolve(abs)
	if err != nil {
		return 0, Inode{}, &fs.PathError{Op: op, Path: name, Err: err}
	}
	ino, err := f.ReadInode(num)
	if err != nil {
		return 0, Inode{}, &fs.PathError{Op: op, Path: name, Err: err}
	}
	return num, ino, nil
}

func fsBase(name string) string {
	if name == "." {
		return "."
	}
	return path.Base(name)
}

// minixFile implements fs.File for non-directories
type minixFile struct {
	fs       *FS
	inode    Inode
	inodeNum uint32
	name     string
	data     []byte
	offset   int64
	loaded   bool
}

func (mf *minixFile) Stat() (fs.FileInfo, error) {
	return &minixFileInfo{inode: mf.inode, inodeNum: mf.inodeNum, name: mf.name}, nil
}

func (mf *minixFile) Read(b []byte) (int, error) {
	if !mf.loaded {
		var err error
		mf.data, err = mf.fs.readFileData(&mf.inode, 0)
		if err != nil {
			return 0, err
		}
		mf.loaded = true
	}

	if mf.offset >= int64(len(mf.data)) {
		return 0, io.EOF
	}
	n := copy(b, mf.data[mf.offset:])
	mf.offset += int64(n)
	return n, nil
}

func (mf *minixFile) Close() error {
	mf.data = nil
	return nil
}

// minixDir implements fs.File and fs.ReadDirFile for directories
type minixDir struct {
	fs       *FS
	inode    Inode
	inodeNum uint32
	name     string
	entries  []fs.DirEntry
	offset   int
}

func (d *minixDir) Stat() (fs.FileInfo, error) {
	return &minixFileInfo{inode: d.inode, inodeNum: d.inodeNum, name: d.name}, nil
}

func (d *minixDir) Read(b []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *minixDir) Close() error {
	d.entries = nil
	return nil
}

func (d *minixDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.entries == nil {
		raw, err := d.fs.ReadDirEntries(d.inodeNum)
		if err != nil {
			return nil, err
		}
		d.entries = make([]fs.DirEntry, 0, len(raw))
		for _, e := range raw {
			if e.Name == "." || e.Name == ".." {
				continue
			}
			d.entries = append(d.entries, &minixDirEntry{fs: d.fs, entry: e})
		}
		sort.Slice(d.entries, func(i, j int) bool {
			return d.entries[i].Name() < d.entries[j].Name()
		})
	}

	if n <= 0 {
		entries := d.entries[d.offset:]
		d.offset = len(d.entries)
		return entries, nil
	}

	if d.offset >= len(d.entries) {
		return nil, io.EOF
	}
	end := d.offset + n
	if end > len(d.entries) {
		end = len(d.entries)
	}
	entries := d.entries[d.offset:end]
	d.offset = end
	return entries, nil
}

// minixDirEntry implements fs.DirEntry
type minixDirEntry struct {
	fs    *FS
	entry DirEntry
}

func (e *minixDirEntry) Name() string { return e.entry.Name }

func (e *minixDirEntry) IsDir() bool {
	info, err := e.Info()
	if err != nil {
		return false
	}
	return info.IsDir()
}

func (e *minixDirEntry) Type() fs.FileMode {
	info, err := e.Info()
	if err != nil {
		return 0
	}
	return info.Mode().Type()
}

func (e *minixDirEntry) Info() (fs.FileInfo, error) {
	ino, err := e.fs.ReadInode(e.entry.Inode)
	if err != nil {
		return nil, err
	}
	return &minixFileInfo{inode: ino, inodeNum: e.entry.Inode, name: e.entry.Name}, nil
}

// minixFileInfo implements fs.FileInfo and fsys.FileInfo
type minixFileInfo struct {
	inode    Inode
	inodeNum uint32
	name     string
}

func (i *minixFileInfo) Name() string       { return i.name }
func (i *minixFileInfo) Size() int64        { return int64(i.inode.Size) }
func (i *minixFileInfo) ModTime() time.Time { return time.Unix(int64(i.inode.Mtime), 0) }
func (i *minixFileInfo) IsDir() bool        { return i.inode.IsDir() }
func (i *minixFileInfo) Sys() any           { return i.inode }
func (i *minixFileInfo) Inode() uint64      { return uint64(i.inodeNum) }

func (i *minixFileInfo) Mode() fs.FileMode {
	mode := fs.FileMode(i.inode.Mode & 0o777)
	switch i.inode.Mode & ModeTypeMask {
	case ModeDir:
		mode |= fs.ModeDir
	case 0o120000:
		mode |= fs.ModeSymlink
	case 0o060000:
		mode |= fs.ModeDevice
	case 0o020000:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case 0o010000:
		mode |= fs.ModeNamedPipe
	}
	return mode
}
