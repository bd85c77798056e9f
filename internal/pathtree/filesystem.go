package pathtree

// EntryKind classifies a directory entry without following symlinks.
type EntryKind int

const (
	KindOther EntryKind = iota
	KindFile
	KindDir
	KindSymlink
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// DirEntry is one name returned by Filesystem.ReadDir.
type DirEntry struct {
	Name string
	Kind EntryKind
}

// Filesystem is the set of primitives the Engine needs from a live
// filesystem. Paths handed to it are already home-expanded and absolute.
// It abstracts file access to enable testing without touching the real filesystem.
type Filesystem interface {
	// Exists follows symlinks: a broken link does not exist.
	// It returns (false, nil) when the path is absent.
	Exists(p Path) (bool, error)

	// IsFile and IsDir follow symlinks and return false for absent paths.
	IsFile(p Path) (bool, error)
	IsDir(p Path) (bool, error)

	// IsSymlink inspects the entry itself, so it succeeds for broken links.
	IsSymlink(p Path) (bool, error)

	// ReadSymlink returns the link target as stored.
	ReadSymlink(p Path) (Path, error)

	// ReadDir lists a directory in no particular order.
	ReadDir(p Path) ([]DirEntry, error)

	Mkdir(p Path, recursive bool) error

	// CopyFile copies the content src refers to, replacing dst if present.
	CopyFile(src, dst Path) error

	Symlink(target, link Path) error
	RemoveFile(p Path) error
	RemoveTree(p Path) error

	// Rename moves from to to. Implementations report ErrCrossDevice when
	// the move would cross filesystems.
	Rename(from, to Path) error
}

// TreeWalker is implemented by filesystems that can enumerate a whole tree
// faster than repeated ReadDir calls. fn may be called concurrently and in
// any order; it is not called for root itself.
type TreeWalker interface {
	WalkTree(root Path, follow bool, fn func(p Path, kind EntryKind) error) error
}
