package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charlievieth/fastwalk"
	"github.com/google/uuid"

	"pathkit/internal/pathtree"
)

// OSFilesystem is the real filesystem implementation of pathtree.Filesystem.
// It performs actual filesystem operations using the os package.
type OSFilesystem struct {
	workers int
}

// NewOSFilesystem creates a filesystem that operates on the real filesystem.
// workers bounds the goroutines used by WalkTree; 0 picks fastwalk's default.
func NewOSFilesystem(workers int) *OSFilesystem {
	return &OSFilesystem{workers: workers}
}

func (m *OSFilesystem) Exists(p pathtree.Path) (bool, error) {
	_, err := os.Stat(p.String())
	if err == nil {
		return true, nil
	}
	if isAbsent(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", p, err)
}

func (m *OSFilesystem) IsFile(p pathtree.Path) (bool, error) {
	info, err := m.stat(p)
	if err != nil || info == nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (m *OSFilesystem) IsDir(p pathtree.Path) (bool, error) {
	info, err := m.stat(p)
	if err != nil || info == nil {
		return false, err
	}
	return info.IsDir(), nil
}

// IsSymlink uses Lstat so a link whose target is missing still reports true.
func (m *OSFilesystem) IsSymlink(p pathtree.Path) (bool, error) {
	info, err := os.Lstat(p.String())
	if err != nil {
		if isAbsent(err) {
			return false, nil
		}
		return false, fmt.Errorf("lstat %s: %w", p, err)
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}

func (m *OSFilesystem) ReadSymlink(p pathtree.Path) (pathtree.Path, error) {
	target, err := os.Readlink(p.String())
	if err != nil {
		return pathtree.Path{}, fmt.Errorf("readlink %s: %w", p, err)
	}
	return pathtree.NewIn(p.Flavour(), target), nil
}

func (m *OSFilesystem) ReadDir(p pathtree.Path) ([]pathtree.DirEntry, error) {
	entries, err := os.ReadDir(p.String())
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	out := make([]pathtree.DirEntry, len(entries))
	for i, entry := range entries {
		out[i] = pathtree.DirEntry{Name: entry.Name(), Kind: kindOf(entry.Type())}
	}
	return out, nil
}

func (m *OSFilesystem) Mkdir(p pathtree.Path, recursive bool) error {
	if recursive {
		return os.MkdirAll(p.String(), 0o755)
	}
	return os.Mkdir(p.String(), 0o755)
}

// CopyFile streams src into a temporary file next to dst and renames it
// into place, so dst is either the old content or the complete new one.
// The permission bits of src are kept.
func (m *OSFilesystem) CopyFile(src, dst pathtree.Path) (err error) {
	in, err := os.Open(src.String())
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("copying %s: %w", src, pathtree.ErrIsADirectory)
	}

	dir, base := filepath.Split(dst.String())
	tmp := filepath.Join(dir, "."+base+".tmp-"+uuid.NewString())
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("copying content: %w", err)
	}
	if err = out.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmp, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err = os.Rename(tmp, dst.String()); err != nil {
		return fmt.Errorf("moving temp file into place: %w", err)
	}
	return nil
}

func (m *OSFilesystem) Symlink(target, link pathtree.Path) error {
	return os.Symlink(target.String(), link.String())
}

func (m *OSFilesystem) RemoveFile(p pathtree.Path) error {
	return os.Remove(p.String())
}

func (m *OSFilesystem) RemoveTree(p pathtree.Path) error {
	return os.RemoveAll(p.String())
}

// Rename reports pathtree.ErrCrossDevice alongside the OS error when the
// two paths are on different filesystems.
func (m *OSFilesystem) Rename(from, to pathtree.Path) error {
	err := os.Rename(from.String(), to.String())
	if err != nil && isCrossDevice(err) {
		return fmt.Errorf("%w: %w", pathtree.ErrCrossDevice, err)
	}
	return err
}

// WalkTree enumerates everything below root with fastwalk. fn runs on
// several goroutines at once. With follow set, symlinked directories are
// entered unless that would loop.
func (m *OSFilesystem) WalkTree(root pathtree.Path, follow bool, fn func(p pathtree.Path, kind pathtree.EntryKind) error) error {
	conf := fastwalk.Config{
		Follow:     follow,
		NumWorkers: m.workers,
	}
	rootText := root.String()
	err := fastwalk.Walk(&conf, rootText, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == rootText {
			return nil
		}
		return fn(pathtree.NewIn(root.Flavour(), path), kindOf(d.Type()))
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", root, err)
	}
	return nil
}

func (m *OSFilesystem) stat(p pathtree.Path) (fs.FileInfo, error) {
	info, err := os.Stat(p.String())
	if err != nil {
		if isAbsent(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	return info, nil
}

func kindOf(mode fs.FileMode) pathtree.EntryKind {
	switch {
	case mode&fs.ModeSymlink != 0:
		return pathtree.KindSymlink
	case mode.IsDir():
		return pathtree.KindDir
	case mode.IsRegular():
		return pathtree.KindFile
	default:
		return pathtree.KindOther
	}
}

// isAbsent reports whether err means the path, or one of its parents,
// is missing.
func isAbsent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || isNotDir(err)
}

// Compile-time checks that OSFilesystem implements the pathtree interfaces
var (
	_ pathtree.Filesystem = (*OSFilesystem)(nil)
	_ pathtree.TreeWalker = (*OSFilesystem)(nil)
)
