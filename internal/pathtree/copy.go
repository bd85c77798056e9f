package pathtree

import (
	"fmt"
)

// CopyFileTo copies the file src to dest and returns the path written.
//
// When dest is an existing directory the file is copied into it under its
// own base name. An existing non-directory dest is only replaced when
// rewrite is set.
func (e *Engine) CopyFileTo(src, dest Path, rewrite bool) (Path, error) {
	s, err := e.resolve(src)
	if err != nil {
		return Path{}, err
	}
	d, err := e.resolve(dest)
	if err != nil {
		return Path{}, err
	}
	return e.copyFile(s, d, rewrite)
}

func (e *Engine) copyFile(src, dest Path, rewrite bool) (Path, error) {
	ok, err := e.fs.Exists(src)
	if err != nil {
		return Path{}, fmt.Errorf("inspecting %s: %w", src, err)
	}
	if !ok {
		return Path{}, fmt.Errorf("copying %s: %w", src, ErrSourceNotFound)
	}
	isDir, err := e.fs.IsDir(src)
	if err != nil {
		return Path{}, fmt.Errorf("inspecting %s: %w", src, err)
	}
	if isDir {
		return Path{}, fmt.Errorf("copying %s: %w", src, ErrIsADirectory)
	}

	destDir, err := e.fs.IsDir(dest)
	if err != nil {
		return Path{}, fmt.Errorf("inspecting %s: %w", dest, err)
	}
	if destDir {
		return e.copyFile(src, dest.Join(src.Base()), rewrite)
	}
	if src.Equal(dest) {
		return Path{}, invalidPath(dest, "source and destination are the same file")
	}

	exists, err := e.lexists(dest)
	if err != nil {
		return Path{}, err
	}
	if exists && !rewrite {
		return Path{}, fmt.Errorf("copying %s to %s: %w", src, dest, ErrDestinationExists)
	}
	if err := e.fs.CopyFile(src, dest); err != nil {
		return Path{}, fmt.Errorf("copying %s to %s: %w", src, dest, err)
	}
	e.logger.Debug("copied file", "src", src, "dest", dest, "rewrite", rewrite)
	return dest, nil
}

// CopyTo copies src, a file or a directory tree, to dest and returns the
// root of the copy.
//
// A directory is copied to dest when dest does not exist, and nested under
// its own base name when dest is an existing directory; the contents are
// never merged into an existing tree. Symlinks are handled according to
// EngineOptions.Symlinks.
//
// There is no rollback. A failure part-way leaves the entries copied so
// far in place and is returned as a *TreeError.
func (e *Engine) CopyTo(src, dest Path) (Path, error) {
	s, err := e.resolve(src)
	if err != nil {
		return Path{}, err
	}
	d, err := e.resolve(dest)
	if err != nil {
		return Path{}, err
	}
	isDir, err := e.fs.IsDir(s)
	if err != nil {
		return Path{}, fmt.Errorf("inspecting %s: %w", s, err)
	}
	if !isDir {
		return e.copyFile(s, d, false)
	}
	return e.copyTree(s, d)
}

func (e *Engine) copyTree(src, dest Path) (Path, error) {
	exists, err := e.lexists(dest)
	if err != nil {
		return Path{}, err
	}
	if exists {
		isDir, err := e.fs.IsDir(dest)
		if err != nil {
			return Path{}, fmt.Errorf("inspecting %s: %w", dest, err)
		}
		if !isDir {
			return Path{}, fmt.Errorf("copying %s to %s: %w", src, dest, ErrNotADirectory)
		}
		dest = dest.Join(src.Base())
		taken, err := e.lexists(dest)
		if err != nil {
			return Path{}, err
		}
		if taken {
			return Path{}, fmt.Errorf("copying %s to %s: %w", src, dest, ErrDestinationExists)
		}
	}
	if dest.HasPrefix(src) {
		return Path{}, invalidPath(dest, fmt.Sprintf("destination is inside %s", src))
	}

	policy := e.opts.Symlinks
	w, err := e.newWalker(src, WalkOptions{
		Mode:           BreadthFirst,
		FollowSymlinks: policy == DereferenceSymlinks,
	})
	if err != nil {
		return Path{}, fmt.Errorf("copying %s: %w", src, err)
	}
	if err := e.fs.Mkdir(dest, true); err != nil {
		return Path{}, fmt.Errorf("creating directory %s: %w", dest, err)
	}

	done := 0
	var failure error
	w.run(func(n node, err error) bool {
		if err == nil {
			err = e.copyEntry(n, dest.Join(n.rel), policy)
		}
		if err != nil {
			failure = &TreeError{Op: "copy", Path: n.path, Done: done, Err: err}
			return false
		}
		done++
		return true
	})
	if failure != nil {
		e.logger.Error("tree copy failed", "src", src, "dest", dest, "done", done, "error", failure)
		return dest, failure
	}
	e.logger.Info("copied tree", "src", src, "dest", dest, "entries", done)
	return dest, nil
}

// copyEntry reproduces one walked entry at target.
func (e *Engine) copyEntry(n node, target Path, policy SymlinkPolicy) error {
	switch n.kind {
	case KindDir:
		return e.fs.Mkdir(target, false)
	case KindFile:
		return e.fs.CopyFile(n.path, target)
	case KindSymlink:
		return e.copySymlink(n.path, target, policy)
	default:
		e.logger.Warn("skipping special file", "path", n.path)
		return nil
	}
}

func (e *Engine) copySymlink(link, target Path, policy SymlinkPolicy) error {
	switch policy {
	case SkipSymlinks:
		e.logger.Warn("skipping symlink", "path", link)
		return nil
	case PreserveSymlinks:
		to, err := e.fs.ReadSymlink(link)
		if err != nil {
			return fmt.Errorf("reading link: %w", err)
		}
		return e.fs.Symlink(to, target)
	}

	ok, err := e.fs.Exists(link)
	if err != nil {
		return fmt.Errorf("inspecting link target: %w", err)
	}
	if !ok {
		return fmt.Errorf("broken symlink: %w", ErrSourceNotFound)
	}
	isDir, err := e.fs.IsDir(link)
	if err != nil {
		return fmt.Errorf("inspecting link target: %w", err)
	}
	if isDir {
		return e.fs.Mkdir(target, false)
	}
	return e.fs.CopyFile(link, target)
}
