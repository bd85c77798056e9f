package pathtree

import (
	"errors"
	"fmt"
)

// Remove deletes p. A symlink, broken or not, and a plain file are removed
// directly; a directory is removed with its whole subtree. Removing a
// missing path fails with ErrNotFound. Roots are refused.
func (e *Engine) Remove(p Path) error {
	abs, err := e.resolve(p)
	if err != nil {
		return err
	}
	if abs.IsRoot() {
		return invalidPath(abs, "refusing to remove a root")
	}

	link, err := e.fs.IsSymlink(abs)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", abs, err)
	}
	if link {
		if err := e.fs.RemoveFile(abs); err != nil {
			return fmt.Errorf("removing symlink %s: %w", abs, err)
		}
		e.logger.Debug("removed symlink", "path", abs)
		return nil
	}

	exists, err := e.fs.Exists(abs)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", abs, err)
	}
	if !exists {
		return fmt.Errorf("removing %s: %w", abs, ErrNotFound)
	}
	isDir, err := e.fs.IsDir(abs)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", abs, err)
	}
	if !isDir {
		if err := e.fs.RemoveFile(abs); err != nil {
			return fmt.Errorf("removing %s: %w", abs, err)
		}
		e.logger.Debug("removed file", "path", abs)
		return nil
	}
	if err := e.fs.RemoveTree(abs); err != nil {
		return fmt.Errorf("removing tree %s: %w", abs, err)
	}
	e.logger.Info("removed tree", "path", abs)
	return nil
}

// Rename moves from to to within one filesystem and returns the new path.
// An existing to, including a broken symlink, is never overwritten.
// Errors from the filesystem, such as ErrCrossDevice, are returned as is.
func (e *Engine) Rename(from, to Path) (Path, error) {
	src, err := e.resolve(from)
	if err != nil {
		return Path{}, err
	}
	dst, err := e.resolve(to)
	if err != nil {
		return Path{}, err
	}
	if err := e.checkRename(src, dst); err != nil {
		return Path{}, err
	}
	if err := e.fs.Rename(src, dst); err != nil {
		return Path{}, fmt.Errorf("renaming %s to %s: %w", src, dst, err)
	}
	e.logger.Info("renamed", "from", src, "to", dst)
	return dst, nil
}

func (e *Engine) checkRename(src, dst Path) error {
	ok, err := e.lexists(src)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("renaming %s: %w", src, ErrSourceNotFound)
	}
	taken, err := e.lexists(dst)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("renaming %s to %s: %w", src, dst, ErrDestinationExists)
	}
	return nil
}

// Move is Rename that also works across filesystems: when the filesystem
// reports ErrCrossDevice, src is copied to dest and then removed. The copy
// always preserves symlinks, whatever the engine's policy, so links inside
// a moved tree stay links. A failed copy leaves src untouched and the
// partial copy in place.
func (e *Engine) Move(src, dest Path) (Path, error) {
	out, err := e.Rename(src, dest)
	if !errors.Is(err, ErrCrossDevice) {
		return out, err
	}

	s, _ := e.resolve(src)
	d, _ := e.resolve(dest)
	e.logger.Info("moving across filesystems", "from", s, "to", d)

	link, err := e.fs.IsSymlink(s)
	if err != nil {
		return Path{}, fmt.Errorf("inspecting %s: %w", s, err)
	}
	if link {
		target, err := e.fs.ReadSymlink(s)
		if err != nil {
			return Path{}, fmt.Errorf("reading link %s: %w", s, err)
		}
		if err := e.fs.Symlink(target, d); err != nil {
			return Path{}, fmt.Errorf("moving %s to %s: %w", s, d, err)
		}
	} else if _, err := e.preserving().CopyTo(s, d); err != nil {
		var te *TreeError
		if errors.As(err, &te) {
			te.Op = "move"
		}
		return Path{}, fmt.Errorf("moving %s to %s: %w", s, d, err)
	}

	if err := e.Remove(s); err != nil {
		return d, fmt.Errorf("moving %s: removing source: %w", s, err)
	}
	return d, nil
}

// preserving returns a copy of e that recreates symlinks when copying.
func (e *Engine) preserving() *Engine {
	c := *e
	c.opts.Symlinks = PreserveSymlinks
	return &c
}
