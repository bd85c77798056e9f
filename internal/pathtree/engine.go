package pathtree

import (
	"fmt"
	"strings"
)

// SymlinkPolicy decides what a directory copy does with symlink entries.
type SymlinkPolicy int

const (
	// DereferenceSymlinks copies the content a link points to and descends
	// into linked directories. A broken link fails the copy.
	DereferenceSymlinks SymlinkPolicy = iota

	// PreserveSymlinks recreates each link with the same target text.
	PreserveSymlinks

	// SkipSymlinks leaves links out of the copy.
	SkipSymlinks
)

func (p SymlinkPolicy) String() string {
	switch p {
	case PreserveSymlinks:
		return "preserve"
	case SkipSymlinks:
		return "skip"
	default:
		return "dereference"
	}
}

// ParseSymlinkPolicy parses the names returned by SymlinkPolicy.String.
// The empty string selects DereferenceSymlinks.
func ParseSymlinkPolicy(s string) (SymlinkPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dereference":
		return DereferenceSymlinks, nil
	case "preserve":
		return PreserveSymlinks, nil
	case "skip":
		return SkipSymlinks, nil
	default:
		return DereferenceSymlinks, fmt.Errorf("unknown symlink policy %q", s)
	}
}

// EngineOptions tunes Engine behaviour.
type EngineOptions struct {
	Symlinks SymlinkPolicy
}

// Engine runs the recursive tree operations against a Filesystem.
// Every Path argument is home-expanded and made absolute against the
// engine's Env before the filesystem is touched.
//
// Operations are synchronous and hold no state between calls. Nothing is
// rolled back: a failed copy or remove leaves whatever the last successful
// primitive produced.
type Engine struct {
	fs     Filesystem
	env    Env
	logger Logger
	opts   EngineOptions
}

// NewEngine creates an Engine. A nil env means ProcessEnv and a nil logger
// discards output.
func NewEngine(fsys Filesystem, env Env, logger Logger, opts EngineOptions) *Engine {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Engine{
		fs:     fsys,
		env:    envOrProcess(env),
		logger: logger,
		opts:   opts,
	}
}

// Resolve returns p home-expanded, absolute and normalized.
func (e *Engine) Resolve(p Path) (Path, error) {
	return e.resolve(p)
}

func (e *Engine) resolve(p Path) (Path, error) {
	if !p.IsValid() {
		return Path{}, invalidPath(p, "not a valid path")
	}
	abs, err := p.ToAbsolute(e.env)
	if err != nil {
		return Path{}, fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}

// Exists reports whether p exists, following symlinks.
func (e *Engine) Exists(p Path) (bool, error) {
	abs, err := e.resolve(p)
	if err != nil {
		return false, err
	}
	return e.fs.Exists(abs)
}

// IsDir reports whether p is a directory, following symlinks.
func (e *Engine) IsDir(p Path) (bool, error) {
	abs, err := e.resolve(p)
	if err != nil {
		return false, err
	}
	return e.fs.IsDir(abs)
}

// IsFile reports whether p is a regular file, following symlinks.
func (e *Engine) IsFile(p Path) (bool, error) {
	abs, err := e.resolve(p)
	if err != nil {
		return false, err
	}
	return e.fs.IsFile(abs)
}

// Mkdir creates the directory p, and its parents when recursive is set.
func (e *Engine) Mkdir(p Path, recursive bool) (Path, error) {
	abs, err := e.resolve(p)
	if err != nil {
		return Path{}, err
	}
	if err := e.fs.Mkdir(abs, recursive); err != nil {
		return abs, fmt.Errorf("creating directory %s: %w", abs, err)
	}
	return abs, nil
}

// Chdir changes the env's working directory to p.
func (e *Engine) Chdir(p Path) error {
	abs, err := e.resolve(p)
	if err != nil {
		return err
	}
	if err := e.requireDir(abs); err != nil {
		return err
	}
	if err := e.env.Chdir(abs.String()); err != nil {
		return fmt.Errorf("changing directory to %s: %w", abs, err)
	}
	e.logger.Debug("changed directory", "path", abs)
	return nil
}

// lexists reports whether anything, including a broken symlink, occupies p.
func (e *Engine) lexists(p Path) (bool, error) {
	link, err := e.fs.IsSymlink(p)
	if err != nil {
		return false, fmt.Errorf("inspecting %s: %w", p, err)
	}
	if link {
		return true, nil
	}
	ok, err := e.fs.Exists(p)
	if err != nil {
		return false, fmt.Errorf("inspecting %s: %w", p, err)
	}
	return ok, nil
}

// requireDir returns ErrNotFound or ErrNotADirectory unless p is a directory.
func (e *Engine) requireDir(p Path) error {
	ok, err := e.fs.IsDir(p)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", p, err)
	}
	if ok {
		return nil
	}
	exists, err := e.lexists(p)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", p, ErrNotADirectory)
}
