package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"pathkit/internal/config"
	"pathkit/internal/fs"
	"pathkit/internal/pathtree"
)

// Toolkit is the application layer between callers and the tree engine.
// It constructs all dependencies from config, exposes the engine's
// operations on raw string paths, and owns the log file until Close.
type Toolkit struct {
	cfg     *config.Config
	engine  *pathtree.Engine
	walk    pathtree.WalkOptions
	logger  *slog.Logger
	clock   Clock
	ids     IDGenerator
	logFile *os.File
}

// NewToolkit creates a fully wired Toolkit operating on the real filesystem.
// The caller must call Close when done.
func NewToolkit(cfg *config.Config) (*Toolkit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	ids := UUIDGenerator{}
	logger, logFile, err := newLogger(cfg.LogDir, ids.New(), level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	var env pathtree.Env = pathtree.ProcessEnv{}
	if cfg.Home != "" {
		env = pathtree.StaticEnv{Home: cfg.Home}
	}

	t, err := newToolkit(cfg, fs.NewOSFilesystem(cfg.Find.Workers), env, logger, RealClock{}, ids)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	t.logFile = logFile
	return t, nil
}

// newToolkit wires a Toolkit from explicit collaborators.
func newToolkit(cfg *config.Config, fsys pathtree.Filesystem, env pathtree.Env, logger *slog.Logger, clock Clock, ids IDGenerator) (*Toolkit, error) {
	policy, err := pathtree.ParseSymlinkPolicy(cfg.Copy.Symlinks)
	if err != nil {
		return nil, fmt.Errorf("copy.symlinks: %w", err)
	}
	engine := pathtree.NewEngine(fsys, env, &slogAdapter{l: logger}, pathtree.EngineOptions{Symlinks: policy})
	return &Toolkit{
		cfg:    cfg,
		engine: engine,
		walk: pathtree.WalkOptions{
			FollowSymlinks: cfg.Walk.FollowSymlinks,
			MaxDepth:       cfg.Walk.MaxDepth,
			Ignore:         cfg.Walk.Ignore,
		},
		logger: logger,
		clock:  clock,
		ids:    ids,
	}, nil
}

// Engine returns the underlying tree engine for callers working with
// pathtree.Path values directly.
func (t *Toolkit) Engine() *pathtree.Engine {
	return t.engine
}

// run executes fn as a logged operation.
func (t *Toolkit) run(name string, fn func() error, params ...string) error {
	op := NewOperation(t.ids.New(), name, t.clock.Now(), params...)
	err := fn()
	op.Finish(err)

	args := []any{"op", op.ID, "name", op.Name, "status", op.Status, "elapsed", t.clock.Now().Sub(op.Started), "params", op.Parameters}
	if err != nil {
		t.logger.Error("operation failed", append(args, "error", err)...)
		return err
	}
	t.logger.Debug("operation finished", args...)
	return nil
}

// Resolve returns raw home-expanded, absolute and normalized.
func (t *Toolkit) Resolve(raw string) (string, error) {
	p, err := t.engine.Resolve(pathtree.New(raw))
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// Copy copies a file or directory tree and returns where the copy landed.
func (t *Toolkit) Copy(src, dest string) (string, error) {
	var out pathtree.Path
	err := t.run("Copy", func() (err error) {
		out, err = t.engine.CopyTo(pathtree.New(src), pathtree.New(dest))
		return err
	}, src, dest)
	return out.String(), err
}

// CopyFile copies a single file, replacing an existing destination only when rewrite is set.
func (t *Toolkit) CopyFile(src, dest string, rewrite bool) (string, error) {
	var out pathtree.Path
	err := t.run("CopyFile", func() (err error) {
		out, err = t.engine.CopyFileTo(pathtree.New(src), pathtree.New(dest), rewrite)
		return err
	}, src, dest)
	return out.String(), err
}

// Remove deletes a file, symlink or directory tree.
func (t *Toolkit) Remove(raw string) error {
	return t.run("Remove", func() error {
		return t.engine.Remove(pathtree.New(raw))
	}, raw)
}

// Rename renames within one filesystem, never overwriting.
func (t *Toolkit) Rename(from, to string) (string, error) {
	var out pathtree.Path
	err := t.run("Rename", func() (err error) {
		out, err = t.engine.Rename(pathtree.New(from), pathtree.New(to))
		return err
	}, from, to)
	return out.String(), err
}

// Move renames, copying and removing when the paths are on different filesystems.
func (t *Toolkit) Move(src, dest string) (string, error) {
	var out pathtree.Path
	err := t.run("Move", func() (err error) {
		out, err = t.engine.Move(pathtree.New(src), pathtree.New(dest))
		return err
	}, src, dest)
	return out.String(), err
}

// Mkdir creates a directory, with its parents when recursive is set.
func (t *Toolkit) Mkdir(raw string, recursive bool) (string, error) {
	var out pathtree.Path
	err := t.run("Mkdir", func() (err error) {
		out, err = t.engine.Mkdir(pathtree.New(raw), recursive)
		return err
	}, raw)
	return out.String(), err
}

// Chdir changes the working directory used to resolve relative paths.
func (t *Toolkit) Chdir(raw string) error {
	return t.run("Chdir", func() error {
		return t.engine.Chdir(pathtree.New(raw))
	}, raw)
}

// Walk lists the tree below root in the given order using the configured
// walk settings. Directories that could not be listed are reported
// together in the returned error; the listing still holds everything else.
func (t *Toolkit) Walk(root string, mode pathtree.WalkMode, pattern string) ([]string, error) {
	var out []string
	err := t.run("Walk", func() error {
		opts := t.walk
		opts.Mode = mode
		opts.Pattern = pattern
		var errs []error
		for p, err := range t.engine.Walk(pathtree.New(root), opts) {
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, p.String())
		}
		return errors.Join(errs...)
	}, root, pattern)
	return out, err
}

// Find searches below root for pattern, in parallel on the real filesystem.
// Results are sorted.
func (t *Toolkit) Find(root, pattern string) ([]string, error) {
	var out []string
	err := t.run("Find", func() error {
		opts := t.walk
		opts.Pattern = pattern
		found, err := t.engine.Find(pathtree.New(root), opts)
		for _, p := range found {
			out = append(out, p.String())
		}
		return err
	}, root, pattern)
	return out, err
}

// SearchUp looks for name in start and its ancestors.
func (t *Toolkit) SearchUp(start, name string) (string, bool, error) {
	var found pathtree.Option[pathtree.Path]
	err := t.run("SearchUp", func() (err error) {
		found, err = t.engine.SearchFileUp(pathtree.New(start), name)
		return err
	}, start, name)
	p, ok := found.Get()
	return p.String(), ok, err
}

// Close releases the log file.
func (t *Toolkit) Close() error {
	if t.logFile == nil {
		return nil
	}
	err := t.logFile.Close()
	t.logFile = nil
	if err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}
