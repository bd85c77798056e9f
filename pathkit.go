// Package pathkit provides immutable filesystem path values and recursive
// tree operations (copy, remove, walk, glob, upward search) that behave
// the same on POSIX and drive-letter namespaces.
//
// Paths are built with New or Build and transformed with pure methods.
// Anything that touches the disk goes through an Engine, which expands
// "~" and resolves relative paths against an Env before each call.
package pathkit

import (
	"fmt"

	"pathkit/internal/app"
	"pathkit/internal/config"
	"pathkit/internal/fs"
	"pathkit/internal/pathtree"
)

type (
	Path          = pathtree.Path
	Flavour       = pathtree.Flavour
	Env           = pathtree.Env
	ProcessEnv    = pathtree.ProcessEnv
	StaticEnv     = pathtree.StaticEnv
	Engine        = pathtree.Engine
	EngineOptions = pathtree.EngineOptions
	Filesystem    = pathtree.Filesystem
	TreeWalker    = pathtree.TreeWalker
	DirEntry      = pathtree.DirEntry
	EntryKind     = pathtree.EntryKind
	WalkMode      = pathtree.WalkMode
	WalkOptions   = pathtree.WalkOptions
	SymlinkPolicy = pathtree.SymlinkPolicy
	Logger        = pathtree.Logger
	TreeError     = pathtree.TreeError
	Toolkit       = app.Toolkit
	Config        = config.Config
)

// Option is a value that may be absent.
type Option[T any] = pathtree.Option[T]

const (
	BreadthFirst = pathtree.BreadthFirst
	DepthFirst   = pathtree.DepthFirst
	Shallow      = pathtree.Shallow

	DereferenceSymlinks = pathtree.DereferenceSymlinks
	PreserveSymlinks    = pathtree.PreserveSymlinks
	SkipSymlinks        = pathtree.SkipSymlinks
)

var (
	Posix   = pathtree.Posix
	Darwin  = pathtree.Darwin
	Windows = pathtree.Windows
	Native  = pathtree.Native
)

var (
	ErrInvalidPath       = pathtree.ErrInvalidPath
	ErrSourceNotFound    = pathtree.ErrSourceNotFound
	ErrDestinationExists = pathtree.ErrDestinationExists
	ErrNotADirectory     = pathtree.ErrNotADirectory
	ErrIsADirectory      = pathtree.ErrIsADirectory
	ErrNotFound          = pathtree.ErrNotFound
	ErrBadPattern        = pathtree.ErrBadPattern
	ErrCrossDevice       = pathtree.ErrCrossDevice
)

// New returns the native-flavour path for text, unmodified.
func New(text string) Path { return pathtree.New(text) }

// Build joins segments with the native separator and tidies the result.
func Build(segments ...string) Path { return pathtree.Build(segments...) }

// NewOSEngine returns an Engine on the real filesystem. A nil env means
// the process environment and a nil logger discards output.
func NewOSEngine(env Env, logger Logger, opts EngineOptions) *Engine {
	return pathtree.NewEngine(fs.NewOSFilesystem(0), env, logger, opts)
}

// Open loads configuration from configPath, or from the default location
// when configPath is empty, and returns a Toolkit on the real filesystem.
// A missing config file means defaults. The caller must Close the Toolkit.
func Open(configPath string) (*Toolkit, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		configPath = defaults["config_path"]
	}
	cfg, err := config.Load(configPath, defaults["state_dir"])
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return app.NewToolkit(cfg)
}

// InitConfig writes a config file holding the defaults to configPath, or
// to the default location when configPath is empty, and returns the path
// written. An existing file is left alone and reported as an error.
func InitConfig(configPath string) (string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to get defaults: %w", err)
	}
	if configPath == "" {
		configPath = defaults["config_path"]
	}
	if err := config.Init(configPath, config.NewConfig(defaults["state_dir"])); err != nil {
		return "", err
	}
	return configPath, nil
}
