package pathtree

import (
	"errors"
	"os"
)

// Env supplies the process context that path resolution depends on.
// Passing a nil Env to any method means ProcessEnv.
type Env interface {
	HomeDir() (string, error)
	Getwd() (string, error)
	Chdir(dir string) error
}

// ProcessEnv reads and changes the real process state.
type ProcessEnv struct{}

func (ProcessEnv) HomeDir() (string, error) { return os.UserHomeDir() }
func (ProcessEnv) Getwd() (string, error)   { return os.Getwd() }
func (ProcessEnv) Chdir(dir string) error   { return os.Chdir(dir) }

// StaticEnv reports a fixed home directory. An empty WorkDir falls back to
// the process working directory; Chdir always changes the process.
type StaticEnv struct {
	Home    string
	WorkDir string
}

func (e StaticEnv) HomeDir() (string, error) {
	if e.Home == "" {
		return "", errors.New("home directory not configured")
	}
	return e.Home, nil
}

func (e StaticEnv) Getwd() (string, error) {
	if e.WorkDir != "" {
		return e.WorkDir, nil
	}
	return os.Getwd()
}

func (StaticEnv) Chdir(dir string) error { return os.Chdir(dir) }

func envOrProcess(env Env) Env {
	if env == nil {
		return ProcessEnv{}
	}
	return env
}
