package testutil

import (
	"errors"
	"sync"
)

// StubEnv is a pathtree.Env with a fixed home directory and a working
// directory that only Chdir changes. Safe for concurrent use.
type StubEnv struct {
	mu   sync.Mutex
	home string
	wd   string

	// HomeErr and WdErr, when set, are returned instead of the stored values.
	HomeErr error
	WdErr   error
}

// NewStubEnv creates a StubEnv. An empty home makes HomeDir fail.
func NewStubEnv(home, wd string) *StubEnv {
	return &StubEnv{home: home, wd: wd}
}

func (e *StubEnv) HomeDir() (string, error) {
	if e.HomeErr != nil {
		return "", e.HomeErr
	}
	if e.home == "" {
		return "", errors.New("no home directory")
	}
	return e.home, nil
}

func (e *StubEnv) Getwd() (string, error) {
	if e.WdErr != nil {
		return "", e.WdErr
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wd, nil
}

func (e *StubEnv) Chdir(dir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wd = dir
	return nil
}
