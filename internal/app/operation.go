package app

import "time"

// Operation tracks one Toolkit call from start to finish for the log.
type Operation struct {
	ID         string
	Name       string
	Parameters []string
	Started    time.Time
	Status     string // "running", "success" or "error"
}

// NewOperation creates a running operation.
func NewOperation(id, name string, started time.Time, parameters ...string) *Operation {
	return &Operation{
		ID:         id,
		Name:       name,
		Parameters: parameters,
		Started:    started,
		Status:     "running",
	}
}

// Finish records the outcome of the operation.
func (op *Operation) Finish(err error) {
	if err != nil {
		op.Status = "error"
		return
	}
	op.Status = "success"
}

// Done returns true once Finish has been called.
func (op *Operation) Done() bool {
	return op.Status != "running"
}
