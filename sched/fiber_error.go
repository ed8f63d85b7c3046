package sched

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// FiberMetaError exposes which fiber, and on which worker, a failure happened.
type FiberMetaError interface {
	error
	Unwrap() error
	FiberID() uuid.UUID
	FiberWorker() int
}

type fiberError struct {
	err    error
	id     uuid.UUID
	worker int
}

func newFiberError(err error, id uuid.UUID, worker int) error {
	if err == nil {
		return nil
	}
	return &fiberError{err: err, id: id, worker: worker}
}

func (e *fiberError) Error() string      { return e.err.Error() }
func (e *fiberError) Unwrap() error      { return e.err }
func (e *fiberError) FiberID() uuid.UUID { return e.id }
func (e *fiberError) FiberWorker() int   { return e.worker }

func (e *fiberError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "fiber(id=%s,worker=%d): %+v", e.id, e.worker, e.err)
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractFiberID returns the ID of the fiber that produced err, if recorded.
func ExtractFiberID(err error) (uuid.UUID, bool) {
	var fme FiberMetaError
	if errors.As(err, &fme) {
		return fme.FiberID(), true
	}
	return uuid.Nil, false
}

// ExtractFiberWorker returns the worker the failing fiber last ran on, if recorded.
func ExtractFiberWorker(err error) (int, bool) {
	var fme FiberMetaError
	if errors.As(err, &fme) {
		return fme.FiberWorker(), true
	}
	return 0, false
}
