package fibers

import "errors"

const Namespace = "fibers"

var (
	ErrDeadlock      = errors.New(Namespace + ": a deadlock is detected")
	ErrPermission    = errors.New(Namespace + ": no privilege to perform the operation")
	ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")
	ErrClosed        = errors.New(Namespace + ": cannot spawn a fiber on a closed group")
	ErrFiberPanicked = errors.New(Namespace + ": fiber panicked")
	ErrAborted       = errors.New(Namespace + ": fiber abandoned by a stopped group")
)
