// Package emu provides the 68000 interpreter control plane.
package emu

import (
	"errors"
	"fmt"
)

var (
	// ErrUnmappedFetch is returned when an instruction fetch targets a bank
	// that has no host memory installed in the fetch table.
	ErrUnmappedFetch = errors.New("fetch from unmapped bank")
	// ErrInvalidRange is returned when a fetch range is malformed.
	ErrInvalidRange = errors.New("invalid fetch range")
	// ErrNoExecutor is returned by Exec when no executor is installed.
	ErrNoExecutor = errors.New("no executor installed")
	// ErrReentrantExec is returned when Exec is called from inside a slice.
	ErrReentrantExec = errors.New("exec called while running")
)

// FetchError describes a failed instruction fetch.
type FetchError struct {
	Addr uint32
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch at 0x%06X: %v", e.Addr, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// RegisterIndexError is the panic value raised by register accessors when
// the register number is outside 0-7.
type RegisterIndexError struct {
	Kind  string
	Index int
}

func (e *RegisterIndexError) Error() string {
	return fmt.Sprintf("register %s%d out of range", e.Kind, e.Index)
}
