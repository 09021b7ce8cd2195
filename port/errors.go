package port

import (
	"errors"
	"fmt"
)

var (
	ErrHardwareInit       = errors.New("hardware init failed")
	ErrBufferAlloc        = errors.New("frame buffer allocation failed")
	ErrAlreadyInitialized = errors.New("port already initialized")
	ErrNotInitialized     = errors.New("port not initialized")
	ErrLockTimeout        = errors.New("port lock timeout")
	ErrNotOwner           = errors.New("port lock not held by holder")
	ErrInvalidConfig      = errors.New("invalid port config")
	ErrBufferState        = errors.New("frame buffer not owned by drawer")
)

// InitError reports the init step that failed. It matches both its class
// (ErrHardwareInit or ErrBufferAlloc) and the underlying cause.
type InitError struct {
	Step string
	Kind error
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("port init %s: %v: %v", e.Step, e.Kind, e.Err)
}

func (e *InitError) Unwrap() []error { return []error{e.Kind, e.Err} }
