package errors

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors forming the objfs error taxonomy.
// Errors returned by objfs match at least one of them with errors.Is.
var (
	ErrInvalidPath  = errors.New("objfs: invalid path")
	ErrNotExist     = errors.New("objfs: does not exist")
	ErrAccessDenied = errors.New("objfs: access denied")
	ErrExist        = errors.New("objfs: already exists")
	ErrUnsupported  = errors.New("objfs: operation not supported")
	ErrIO           = errors.New("objfs: i/o failure")

	ErrIllegalState      = errors.New("objfs: illegal state")
	ErrInvalidArgument   = errors.New("objfs: invalid argument")
	ErrClosed            = errors.New("objfs: already closed")
	ErrIsDirectory       = errors.New("objfs: is a directory")
	ErrNotDirectory      = errors.New("objfs: not a directory")
	ErrDirectoryNotEmpty = errors.New("objfs: directory not empty")
	ErrReadOnly          = fmt.Errorf("%w: read-only filesystem", ErrAccessDenied)
)

// OpError records the failed operation, the path or key it targeted and the
// taxonomy sentinel it maps to. The transport error, if any, is kept unmodified.
type OpError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	text := e.Kind.Error()
	if e.Op != "" {
		text = fmt.Sprintf("%s: %s", text, e.Op)
	}
	if e.Path != "" {
		text = fmt.Sprintf("%s '%s'", text, e.Path)
	}
	if e.Err != nil {
		text = fmt.Sprintf("%s: %v", text, e.Err)
	}
	return text
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, err error, op, path string) error {
	return &OpError{
		Op:   op,
		Path: path,
		Kind: kind,
		Err:  err,
	}
}

// Errors collects the failures of a multi-step operation.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = nil
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}

// Is and As forward to the standard library so callers importing this package
// under the name "errors" keep the usual helpers.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
