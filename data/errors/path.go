package errors

import "fmt"

// PathError is raised while parsing a path string.
// Index is the byte offset of the offending character, or -1.
type PathError struct {
	Path   string
	Reason string
	Index  int
}

func (e *PathError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%v '%q': %s at index %d", ErrInvalidPath, e.Path, e.Reason, e.Index)
	}
	return fmt.Sprintf("%v '%q': %s", ErrInvalidPath, e.Path, e.Reason)
}

func (e *PathError) Unwrap() error {
	return ErrInvalidPath
}

func InvalidPath(path, reason string, index int) error {
	return &PathError{
		Path:   path,
		Reason: reason,
		Index:  index,
	}
}

func InvalidArgument(op, format string, args ...any) error {
	return newError(ErrInvalidArgument, fmt.Errorf(format, args...), op, "")
}

func NotExist(err error, op, path string) error {
	return newError(ErrNotExist, err, op, path)
}

func Exist(err error, op, path string) error {
	return newError(ErrExist, err, op, path)
}

func AccessDenied(err error, op, path string) error {
	return newError(ErrAccessDenied, err, op, path)
}

func ReadOnly(op, path string) error {
	return newError(ErrReadOnly, nil, op, path)
}

func IsDirectory(op, path string) error {
	return newError(ErrIsDirectory, nil, op, path)
}

func NotDirectory(op, path string) error {
	return newError(ErrNotDirectory, nil, op, path)
}

func DirectoryNotEmpty(op, path string) error {
	return newError(ErrDirectoryNotEmpty, nil, op, path)
}

func IllegalState(op, reason string) error {
	return newError(ErrIllegalState, fmt.Errorf("%s", reason), op, "")
}

func Closed(op, path string) error {
	return newError(ErrClosed, nil, op, path)
}
