package errors

import "fmt"

// IOFailure wraps a transport error. The cause stays reachable with errors.As.
func IOFailure(err error, op, key string) error {
	return newError(ErrIO, err, op, key)
}

func Unsupported(op string) error {
	return newError(ErrUnsupported, nil, op, "")
}

func BackendUnsupported(name, capability string) error {
	return newError(ErrUnsupported, fmt.Errorf("backend '%s' lacks capability '%s'", name, capability), "", "")
}

func MalformedAddress(err error, address string) error {
	return newError(ErrInvalidArgument, err, "parse backend address", address)
}

func FileSystemNotFound(uri string) error {
	return newError(ErrNotExist, fmt.Errorf("no open filesystem"), "lookup", uri)
}

func FileSystemExists(uri string) error {
	return newError(ErrExist, fmt.Errorf("filesystem already open"), "open", uri)
}
