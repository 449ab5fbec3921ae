package mount

import (
	"github.com/mwantia/objfs/data/errors"
)

var taxonomy = []error{
	errors.ErrInvalidPath,
	errors.ErrNotExist,
	errors.ErrAccessDenied,
	errors.ErrExist,
	errors.ErrUnsupported,
	errors.ErrIO,
	errors.ErrIllegalState,
	errors.ErrInvalidArgument,
	errors.ErrClosed,
	errors.ErrIsDirectory,
	errors.ErrNotDirectory,
	errors.ErrDirectoryNotEmpty,
}

// translate keeps errors that already carry a taxonomy kind and turns
// everything else, such as context or transport errors, into an IO failure.
func translate(err error, op, key string) error {
	if err == nil {
		return nil
	}

	for _, kind := range taxonomy {
		if errors.Is(err, kind) {
			return err
		}
	}
	return errors.IOFailure(err, op, key)
}
