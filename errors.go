package mongolink

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSettings is returned for malformed or policy-violating configuration
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrInvalidURI is returned when a mongomock:// host is used outside testing
	ErrInvalidURI = errors.New("invalid uri")
	// ErrConnectionNotDefined is returned when an alias has no registered descriptor
	ErrConnectionNotDefined = errors.New("connection not defined")
	// ErrMissingDependency is returned when a required local tool is absent
	ErrMissingDependency = errors.New("missing dependency")
	// ErrConnection is matched by every ConnectionError
	ErrConnection = errors.New("connection error")
)

// ConnectionError wraps a failure to establish, share or ready-wait a
// connection for an alias.
type ConnectionError struct {
	Alias string
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to database %s: %v", e.Alias, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrConnection) true for any ConnectionError.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

func notDefined(alias string) error {
	if alias == DefaultAlias {
		return fmt.Errorf("%w: you have not defined a default connection", ErrConnectionNotDefined)
	}
	return fmt.Errorf("%w: connection with alias %q has not been defined", ErrConnectionNotDefined, alias)
}
