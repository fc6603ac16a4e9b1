package config

import "errors"

var (
	// ErrConnectionExists is returned when adding an alias that is already stored.
	ErrConnectionExists = errors.New("connection already exists")
	// ErrConnectionNotFound is returned when an alias is not in the connections file.
	ErrConnectionNotFound = errors.New("connection not found")
)
