package http

import "errors"

// ErrNoHandle is returned when a request context carries no handle.
var ErrNoHandle = errors.New("no connection bound to request")
