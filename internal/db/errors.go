package db

import "errors"

// ErrNotFound is returned when a lookup matches no row. Callers map it to a
// 404 rather than letting a missing threshold or session surface as a crash.
var ErrNotFound = errors.New("not found")
