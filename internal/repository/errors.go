package repository

import "errors"

// ErrNotFound represents a missing or out-of-scope row.
var ErrNotFound = errors.New("not found")
