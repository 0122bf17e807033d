package undo

import "errors"

// ErrEmpty is returned by PopLast when the log holds no records.
var ErrEmpty = errors.New("undo: log is empty")
