package repository

import "errors"

// ErrClosed is returned by mutations after Close.
var ErrClosed = errors.New("ledger store closed")
