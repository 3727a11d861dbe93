package segtree

import "errors"

// ErrCorrupt reports a broken tree invariant. It indicates a programming
// error, never bad user input.
var ErrCorrupt = errors.New("segment tree invariant violated")
