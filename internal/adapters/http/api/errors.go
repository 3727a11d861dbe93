package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("match queue is full")
	ErrRateLimited  = errors.New("rate limit exceeded")
)
