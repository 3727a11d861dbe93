// Package model contains domain models passed between layers.
package model

import "time"

// MatchEvent is one submitted match result waiting to be applied to the
// ledger. Fields mirror the OpenAPI schema for POST /matches.
type MatchEvent struct {
	MatchID string    // unique id for idempotency
	Winner  string    // registered team name
	TS      time.Time // time the server accepted the match
}

// Valid reports whether the event carries everything the worker needs.
func (e MatchEvent) Valid() bool {
	return e.MatchID != "" && e.Winner != ""
}
