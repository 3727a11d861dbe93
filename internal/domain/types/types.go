// Package types contains the JSON shapes shared by the HTTP API and its client.
package types

// BuildRequest replaces the whole ledger (PUT /ledger).
type BuildRequest struct {
	Teams   []string `json:"teams"`
	Winners []int    `json:"winners"`
}

// TeamRequest registers a team (POST /teams).
type TeamRequest struct {
	Name string `json:"name"`
	Wins int    `json:"wins"`
}

// MatchRequest submits a match result (POST /matches). The server assigns a
// match ID when none is given.
type MatchRequest struct {
	MatchID string `json:"match_id,omitempty"`
	Winner  string `json:"winner"`
}

// MatchAck acknowledges a submitted match.
type MatchAck struct {
	Status    string `json:"status"`
	MatchID   string `json:"match_id"`
	Duplicate bool   `json:"duplicate"`
}

// LedgerSummary is returned by every successful synchronous mutation.
type LedgerSummary struct {
	Status  string `json:"status"`
	Teams   int    `json:"teams"`
	Matches int    `json:"matches"`
	Leader  string `json:"leader"`
}

// LeaderResponse answers GET /leader. Team is empty when nobody has won.
type LeaderResponse struct {
	Team    string `json:"team"`
	Matches int    `json:"matches"`
}

// RangeResponse answers GET /range.
type RangeResponse struct {
	Team             string `json:"team"`
	WinsInRange      int    `json:"winsInRange"`
	TotalWinsOverall int    `json:"totalWinsOverall"`
	From             int    `json:"from"`
	To               int    `json:"to"`
}

// TeamRow is one registry entry in a StateResponse.
type TeamRow struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Wins  int    `json:"wins"`
}

// StateResponse answers GET /state.
type StateResponse struct {
	Teams   []TeamRow `json:"teams"`
	Winners []string  `json:"winners"`
	Leader  string    `json:"leader"`
	Matches int       `json:"matches"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}
