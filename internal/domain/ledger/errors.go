package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for rejected ledger operations. A rejected operation never
// changes ledger state.
var (
	ErrEmptyInput      = errors.New("teams and matches must be non-empty")
	ErrDuplicateTeam   = errors.New("team already exists")
	ErrTeamNotFound    = errors.New("team not found")
	ErrInvalidTeamName = errors.New("team name must not be blank")
)

// UnknownTeamError reports a name that is not registered, together with the
// closest registered names.
type UnknownTeamError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownTeamError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("%s: %q", ErrTeamNotFound, e.Name)
	}
	return fmt.Sprintf("%s: %q (did you mean %s?)", ErrTeamNotFound, e.Name, strings.Join(e.Suggestions, ", "))
}

func (e *UnknownTeamError) Unwrap() error { return ErrTeamNotFound }
