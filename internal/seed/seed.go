// Package seed reads and writes YAML ledger seeds: a team roster plus the
// winner of every recorded match, in match order.
//
// Winners may be written either as registry indices or as team names:
//
//	teams: [Alpha, Beta]
//	winners: [0, 1, 0]
//
//	teams: [Alpha, Beta]
//	winner_names: [Alpha, Beta, Alpha]
//
// Exactly one of the two forms must be present.
package seed

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidSeed wraps every structural problem with a seed document.
	ErrInvalidSeed = errors.New("invalid seed")
	// ErrUnknownWinner reports a winner_names entry missing from teams.
	ErrUnknownWinner = errors.New("unknown winner")
)

// File is the on-disk seed document.
type File struct {
	Teams       []string `yaml:"teams"`
	Winners     []int    `yaml:"winners,omitempty"`
	WinnerNames []string `yaml:"winner_names,omitempty"`
}

// Load reads and parses the seed at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a seed document. Unknown keys are rejected so that a typo
// such as "winner" does not silently produce an empty history.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s File
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidSeed)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if len(s.Winners) > 0 && len(s.WinnerNames) > 0 {
		return nil, fmt.Errorf("%w: winners and winner_names are mutually exclusive", ErrInvalidSeed)
	}
	return &s, nil
}

// Resolve returns the roster and the winner index of every match. Index
// winners are passed through untouched; range checking is the ledger's job.
func (s *File) Resolve() ([]string, []int, error) {
	if len(s.WinnerNames) == 0 {
		return s.Teams, s.Winners, nil
	}

	index := make(map[string]int, len(s.Teams))
	for i, name := range s.Teams {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	winners := make([]int, len(s.WinnerNames))
	for i, name := range s.WinnerNames {
		idx, ok := index[name]
		if !ok {
			return nil, nil, fmt.Errorf("%w: match %d won by %q", ErrUnknownWinner, i+1, name)
		}
		winners[i] = idx
	}
	return s.Teams, winners, nil
}

// Encode writes s as YAML.
func (s *File) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode seed: %w", err)
	}
	return enc.Close()
}

// Save writes s to path, replacing any existing file.
func (s *File) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create seed %s: %w", path, err)
	}
	if err := s.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
