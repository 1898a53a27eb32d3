package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operation is a single trade inside a session. Value is signed: wins are
// positive, losses negative. Money fields use decimal so a replay over the
// same operations always reproduces the same capital.
type Operation struct {
	ID        string          `json:"id"`
	Value     decimal.Decimal `json:"value"`
	Win       bool            `json:"win"`
	Tag       string          `json:"tag,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// TradingSession is a journal session: a starting capital plus an ordered
// operation list. CurrentCapital and Result are derived and must only be
// produced by ReplayCapital.
type TradingSession struct {
	ID             string          `json:"id"`
	Mode           string          `json:"mode,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	EndedAt        *time.Time      `json:"ended_at,omitempty"`
	StartCapital   decimal.Decimal `json:"start_capital"`
	CurrentCapital decimal.Decimal `json:"current_capital"`
	Result         decimal.Decimal `json:"result"`
	Operations     []Operation     `json:"operations"`
	Active         bool            `json:"active"`
	Plan           []string        `json:"plan,omitempty"`
}

// ReplayCapital recomputes CurrentCapital and Result from StartCapital over
// the full ordered operation list. A full replay, never an incremental patch:
// intervening deletions and restores may have reshaped the list since any
// earlier snapshot was taken.
func (s *TradingSession) ReplayCapital() {
	capital := s.StartCapital
	for _, op := range s.Operations {
		capital = capital.Add(op.Value)
	}
	s.CurrentCapital = capital
	s.Result = capital.Sub(s.StartCapital)
}

// InsertOperation places op at index when it is still within bounds, else
// appends. Index drift from intervening edits is tolerated, never an error.
func (s *TradingSession) InsertOperation(op Operation, index *int) {
	if index != nil && *index >= 0 && *index <= len(s.Operations) {
		s.Operations = append(s.Operations, Operation{})
		copy(s.Operations[*index+1:], s.Operations[*index:])
		s.Operations[*index] = op
		return
	}
	s.Operations = append(s.Operations, op)
}

// ConflictResolution is the answer of a conflict policy when a restored
// session claims the active slot while another session is already active.
type ConflictResolution string

const (
	// ResolutionReplace archives the current active session, then installs
	// the restored one as active.
	ResolutionReplace ConflictResolution = "replace"
	// ResolutionKeepAsHistory appends the restored session to archived
	// history and leaves the active session untouched.
	ResolutionKeepAsHistory ConflictResolution = "keep_as_history"
)

func (r ConflictResolution) Valid() bool {
	return r == ResolutionReplace || r == ResolutionKeepAsHistory
}
