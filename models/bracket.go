package models

import "time"

// BracketMatchStatus mirrors the bracket_match_status ENUM in the database.
type BracketMatchStatus string

const (
	MatchStatusPending   BracketMatchStatus = "pending"
	MatchStatusReady     BracketMatchStatus = "ready"
	MatchStatusCompleted BracketMatchStatus = "completed"
)

// Bracket is a single-elimination match tree owned by one tournament.
type Bracket struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// Version guards match results and winner propagation against
	// concurrent writers. Bumped inside every transaction that mutates
	// the bracket.
	Version int `json:"-" db:"version"`

	Participants []BracketParticipant `json:"participants,omitempty" db:"-"`
	Matches      []BracketMatch       `json:"matches,omitempty" db:"-"`
}

// BracketParticipant is one seeded entrant. Number doubles as the seed:
// participants are created in roster order, so number 1 is the top seed.
type BracketParticipant struct {
	BracketID int    `json:"bracket_id" db:"bracket_id"`
	Number    int    `json:"number" db:"number"`
	Name      string `json:"name" db:"name"`
	TeamID    int    `json:"team_id" db:"team_id"`
}

// BracketMatch is one node of the tree. An opponent slot holds either a
// participant number or, while still awaiting an upstream winner, a source
// match number. NextMatch/NextSlot point at the slot that receives this
// match's winner; both are nil for the final.
type BracketMatch struct {
	ID                int                `json:"-" db:"id"`
	BracketID         int                `json:"bracket_id" db:"bracket_id"`
	MatchNumber       int                `json:"match_number" db:"match_number"`
	Round             int                `json:"round" db:"round"`
	OrderInRound      int                `json:"order_in_round" db:"order_in_round"`
	Participant1      *int               `json:"participant1,omitempty" db:"participant1"`
	Participant2      *int               `json:"participant2,omitempty" db:"participant2"`
	SourceMatch1      *int               `json:"source_match1,omitempty" db:"source_match1"`
	SourceMatch2      *int               `json:"source_match2,omitempty" db:"source_match2"`
	Score1            *int               `json:"score1,omitempty" db:"score1"`
	Score2            *int               `json:"score2,omitempty" db:"score2"`
	Status            BracketMatchStatus `json:"status" db:"status"`
	WinnerParticipant *int               `json:"winner_participant,omitempty" db:"winner_participant"`
	NextMatch         *int               `json:"next_match,omitempty" db:"next_match"`
	NextSlot          *int               `json:"next_slot,omitempty" db:"next_slot"`
}
