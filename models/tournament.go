package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	StatusUpcoming   TournamentStatus = "upcoming"
	StatusStarted    TournamentStatus = "started"
	StatusInProgress TournamentStatus = "inprogress"
	StatusCompleted  TournamentStatus = "completed"
)

type Tournament struct {
	ID        int              `json:"id" db:"id"`
	Name      string           `json:"name" db:"name"`
	GameName  string           `json:"game_name" db:"game_name"`
	GameMode  string           `json:"game_mode" db:"game_mode"`
	MaxTeams  int              `json:"max_teams" db:"max_teams"`
	Status    TournamentStatus `json:"status" db:"status"`
	BracketID *int             `json:"bracket_id,omitempty" db:"bracket_id"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`

	// Related entities, loaded on demand.
	Teams  []Team  `json:"teams,omitempty" db:"-"`
	Rounds []Round `json:"rounds,omitempty" db:"-"`
}
