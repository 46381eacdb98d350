package models

// Round is one progression stage of a tournament. Round numbers are
// contiguous starting at 1; deleting a round renumbers the rounds after it.
type Round struct {
	ID              int    `json:"id" db:"id"`
	TournamentID    int    `json:"tournament_id" db:"tournament_id"`
	RoundNumber     int    `json:"round_number" db:"round_number"`
	Name            string `json:"name" db:"name"`
	TeamsPerGroup   int    `json:"teams_per_group" db:"teams_per_group"`
	MatchesPerGroup int    `json:"matches_per_group" db:"matches_per_group"`

	// GroupsVersion guards the round's group list against concurrent
	// regeneration. Bumped inside every transaction that rewrites the list.
	GroupsVersion int `json:"-" db:"groups_version"`

	Groups []Group `json:"groups,omitempty" db:"-"`
}
