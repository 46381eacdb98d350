package models

import "time"

// Group is a fixed-size cluster of teams competing within a round.
// Scheduling fields (map, room credentials, stream link) are filled in by
// organizers after generation; the engines only read them back.
type Group struct {
	ID           int        `json:"id" db:"id"`
	TournamentID int        `json:"tournament_id" db:"tournament_id"`
	RoundID      int        `json:"round_id" db:"round_id"`
	GroupNumber  int        `json:"group_number" db:"group_number"`
	MapName      string     `json:"map,omitempty" db:"map_name"`
	Mode         string     `json:"mode,omitempty" db:"mode"`
	RoomID       string     `json:"room_id,omitempty" db:"room_id"`
	RoomPass     string     `json:"room_pass,omitempty" db:"room_pass"`
	StreamLink   string     `json:"stream_link,omitempty" db:"stream_link"`
	Note         string     `json:"note,omitempty" db:"note"`
	StartTime    *time.Time `json:"start_time,omitempty" db:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty" db:"end_time"`

	Slots []TeamSlot `json:"slots,omitempty" db:"-"`
}

// TeamSlot is a team's placement within a group. Points accumulators and the
// qualified flag are written by the external scoring flow; the group engine
// consumes them when building the next round.
type TeamSlot struct {
	GroupID    int  `json:"group_id" db:"group_id"`
	Slot       int  `json:"slot" db:"slot"`
	TeamID     int  `json:"team_id" db:"team_id"`
	Points     int  `json:"points" db:"points"`
	KillPoints int  `json:"kill_points" db:"kill_points"`
	RankPoints int  `json:"rank_points" db:"rank_points"`
	Qualified  bool `json:"qualified" db:"qualified"`

	Team *Team `json:"team,omitempty" db:"-"`
}
