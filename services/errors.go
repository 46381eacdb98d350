package services

import "errors"

// Errors shared across services and the HTTP error mapping.
var (
	// Not-found errors
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrRoundNotFound      = errors.New("round not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrGroupSlotNotFound  = errors.New("group slot not found")
	ErrBracketNotFound    = errors.New("bracket not found")
	ErrMatchNotFound      = errors.New("bracket match not found")

	// Validation and business-rule errors
	ErrTournamentNameRequired      = errors.New("tournament name is required")
	ErrTournamentGameRequired      = errors.New("tournament game name is required")
	ErrTournamentInvalidCapacity   = errors.New("tournament max teams must be positive")
	ErrTournamentInvalidStatus     = errors.New("invalid tournament status provided")
	ErrTournamentInvalidTransition = errors.New("invalid tournament status transition")
	ErrTournamentFull              = errors.New("tournament roster is full")
	ErrRegistrationClosed          = errors.New("tournament registration is closed")
	ErrTeamNameRequired            = errors.New("team name is required")
	ErrRoundInvalidSpec            = errors.New("round teams per group must be a positive integer")
	ErrInvalidSource               = errors.New("invalid team source for this round")
	ErrUnsupportedResult           = errors.New("result cannot be applied in a single elimination bracket")
	ErrMatchNotReady               = errors.New("match opponents are not resolved yet")
	ErrMatchAlreadyCompleted       = errors.New("match already has a conflicting recorded result")
	ErrBracketAlreadyExists        = errors.New("tournament already has a bracket")
	ErrNotEnoughTeams              = errors.New("not enough teams to generate a bracket (minimum 2)")

	// Conflict errors
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrTeamNameConflict       = errors.New("team name is already in use")
	ErrTeamAlreadyRegistered  = errors.New("team is already registered for this tournament")

	// ErrConcurrentModification surfaces after the bounded internal
	// retries on a version conflict are exhausted.
	ErrConcurrentModification = errors.New("resource was modified concurrently, please retry")
)
