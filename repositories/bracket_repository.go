package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yash560/3not3-server/models"
)

var (
	ErrBracketNotFound      = errors.New("bracket not found")
	ErrBracketMatchNotFound = errors.New("bracket match not found")

	// ErrBracketVersionConflict signals a concurrent bracket mutation.
	// Retryable after re-reading state.
	ErrBracketVersionConflict = errors.New("bracket was modified concurrently")
)

type BracketRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Bracket, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error

	CreateParticipant(ctx context.Context, exec SQLExecutor, participant *models.BracketParticipant) error
	ListParticipants(ctx context.Context, exec SQLExecutor, bracketID int) ([]models.BracketParticipant, error)

	CreateMatch(ctx context.Context, exec SQLExecutor, match *models.BracketMatch) error
	ListMatches(ctx context.Context, exec SQLExecutor, bracketID int) ([]models.BracketMatch, error)
	GetMatchByNumber(ctx context.Context, exec SQLExecutor, bracketID, matchNumber int) (*models.BracketMatch, error)
	UpdateMatchResult(ctx context.Context, exec SQLExecutor, match *models.BracketMatch) error
	SetMatchOpponent(ctx context.Context, exec SQLExecutor, bracketID, matchNumber, slot, participantNumber int, status models.BracketMatchStatus) error

	// BumpVersion is the compare-and-swap guarding every bracket
	// mutation: it only succeeds when the stored version still equals
	// expectedVersion.
	BumpVersion(ctx context.Context, exec SQLExecutor, bracketID, expectedVersion int) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresBracketRepository) Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO brackets (tournament_id, name)
		VALUES ($1, $2)
		RETURNING id, version, created_at`

	return executor.QueryRowContext(ctx, query, bracket.TournamentID, bracket.Name).
		Scan(&bracket.ID, &bracket.Version, &bracket.CreatedAt)
}

func (r *postgresBracketRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Bracket, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, name, version, created_at
		FROM brackets
		WHERE id = $1`

	bracket := &models.Bracket{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&bracket.ID, &bracket.TournamentID, &bracket.Name, &bracket.Version, &bracket.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}
	return bracket, nil
}

func (r *postgresBracketRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM brackets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

func (r *postgresBracketRepository) CreateParticipant(ctx context.Context, exec SQLExecutor, p *models.BracketParticipant) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO bracket_participants (bracket_id, number, name, team_id)
		VALUES ($1, $2, $3, $4)`

	_, err := executor.ExecContext(ctx, query, p.BracketID, p.Number, p.Name, p.TeamID)
	return err
}

func (r *postgresBracketRepository) ListParticipants(ctx context.Context, exec SQLExecutor, bracketID int) ([]models.BracketParticipant, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT bracket_id, number, name, team_id
		FROM bracket_participants
		WHERE bracket_id = $1
		ORDER BY number ASC`

	rows, err := executor.QueryContext(ctx, query, bracketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.BracketParticipant, 0)
	for rows.Next() {
		var p models.BracketParticipant
		if scanErr := rows.Scan(&p.BracketID, &p.Number, &p.Name, &p.TeamID); scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *postgresBracketRepository) CreateMatch(ctx context.Context, exec SQLExecutor, m *models.BracketMatch) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO bracket_matches
			(bracket_id, match_number, round, order_in_round,
			 participant1, participant2, source_match1, source_match2,
			 status, next_match, next_slot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	return executor.QueryRowContext(ctx, query,
		m.BracketID, m.MatchNumber, m.Round, m.OrderInRound,
		m.Participant1, m.Participant2, m.SourceMatch1, m.SourceMatch2,
		m.Status, m.NextMatch, m.NextSlot,
	).Scan(&m.ID)
}

const bracketMatchColumns = `
	id, bracket_id, match_number, round, order_in_round,
	participant1, participant2, source_match1, source_match2,
	score1, score2, status, winner_participant, next_match, next_slot`

func scanBracketMatch(row interface{ Scan(...interface{}) error }, m *models.BracketMatch) error {
	return row.Scan(
		&m.ID, &m.BracketID, &m.MatchNumber, &m.Round, &m.OrderInRound,
		&m.Participant1, &m.Participant2, &m.SourceMatch1, &m.SourceMatch2,
		&m.Score1, &m.Score2, &m.Status, &m.WinnerParticipant, &m.NextMatch, &m.NextSlot,
	)
}

func (r *postgresBracketRepository) ListMatches(ctx context.Context, exec SQLExecutor, bracketID int) ([]models.BracketMatch, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + bracketMatchColumns + `
		FROM bracket_matches
		WHERE bracket_id = $1
		ORDER BY round ASC, order_in_round ASC`

	rows, err := executor.QueryContext(ctx, query, bracketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]models.BracketMatch, 0)
	for rows.Next() {
		var m models.BracketMatch
		if scanErr := scanBracketMatch(rows, &m); scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresBracketRepository) GetMatchByNumber(ctx context.Context, exec SQLExecutor, bracketID, matchNumber int) (*models.BracketMatch, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + bracketMatchColumns + `
		FROM bracket_matches
		WHERE bracket_id = $1 AND match_number = $2`

	m := &models.BracketMatch{}
	err := scanBracketMatch(executor.QueryRowContext(ctx, query, bracketID, matchNumber), m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresBracketRepository) UpdateMatchResult(ctx context.Context, exec SQLExecutor, m *models.BracketMatch) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE bracket_matches SET
			score1 = $1,
			score2 = $2,
			status = $3,
			winner_participant = $4
		WHERE bracket_id = $5 AND match_number = $6`

	result, err := executor.ExecContext(ctx, query,
		m.Score1, m.Score2, m.Status, m.WinnerParticipant,
		m.BracketID, m.MatchNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to update match %d of bracket %d: %w", m.MatchNumber, m.BracketID, err)
	}
	return checkAffectedRows(result, ErrBracketMatchNotFound)
}

func (r *postgresBracketRepository) SetMatchOpponent(ctx context.Context, exec SQLExecutor, bracketID, matchNumber, slot, participantNumber int, status models.BracketMatchStatus) error {
	executor := r.getExecutor(exec)
	column := "participant1"
	if slot == 2 {
		column = "participant2"
	}
	query := fmt.Sprintf(
		`UPDATE bracket_matches SET %s = $1, status = $2 WHERE bracket_id = $3 AND match_number = $4`,
		column,
	)

	result, err := executor.ExecContext(ctx, query, participantNumber, status, bracketID, matchNumber)
	if err != nil {
		return fmt.Errorf("failed to set opponent %d of match %d: %w", slot, matchNumber, err)
	}
	return checkAffectedRows(result, ErrBracketMatchNotFound)
}

func (r *postgresBracketRepository) BumpVersion(ctx context.Context, exec SQLExecutor, bracketID, expectedVersion int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE brackets SET version = version + 1 WHERE id = $1 AND version = $2`,
		bracketID, expectedVersion,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrBracketVersionConflict)
}
