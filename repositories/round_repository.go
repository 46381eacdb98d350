package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/yash560/3not3-server/models"
)

var (
	ErrRoundNotFound       = errors.New("round not found")
	ErrRoundNumberConflict = errors.New("round number conflict for this tournament")

	// ErrRoundVersionConflict signals that another writer rewrote the
	// round's group list between read and write. Retryable.
	ErrRoundVersionConflict = errors.New("round group list was modified concurrently")
)

type RoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, round *models.Round) error
	GetByNumber(ctx context.Context, exec SQLExecutor, tournamentID, roundNumber int) (*models.Round, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Round, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error

	// ShiftNumbersAfter renumbers every round after roundNumber down by
	// one, closing the gap left by a deletion.
	ShiftNumbersAfter(ctx context.Context, exec SQLExecutor, tournamentID, roundNumber int) error

	// BumpGroupsVersion is the compare-and-swap half of group
	// regeneration: it only succeeds when the stored version still equals
	// expectedVersion.
	BumpGroupsVersion(ctx context.Context, exec SQLExecutor, roundID, expectedVersion int) error
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRoundRepository) Create(ctx context.Context, exec SQLExecutor, round *models.Round) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rounds (tournament_id, round_number, name, teams_per_group, matches_per_group)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, groups_version`

	err := executor.QueryRowContext(ctx, query,
		round.TournamentID, round.RoundNumber, round.Name, round.TeamsPerGroup, round.MatchesPerGroup,
	).Scan(&round.ID, &round.GroupsVersion)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrRoundNumberConflict
		}
		return err
	}
	return nil
}

func (r *postgresRoundRepository) GetByNumber(ctx context.Context, exec SQLExecutor, tournamentID, roundNumber int) (*models.Round, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, round_number, name, teams_per_group, matches_per_group, groups_version
		FROM rounds
		WHERE tournament_id = $1 AND round_number = $2`

	round := &models.Round{}
	err := executor.QueryRowContext(ctx, query, tournamentID, roundNumber).Scan(
		&round.ID, &round.TournamentID, &round.RoundNumber, &round.Name,
		&round.TeamsPerGroup, &round.MatchesPerGroup, &round.GroupsVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return round, nil
}

func (r *postgresRoundRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Round, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, round_number, name, teams_per_group, matches_per_group, groups_version
		FROM rounds
		WHERE tournament_id = $1
		ORDER BY round_number ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := make([]models.Round, 0)
	for rows.Next() {
		var round models.Round
		if scanErr := rows.Scan(
			&round.ID, &round.TournamentID, &round.RoundNumber, &round.Name,
			&round.TeamsPerGroup, &round.MatchesPerGroup, &round.GroupsVersion,
		); scanErr != nil {
			return nil, scanErr
		}
		rounds = append(rounds, round)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return rounds, nil
}

func (r *postgresRoundRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rounds WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresRoundRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM rounds WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) ShiftNumbersAfter(ctx context.Context, exec SQLExecutor, tournamentID, roundNumber int) error {
	executor := r.getExecutor(exec)
	// The unique (tournament_id, round_number) constraint is deferred, so
	// the single-statement shift cannot trip over itself mid-update.
	_, err := executor.ExecContext(ctx,
		`UPDATE rounds SET round_number = round_number - 1 WHERE tournament_id = $1 AND round_number > $2`,
		tournamentID, roundNumber,
	)
	return err
}

func (r *postgresRoundRepository) BumpGroupsVersion(ctx context.Context, exec SQLExecutor, roundID, expectedVersion int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE rounds SET groups_version = groups_version + 1 WHERE id = $1 AND groups_version = $2`,
		roundID, expectedVersion,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundVersionConflict)
}
