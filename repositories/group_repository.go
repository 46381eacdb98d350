package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/yash560/3not3-server/models"
)

var (
	ErrGroupNotFound     = errors.New("group not found")
	ErrGroupSlotNotFound = errors.New("group slot not found")
)

type GroupRepository interface {
	// Create inserts the group row and all of its team slots.
	Create(ctx context.Context, exec SQLExecutor, group *models.Group) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Group, error)
	ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]models.Group, error)
	DeleteByRound(ctx context.Context, exec SQLExecutor, roundID int) error
	UpdateDetails(ctx context.Context, exec SQLExecutor, group *models.Group) error
	UpdateSlotScores(ctx context.Context, exec SQLExecutor, slot *models.TeamSlot) error
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGroupRepository) Create(ctx context.Context, exec SQLExecutor, group *models.Group) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO groups (tournament_id, round_id, group_number, map_name, mode, room_id, room_pass, stream_link, note, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		group.TournamentID, group.RoundID, group.GroupNumber,
		group.MapName, group.Mode, group.RoomID, group.RoomPass,
		group.StreamLink, group.Note, group.StartTime, group.EndTime,
	).Scan(&group.ID)
	if err != nil {
		return err
	}

	slotQuery := `
		INSERT INTO group_slots (group_id, slot, team_id, points, kill_points, rank_points, qualified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range group.Slots {
		s := &group.Slots[i]
		s.GroupID = group.ID
		if _, err := executor.ExecContext(ctx, slotQuery,
			s.GroupID, s.Slot, s.TeamID, s.Points, s.KillPoints, s.RankPoints, s.Qualified,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresGroupRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Group, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, round_id, group_number, map_name, mode, room_id, room_pass, stream_link, note, start_time, end_time
		FROM groups
		WHERE id = $1`

	group := &models.Group{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&group.ID, &group.TournamentID, &group.RoundID, &group.GroupNumber,
		&group.MapName, &group.Mode, &group.RoomID, &group.RoomPass,
		&group.StreamLink, &group.Note, &group.StartTime, &group.EndTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	if err := r.attachSlots(ctx, executor, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *postgresGroupRepository) ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]models.Group, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, round_id, group_number, map_name, mode, room_id, room_pass, stream_link, note, start_time, end_time
		FROM groups
		WHERE round_id = $1
		ORDER BY group_number ASC`

	rows, err := executor.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]models.Group, 0)
	for rows.Next() {
		var group models.Group
		if scanErr := rows.Scan(
			&group.ID, &group.TournamentID, &group.RoundID, &group.GroupNumber,
			&group.MapName, &group.Mode, &group.RoomID, &group.RoomPass,
			&group.StreamLink, &group.Note, &group.StartTime, &group.EndTime,
		); scanErr != nil {
			return nil, scanErr
		}
		result = append(result, group)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		if err := r.attachSlots(ctx, executor, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *postgresGroupRepository) DeleteByRound(ctx context.Context, exec SQLExecutor, roundID int) error {
	executor := r.getExecutor(exec)
	// group_slots rows go with their group via ON DELETE CASCADE.
	_, err := executor.ExecContext(ctx, `DELETE FROM groups WHERE round_id = $1`, roundID)
	return err
}

func (r *postgresGroupRepository) UpdateDetails(ctx context.Context, exec SQLExecutor, group *models.Group) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE groups SET
			map_name = $1,
			mode = $2,
			room_id = $3,
			room_pass = $4,
			stream_link = $5,
			note = $6,
			start_time = $7,
			end_time = $8
		WHERE id = $9`

	result, err := executor.ExecContext(ctx, query,
		group.MapName, group.Mode, group.RoomID, group.RoomPass,
		group.StreamLink, group.Note, group.StartTime, group.EndTime,
		group.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}

func (r *postgresGroupRepository) UpdateSlotScores(ctx context.Context, exec SQLExecutor, slot *models.TeamSlot) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE group_slots SET
			points = $1,
			kill_points = $2,
			rank_points = $3,
			qualified = $4
		WHERE group_id = $5 AND slot = $6`

	result, err := executor.ExecContext(ctx, query,
		slot.Points, slot.KillPoints, slot.RankPoints, slot.Qualified,
		slot.GroupID, slot.Slot,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGroupSlotNotFound)
}

func (r *postgresGroupRepository) attachSlots(ctx context.Context, executor SQLExecutor, group *models.Group) error {
	query := `
		SELECT group_id, slot, team_id, points, kill_points, rank_points, qualified
		FROM group_slots
		WHERE group_id = $1
		ORDER BY slot ASC`

	rows, err := executor.QueryContext(ctx, query, group.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	slots := make([]models.TeamSlot, 0)
	for rows.Next() {
		var s models.TeamSlot
		if scanErr := rows.Scan(
			&s.GroupID, &s.Slot, &s.TeamID, &s.Points, &s.KillPoints, &s.RankPoints, &s.Qualified,
		); scanErr != nil {
			return scanErr
		}
		slots = append(slots, s)
	}
	if err = rows.Err(); err != nil {
		return err
	}
	group.Slots = slots
	return nil
}
