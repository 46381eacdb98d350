package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yash560/3not3-server/brackets"
	"github.com/yash560/3not3-server/models"
	"github.com/yash560/3not3-server/repositories"
)

type roundServiceFixture struct {
	service        RoundService
	transactor     *fakeTransactor
	tournamentRepo *fakeTournamentRepo
	roundRepo      *fakeRoundRepo
	groupRepo      *fakeGroupRepo
}

func newRoundServiceFixture(t *testing.T, rosterSize int) *roundServiceFixture {
	t.Helper()

	tournamentRepo := newFakeTournamentRepo()
	tournamentRepo.tournaments[1] = &models.Tournament{
		ID:       1,
		Name:     "Winter Invitational",
		GameName: "BGMI",
		MaxTeams: 32,
		Status:   models.StatusStarted,
	}
	for i := 1; i <= rosterSize; i++ {
		tournamentRepo.rosters[1] = append(tournamentRepo.rosters[1], models.Team{
			ID:   i,
			Name: fmt.Sprintf("Team %d", i),
		})
	}

	transactor := &fakeTransactor{}
	roundRepo := newFakeRoundRepo()
	groupRepo := newFakeGroupRepo()

	return &roundServiceFixture{
		service:        NewRoundService(transactor, tournamentRepo, roundRepo, groupRepo, brackets.NewHub(), testLogger()),
		transactor:     transactor,
		tournamentRepo: tournamentRepo,
		roundRepo:      roundRepo,
		groupRepo:      groupRepo,
	}
}

func TestCreateRound(t *testing.T) {
	t.Run("appends with the next round number", func(t *testing.T) {
		f := newRoundServiceFixture(t, 16)

		first, err := f.service.CreateRound(context.Background(), 1, CreateRoundInput{TeamsPerGroup: 4})
		require.NoError(t, err)
		assert.Equal(t, 1, first.RoundNumber)
		assert.Equal(t, "Round 1", first.Name)

		second, err := f.service.CreateRound(context.Background(), 1, CreateRoundInput{Name: "Finals", TeamsPerGroup: 4})
		require.NoError(t, err)
		assert.Equal(t, 2, second.RoundNumber)
		assert.Equal(t, "Finals", second.Name)
	})

	t.Run("rejects non-positive group size", func(t *testing.T) {
		f := newRoundServiceFixture(t, 16)

		_, err := f.service.CreateRound(context.Background(), 1, CreateRoundInput{TeamsPerGroup: 0})
		assert.ErrorIs(t, err, ErrRoundInvalidSpec)
	})

	t.Run("unknown tournament", func(t *testing.T) {
		f := newRoundServiceFixture(t, 16)

		_, err := f.service.CreateRound(context.Background(), 99, CreateRoundInput{TeamsPerGroup: 4})
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})
}

func TestGenerateGroupsProgression(t *testing.T) {
	f := newRoundServiceFixture(t, 16)
	ctx := context.Background()

	_, err := f.service.CreateRound(ctx, 1, CreateRoundInput{TeamsPerGroup: 4})
	require.NoError(t, err)

	round1, err := f.service.GenerateGroups(ctx, 1, 1, GenerateGroupsInput{
		Source:        SourceInitial,
		TeamsPerGroup: 4,
	})
	require.NoError(t, err)
	require.Len(t, round1.Groups, 4)
	for _, grp := range round1.Groups {
		assert.Len(t, grp.Slots, 4)
	}

	// Round 2 seeds from the top two slots of every round 1 group.
	_, err = f.service.CreateRound(ctx, 1, CreateRoundInput{TeamsPerGroup: 4})
	require.NoError(t, err)

	round2, err := f.service.GenerateGroups(ctx, 1, 2, GenerateGroupsInput{
		Source:        SourceTopScore,
		TopN:          2,
		TeamsPerGroup: 4,
	})
	require.NoError(t, err)
	require.Len(t, round2.Groups, 2)
	for _, grp := range round2.Groups {
		assert.Len(t, grp.Slots, 4)
	}

	var advanced []int
	for _, grp := range round2.Groups {
		for _, slot := range grp.Slots {
			advanced = append(advanced, slot.TeamID)
		}
	}
	assert.Equal(t, []int{1, 2, 5, 6, 9, 10, 13, 14}, advanced)
}

func TestGenerateGroupsQualifiedSource(t *testing.T) {
	f := newRoundServiceFixture(t, 8)
	ctx := context.Background()

	_, err := f.service.CreateRound(ctx, 1, CreateRoundInput{TeamsPerGroup: 4})
	require.NoError(t, err)
	round1, err := f.service.GenerateGroups(ctx, 1, 1, GenerateGroupsInput{
		Source:        SourceInitial,
		TeamsPerGroup: 4,
	})
	require.NoError(t, err)

	qualified := true
	for _, grp := range round1.Groups {
		_, err := f.service.UpdateSlotScores(ctx, grp.ID, 1, SlotScoresInput{Qualified: &qualified})
		require.NoError(t, err)
	}

	_, err = f.service.CreateRound(ctx, 1, CreateRoundInput{TeamsPerGroup: 2})
	require.NoError(t, err)
	round2, err := f.service.GenerateGroups(ctx, 1, 2, GenerateGroupsInput{
		Source:        SourceQualified,
		TeamsPerGroup: 2,
	})
	require.NoError(t, err)

	require.Len(t, round2.Groups, 1)
	require.Len(t, round2.Groups[0].Slots, 2)
	assert.Equal(t, 1, round2.Groups[0].Slots[0].TeamID)
	assert.Equal(t, 5, round2.Groups[0].Slots[1].TeamID)
}

func TestGenerateGroupsValidation(t *testing.T) {
	f := newRoundServiceFixture(t, 16)
	ctx := context.Background()

	_, err := f.service.CreateRound(ctx, 1, CreateRoundInput{TeamsPerGroup: 4})
	require.NoError(t, err)
	_, err = f.service.CreateRound(ctx, 1, CreateRoundInput{TeamsPerGroup: 4})
	require.NoError(t, err)

	t.Run("unknown source", func(t *testing.T) {
		_, err := f.service.GenerateGroups(ctx, 1, 1, GenerateGroupsInput{
			Source:        GroupSource("random"),
			TeamsPerGroup: 4,
		})
		assert.ErrorIs(t, err, ErrInvalidSource)
	})

	t.Run("top score invalid for round 1", func(t *testing.T) {
		_, err := f.service.GenerateGroups(ctx, 1, 1, GenerateGroupsInput{
			Source:        SourceTopScore,
			TopN:          2,
			TeamsPerGroup: 4,
		})
		assert.ErrorIs(t, err, ErrInvalidSource)
	})

	t.Run("initial invalid past round 1", func(t *testing.T) {
		_, err := f.service.GenerateGroups(ctx, 1, 2, GenerateGroupsInput{
			Source:        SourceInitial,
			TeamsPerGroup: 4,
		})
		assert.ErrorIs(t, err, ErrInvalidSource)
	})

	t.Run("empty selection rejected unless allowed", func(t *testing.T) {
		// Round 1 has no groups yet, so a qualified source finds nobody.
		_, err := f.service.GenerateGroups(ctx, 1, 2, GenerateGroupsInput{
			Source:        SourceQualified,
			TeamsPerGroup: 4,
		})
		assert.ErrorIs(t, err, ErrInvalidSource)

		round, err := f.service.GenerateGroups(ctx, 1, 2, GenerateGroupsInput{
			Source:        SourceQualified,
			TeamsPerGroup: 4,
			AllowEmpty:    true,
		})
		require.NoError(t, err)
		assert.Empty(t, round.Groups)
	})

	t.Run("unknown round", func(t *testing.T) {
		_, err := f.service.GenerateGroups(ctx, 1, 9, GenerateGroupsInput{
			Source:        SourceInitial,
			TeamsPerGroup: 4,
		})
		assert.ErrorIs(t, err, ErrRoundNotFound)
	})
}

func TestGenerateGroupsReplacesPreviousGeneration(t *testing.T) {
	f := newRoundServiceFixture(t, 8)
	ctx := context.Background()

	_, err := f.service.CreateRound(ctx, 1, CreateRoundInput{TeamsPerGroup: 4})
	require.NoError(t, err)

	first, err := f.service.GenerateGroups(ctx, 1, 1, GenerateGroupsInput{
		Source:        SourceInitial,
		TeamsPerGroup: 4,
	})
	require.NoError(t, err)
	require.Len(t, first.Groups, 2)

	second, err := f.service.GenerateGroups(ctx, 1, 1, GenerateGroupsInput{
		Source:        SourceInitial,
		TeamsPerGroup: 2,
	})
	require.NoError(t, err)
	require.Len(t, second.Groups, 4)

	stored, err := f.service.GetRoundGroups(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, stored, 4, "previous groups must be gone")
}

func TestGenerateGroupsConcurrentModification(t *testing.T) {
	f := newRoundServiceFixture(t, 8)
	ctx := context.Background()

	_, err := f.service.CreateRound(ctx, 1, CreateRoundInput{TeamsPerGroup: 4})
	require.NoError(t, err)

	f.roundRepo.bumpErr = repositories.ErrRoundVersionConflict

	_, err = f.service.GenerateGroups(ctx, 1, 1, GenerateGroupsInput{
		Source:        SourceInitial,
		TeamsPerGroup: 4,
	})
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestDeleteRoundRenumbersLaterRounds(t *testing.T) {
	f := newRoundServiceFixture(t, 16)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.service.CreateRound(ctx, 1, CreateRoundInput{TeamsPerGroup: 4})
		require.NoError(t, err)
	}
	_, err := f.service.GenerateGroups(ctx, 1, 1, GenerateGroupsInput{
		Source:        SourceInitial,
		TeamsPerGroup: 4,
	})
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteRound(ctx, 1, 2))

	rounds, err := f.roundRepo.ListByTournament(ctx, nil, 1)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, 1, rounds[0].RoundNumber)
	assert.Equal(t, 2, rounds[1].RoundNumber)

	// The surviving rounds kept their groups.
	grps, err := f.service.GetRoundGroups(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, grps, 4)

	assert.ErrorIs(t, f.service.DeleteRound(ctx, 1, 3), ErrRoundNotFound)
}

func TestDeleteRoundRemovesItsGroups(t *testing.T) {
	f := newRoundServiceFixture(t, 8)
	ctx := context.Background()

	_, err := f.service.CreateRound(ctx, 1, CreateRoundInput{TeamsPerGroup: 4})
	require.NoError(t, err)
	round, err := f.service.GenerateGroups(ctx, 1, 1, GenerateGroupsInput{
		Source:        SourceInitial,
		TeamsPerGroup: 4,
	})
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteRound(ctx, 1, 1))

	remaining, err := f.groupRepo.ListByRound(ctx, nil, round.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestUpdateGroupDetails(t *testing.T) {
	f := newRoundServiceFixture(t, 8)
	ctx := context.Background()

	_, err := f.service.CreateRound(ctx, 1, CreateRoundInput{TeamsPerGroup: 4})
	require.NoError(t, err)
	round, err := f.service.GenerateGroups(ctx, 1, 1, GenerateGroupsInput{
		Source:        SourceInitial,
		TeamsPerGroup: 4,
	})
	require.NoError(t, err)

	mapName := "Erangel"
	roomID := "56421"
	group, err := f.service.UpdateGroupDetails(ctx, round.Groups[0].ID, UpdateGroupDetailsInput{
		MapName: &mapName,
		RoomID:  &roomID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Erangel", group.MapName)
	assert.Equal(t, "56421", group.RoomID)

	stored, err := f.groupRepo.GetByID(ctx, nil, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Erangel", stored.MapName)

	_, err = f.service.UpdateGroupDetails(ctx, 999, UpdateGroupDetailsInput{MapName: &mapName})
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestUpdateSlotScores(t *testing.T) {
	f := newRoundServiceFixture(t, 8)
	ctx := context.Background()

	_, err := f.service.CreateRound(ctx, 1, CreateRoundInput{TeamsPerGroup: 4})
	require.NoError(t, err)
	round, err := f.service.GenerateGroups(ctx, 1, 1, GenerateGroupsInput{
		Source:        SourceInitial,
		TeamsPerGroup: 4,
	})
	require.NoError(t, err)
	groupID := round.Groups[0].ID

	points := 15
	kills := 7
	qualified := true
	group, err := f.service.UpdateSlotScores(ctx, groupID, 2, SlotScoresInput{
		Points:     &points,
		KillPoints: &kills,
		Qualified:  &qualified,
	})
	require.NoError(t, err)

	slot := group.Slots[1]
	assert.Equal(t, 15, slot.Points)
	assert.Equal(t, 7, slot.KillPoints)
	assert.True(t, slot.Qualified)

	_, err = f.service.UpdateSlotScores(ctx, groupID, 9, SlotScoresInput{Points: &points})
	assert.ErrorIs(t, err, ErrGroupSlotNotFound)

	_, err = f.service.UpdateSlotScores(ctx, 999, 1, SlotScoresInput{Points: &points})
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestGenerateGroupsShuffleKeepsRoster(t *testing.T) {
	f := newRoundServiceFixture(t, 8)
	ctx := context.Background()

	_, err := f.service.CreateRound(ctx, 1, CreateRoundInput{TeamsPerGroup: 4})
	require.NoError(t, err)
	round, err := f.service.GenerateGroups(ctx, 1, 1, GenerateGroupsInput{
		Source:        SourceInitial,
		TeamsPerGroup: 4,
		Shuffle:       true,
	})
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, grp := range round.Groups {
		for _, slot := range grp.Slots {
			assert.False(t, seen[slot.TeamID], "team %d assigned twice", slot.TeamID)
			seen[slot.TeamID] = true
		}
	}
	assert.Len(t, seen, 8)

	var unknown []int
	for teamID := range seen {
		if teamID < 1 || teamID > 8 {
			unknown = append(unknown, teamID)
		}
	}
	assert.Empty(t, unknown)
}
