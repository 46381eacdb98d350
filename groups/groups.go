// Package groups holds the pure partitioning and filtering logic used to
// populate a round's groups. Nothing here touches storage: produced groups
// are unsaved and persistence is the caller's responsibility.
package groups

import (
	"errors"
	"math/rand"

	"github.com/yash560/3not3-server/models"
)

var ErrInvalidTeamsPerGroup = errors.New("teams per group must be a positive integer")

// PartitionIntoGroups splits teamIDs into groups of teamsPerGroup in input
// order: the first teamsPerGroup teams form group 1 and so on. The final
// group may be smaller. Slot numbers are 1-based within each group. An empty
// team list produces zero groups.
func PartitionIntoGroups(teamIDs []int, teamsPerGroup int) ([]models.Group, error) {
	if teamsPerGroup <= 0 {
		return nil, ErrInvalidTeamsPerGroup
	}

	result := make([]models.Group, 0, (len(teamIDs)+teamsPerGroup-1)/teamsPerGroup)
	for i, teamID := range teamIDs {
		if i%teamsPerGroup == 0 {
			result = append(result, models.Group{
				GroupNumber: i/teamsPerGroup + 1,
			})
		}
		grp := &result[len(result)-1]
		grp.Slots = append(grp.Slots, models.TeamSlot{
			Slot:   len(grp.Slots) + 1,
			TeamID: teamID,
		})
	}
	return result, nil
}

// SelectTopByScore takes the first topN slots of every group, in group then
// slot order. Groups are expected to already be sorted into placement order
// by the external scoring flow, so no re-sorting happens here. Groups shorter
// than topN contribute all their slots.
func SelectTopByScore(grps []models.Group, topN int) []int {
	teamIDs := make([]int, 0, len(grps)*topN)
	for _, grp := range grps {
		for i, slot := range grp.Slots {
			if i >= topN {
				break
			}
			teamIDs = append(teamIDs, slot.TeamID)
		}
	}
	return teamIDs
}

// SelectQualified returns every team whose slot carries the qualified flag,
// in group then slot order.
func SelectQualified(grps []models.Group) []int {
	var teamIDs []int
	for _, grp := range grps {
		for _, slot := range grp.Slots {
			if slot.Qualified {
				teamIDs = append(teamIDs, slot.TeamID)
			}
		}
	}
	return teamIDs
}

// Shuffle returns a uniformly random permutation of teamIDs. The input slice
// is left untouched.
func Shuffle(teamIDs []int) []int {
	shuffled := make([]int, len(teamIDs))
	copy(shuffled, teamIDs)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
