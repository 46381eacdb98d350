package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pair(m *Match) (int, int) {
	var s1, s2 int
	if m.Seed1 != nil {
		s1 = *m.Seed1
	}
	if m.Seed2 != nil {
		s2 = *m.Seed2
	}
	return s1, s2
}

func TestGenerateEightEntrants(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	matches, err := gen.Generate(context.Background(), GenerateParams{
		Entrants:    8,
		BalanceByes: true,
	})
	require.NoError(t, err)
	require.Len(t, matches, 7)

	var rounds [4][]*Match
	for _, m := range matches {
		require.GreaterOrEqual(t, m.Round, 1)
		require.LessOrEqual(t, m.Round, 3)
		rounds[m.Round] = append(rounds[m.Round], m)
	}
	assert.Len(t, rounds[1], 4)
	assert.Len(t, rounds[2], 2)
	assert.Len(t, rounds[3], 1)

	s1, s2 := pair(rounds[1][0])
	assert.Equal(t, [2]int{1, 8}, [2]int{s1, s2})
	s1, s2 = pair(rounds[1][1])
	assert.Equal(t, [2]int{4, 5}, [2]int{s1, s2})
	s1, s2 = pair(rounds[1][2])
	assert.Equal(t, [2]int{2, 7}, [2]int{s1, s2})
	s1, s2 = pair(rounds[1][3])
	assert.Equal(t, [2]int{3, 6}, [2]int{s1, s2})

	// Winners of the 1v8 and 4v5 openers meet in the first semifinal.
	semi1 := rounds[2][0]
	require.NotNil(t, semi1.SourceMatch1)
	require.NotNil(t, semi1.SourceMatch2)
	assert.Equal(t, rounds[1][0].Number, *semi1.SourceMatch1)
	assert.Equal(t, rounds[1][1].Number, *semi1.SourceMatch2)

	opener := rounds[1][0]
	require.NotNil(t, opener.NextMatch)
	require.NotNil(t, opener.NextSlot)
	assert.Equal(t, semi1.Number, *opener.NextMatch)
	assert.Equal(t, 1, *opener.NextSlot)

	final := rounds[3][0]
	assert.Nil(t, final.NextMatch)
	assert.Nil(t, final.NextSlot)
	require.NotNil(t, final.SourceMatch1)
	require.NotNil(t, final.SourceMatch2)
	assert.Equal(t, rounds[2][0].Number, *final.SourceMatch1)
	assert.Equal(t, rounds[2][1].Number, *final.SourceMatch2)
}

func TestGenerateSixEntrantsByesGoToTopSeeds(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	matches, err := gen.Generate(context.Background(), GenerateParams{
		Entrants:    6,
		BalanceByes: true,
	})
	require.NoError(t, err)

	// 5 real matches: byes are never materialized.
	require.Len(t, matches, 5)

	var round1, round2 []*Match
	for _, m := range matches {
		switch m.Round {
		case 1:
			round1 = append(round1, m)
		case 2:
			round2 = append(round2, m)
		}
	}
	require.Len(t, round1, 2)
	require.Len(t, round2, 2)

	s1, s2 := pair(round1[0])
	assert.Equal(t, [2]int{4, 5}, [2]int{s1, s2})
	s1, s2 = pair(round1[1])
	assert.Equal(t, [2]int{3, 6}, [2]int{s1, s2})

	// Seeds 1 and 2 sit out round 1 and enter directly in round 2.
	require.NotNil(t, round2[0].Seed1)
	assert.Equal(t, 1, *round2[0].Seed1)
	require.NotNil(t, round2[0].SourceMatch2)
	assert.Equal(t, round1[0].Number, *round2[0].SourceMatch2)

	require.NotNil(t, round2[1].Seed1)
	assert.Equal(t, 2, *round2[1].Seed1)
	require.NotNil(t, round2[1].SourceMatch2)
	assert.Equal(t, round1[1].Number, *round2[1].SourceMatch2)
}

func TestGenerateNaturalOrderWithoutBalancedByes(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	matches, err := gen.Generate(context.Background(), GenerateParams{
		Entrants: 4,
	})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	s1, s2 := pair(matches[0])
	assert.Equal(t, [2]int{1, 2}, [2]int{s1, s2})
	s1, s2 = pair(matches[1])
	assert.Equal(t, [2]int{3, 4}, [2]int{s1, s2})
}

func TestGenerateMatchNumbersAreSequential(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	for _, entrants := range []int{2, 3, 5, 8, 13, 16} {
		matches, err := gen.Generate(context.Background(), GenerateParams{
			Entrants:    entrants,
			BalanceByes: true,
		})
		require.NoError(t, err)
		require.Len(t, matches, entrants-1, "entrants=%d", entrants)

		for i, m := range matches {
			assert.Equal(t, i+1, m.Number)
		}

		// Exactly one match, the final, has no downstream pointer.
		var finals int
		for _, m := range matches {
			if m.NextMatch == nil {
				finals++
				assert.Nil(t, m.NextSlot)
			} else {
				require.NotNil(t, m.NextSlot)
			}
		}
		assert.Equal(t, 1, finals, "entrants=%d", entrants)
	}
}

func TestGenerateRejectsTooFewEntrants(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	for _, entrants := range []int{-1, 0, 1} {
		_, err := gen.Generate(context.Background(), GenerateParams{Entrants: entrants})
		assert.Error(t, err, "entrants=%d", entrants)
	}
}

func TestGenerateRejectsUnknownSeedOrdering(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	_, err := gen.Generate(context.Background(), GenerateParams{
		Entrants:     4,
		SeedOrdering: "snake",
	})
	assert.Error(t, err)
}

func TestSeedPositions(t *testing.T) {
	assert.Equal(t, []int{1, 2}, seedPositions(2))
	assert.Equal(t, []int{1, 4, 2, 3}, seedPositions(4))
	assert.Equal(t, []int{1, 8, 4, 5, 2, 7, 3, 6}, seedPositions(8))
}
