package brackets

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
)

type node struct {
	seed        *int
	sourceMatch *int
	isBye       bool
}

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// Generate builds a single-elimination tree sized to the next power of two
// above Entrants. With BalanceByes the seeds are placed in standard bracket
// order (8 entrants pair 1v8, 4v5, 2v7, 3v6), which hands the byes of a
// non-full bracket to the highest seeds; without it seeds pair off in input
// order. Matches are numbered 1..N in round-then-order sequence.
func (g *SingleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) ([]*Match, error) {
	n := params.Entrants
	if n < 2 {
		return nil, errors.New("not enough entrants to generate a single elimination bracket (minimum 2)")
	}
	switch params.SeedOrdering {
	case "", SeedOrderingNatural:
	default:
		return nil, fmt.Errorf("unsupported seed ordering %q", params.SeedOrdering)
	}

	numRounds := bits.Len(uint(n - 1)) // ceil(log2(n))
	bracketSize := 1 << uint(numRounds)

	var placement []int
	if params.BalanceByes {
		placement = seedPositions(bracketSize)
	} else {
		placement = make([]int, bracketSize)
		for i := range placement {
			placement[i] = i + 1
		}
	}

	currentRoundNodes := make([]*node, bracketSize)
	for i, seedNum := range placement {
		if seedNum <= n {
			s := seedNum
			currentRoundNodes[i] = &node{seed: &s}
		} else {
			currentRoundNodes[i] = &node{isBye: true}
		}
	}

	matches := make([]*Match, 0, bracketSize-1)
	matchNumber := 0

	for r := 1; r <= numRounds; r++ {
		nextRoundNodes := make([]*node, 0, len(currentRoundNodes)/2)
		orderInRound := 0

		for i := 0; i < len(currentRoundNodes); i += 2 {
			node1 := currentRoundNodes[i]
			node2 := currentRoundNodes[i+1]

			switch {
			case node1.isBye && node2.isBye:
				// Cannot happen while bracketSize is the next power of
				// two: byes never exceed half the first round.
				return nil, fmt.Errorf("two byes paired in round %d", r)
			case node2.isBye:
				nextRoundNodes = append(nextRoundNodes, &node{seed: node1.seed})
			case node1.isBye:
				nextRoundNodes = append(nextRoundNodes, &node{seed: node2.seed})
			default:
				matchNumber++
				orderInRound++
				m := &Match{
					Number:       matchNumber,
					Round:        r,
					OrderInRound: orderInRound,
				}
				if node1.seed != nil {
					m.Seed1 = node1.seed
				} else {
					m.SourceMatch1 = node1.sourceMatch
				}
				if node2.seed != nil {
					m.Seed2 = node2.seed
				} else {
					m.SourceMatch2 = node2.sourceMatch
				}
				matches = append(matches, m)

				num := matchNumber
				nextRoundNodes = append(nextRoundNodes, &node{sourceMatch: &num})
			}
		}
		currentRoundNodes = nextRoundNodes
	}

	linkNextMatches(matches)

	return matches, nil
}

// linkNextMatches fills NextMatch/NextSlot on every match that feeds another.
// The final ends up with both pointers nil.
func linkNextMatches(matches []*Match) {
	for _, m := range matches {
		for _, target := range matches {
			var slot int
			switch {
			case target.SourceMatch1 != nil && *target.SourceMatch1 == m.Number:
				slot = 1
			case target.SourceMatch2 != nil && *target.SourceMatch2 == m.Number:
				slot = 2
			default:
				continue
			}
			next := target.Number
			s := slot
			m.NextMatch = &next
			m.NextSlot = &s
			break
		}
	}
}

// seedPositions returns the standard seeded slot order for a full bracket:
// each doubling pairs seed s against size*2+1-s, so for size 8 the order is
// 1,8,4,5,2,7,3,6.
func seedPositions(size int) []int {
	positions := []int{1}
	for len(positions) < size {
		opponentSum := len(positions)*2 + 1
		next := make([]int, 0, len(positions)*2)
		for _, s := range positions {
			next = append(next, s, opponentSum-s)
		}
		positions = next
	}
	return positions
}
