package brackets

import "context"

const SeedOrderingNatural = "natural"

// GenerateParams describes the bracket to build. Entrants are addressed by
// seed number 1..Entrants; the caller maps seeds to participants.
type GenerateParams struct {
	Entrants     int
	SeedOrdering string
	BalanceByes  bool
}

// Match is one generated node of the tree. An opponent side holds either a
// seed number or the number of the match whose winner fills it. Bye
// pseudo-matches are never emitted: a seed with no first-round opponent is
// written straight into its Seed1/Seed2 slot of the following round.
type Match struct {
	Number       int
	Round        int
	OrderInRound int

	Seed1        *int
	Seed2        *int
	SourceMatch1 *int
	SourceMatch2 *int

	NextMatch *int
	NextSlot  *int
}

type Generator interface {
	Generate(ctx context.Context, params GenerateParams) ([]*Match, error)

	GetName() string
}
