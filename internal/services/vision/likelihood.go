package vision

import "strings"

// Likelihood is the five-step ordinal confidence scale the visual classifier
// reports per frame.
type Likelihood string

const (
	VeryUnlikely Likelihood = "VERY_UNLIKELY"
	Unlikely     Likelihood = "UNLIKELY"
	Possible     Likelihood = "POSSIBLE"
	Likely       Likelihood = "LIKELY"
	VeryLikely   Likelihood = "VERY_LIKELY"
)

var likelihoodRanks = map[Likelihood]int{
	VeryUnlikely: 0,
	Unlikely:     1,
	Possible:     2,
	Likely:       3,
	VeryLikely:   4,
}

// Rank returns the ordinal position of the likelihood, with unknown values
// treated as the lowest step.
func (l Likelihood) Rank() int {
	return likelihoodRanks[Likelihood(strings.ToUpper(string(l)))]
}

// AtLeast reports whether the likelihood sits at or above the given step.
func (l Likelihood) AtLeast(other Likelihood) bool {
	return l.Rank() >= other.Rank()
}
