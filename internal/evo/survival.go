package evo

import (
	"errors"
	"math"

	"epigonos/internal/model"
)

// oldestPosition is the default survival algorithm: age-regularized
// replacement. It returns the 1-based position of the member with the
// smallest birth counter, ties going to the earliest position. Excluded
// positions are treated as maximally young, so two sequential picks with
// the first winner excluded never collide.
func oldestPosition(pop *model.Population, exclude []int) (int, error) {
	n := pop.N()
	if n == 0 {
		return 0, errors.New("population is empty")
	}
	excluded := make(map[int]struct{}, len(exclude))
	for _, pos := range exclude {
		excluded[pos] = struct{}{}
	}
	winner := 0
	oldest := int64(math.MaxInt64)
	for i := 0; i < n; i++ {
		pos := i + 1
		birth := pop.Members[i].Birth
		if _, skip := excluded[pos]; skip {
			birth = math.MaxInt64
		}
		if birth < oldest {
			oldest, winner = birth, pos
		}
	}
	if winner == 0 {
		// Every candidate carries the sentinel birth; fall back to the
		// earliest position.
		winner = 1
	}
	return winner, nil
}
