package evo

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"epigonos/internal/model"
	"epigonos/internal/stats"
)

// tournamentSelect is the default selection algorithm. It samples distinct
// members without replacement, optionally penalizes each candidate's cost
// by its complexity-class frequency, and picks either the outright best
// (p == 1) or a geometrically weighted rank.
func tournamentSelect(rng *rand.Rand, pop *model.Population, rs *stats.Running, opts *model.Options) (model.Member, error) {
	if rng == nil {
		return model.Member{}, errors.New("random source is required")
	}
	n := pop.N()
	if n == 0 {
		return model.Member{}, errors.New("population is empty")
	}
	size := opts.TournamentSelectionN
	if size < 1 {
		return model.Member{}, fmt.Errorf("invalid tournament size: %d", size)
	}
	p := opts.TournamentSelectionP
	if p <= 0 || p > 1 {
		return model.Member{}, fmt.Errorf("invalid tournament win probability: %v", p)
	}
	if size > n {
		size = n
	}

	sample := samplePositions(rng, n, size)

	adjusted := make([]float64, size)
	for i, idx := range sample {
		member := pop.Members[idx]
		cost := member.Cost
		if opts.UseFrequencyInTournament {
			freq := rs.FrequencyFor(model.Complexity(member, opts), opts.MaxSize)
			cost *= math.Exp(opts.AdaptiveParsimonyScaling * freq)
		}
		adjusted[i] = cost
	}

	var winner int
	if p == 1 {
		winner = argminFirst(adjusted)
	} else {
		order := ranksByCost(adjusted)
		winner = order[drawRank(rng, p, size)]
	}
	return pop.Members[sample[winner]].Copy(), nil
}

// samplePositions draws size distinct indices from 0..n-1 with a partial
// Fisher-Yates shuffle.
func samplePositions(rng *rand.Rand, n, size int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < size; i++ {
		j := i + rng.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:size]
}

// ranksByCost orders candidate indices by ascending adjusted cost. The sort
// is stable so equal costs keep their sample order and ties resolve to the
// earliest candidate.
func ranksByCost(adjusted []float64) []int {
	order := make([]int, len(adjusted))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return adjusted[order[a]] < adjusted[order[b]]
	})
	return order
}

// drawRank picks rank k with probability proportional to p*(1-p)^k.
func drawRank(rng *rand.Rand, p float64, size int) int {
	weights := make([]float64, size)
	total := 0.0
	q := 1.0
	for k := 0; k < size; k++ {
		weights[k] = p * q
		total += weights[k]
		q *= 1 - p
	}
	x := rng.Float64() * total
	for k, w := range weights {
		x -= w
		if x <= 0 {
			return k
		}
	}
	return size - 1
}

func argminFirst(costs []float64) int {
	best := 0
	for i := 1; i < len(costs); i++ {
		if costs[i] < costs[best] {
			best = i
		}
	}
	return best
}
