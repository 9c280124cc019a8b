package selection

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"

	"gamepicker/internal/model"
)

var ErrNoCandidates = errors.New("no candidates")

// Selector draws one item from a candidate list
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelector(src rand.Source) *Selector {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Selector{rng: rand.New(src)}
}

// Pick returns one of candidates. weights is keyed by item id; a missing or
// non-positive weight counts as an unseen item. Counters are never touched.
func (s *Selector) Pick(candidates []model.Item, weights map[string]float64, useWeighting bool) (model.Item, error) {
	switch len(candidates) {
	case 0:
		return model.Item{}, ErrNoCandidates
	case 1:
		return candidates[0], nil
	}

	if !useWeighting {
		return candidates[s.intN(len(candidates))], nil
	}

	ws := make([]float64, len(candidates))
	var total float64
	for i, c := range candidates {
		w, ok := weights[c.ID]
		if !ok || !(w > 0) || math.IsInf(w, 0) {
			w = Weight(model.Counters{})
		}
		ws[i] = w
		total += w
	}

	r := s.float64() * total
	for i, c := range candidates {
		r -= ws[i]
		if r <= 0 {
			return c, nil
		}
	}
	return candidates[len(candidates)-1], nil
}

func (s *Selector) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *Selector) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
