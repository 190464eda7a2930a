// Package alias implements Vose's alias method for O(1) sampling from a
// discrete distribution.
//
// A [Table] is built once from a vector of non-negative weights and then
// sampled any number of times, concurrently if each caller brings its own
// random stream:
//
//	t, err := alias.New([]float64{1, 2, 7})
//	if errors.Is(err, alias.ErrNoTransitions) {
//	    // nothing to sample
//	}
//	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
//	i := t.Draw(rng) // 2 with probability 0.7
package alias

import (
	"errors"
	"math"
	"math/rand/v2"
)

var (
	// ErrNoTransitions is returned by [New] when the weight vector is empty
	// or sums to zero. Callers treat it as "no transitions available".
	ErrNoTransitions = errors.New("no transitions available")

	// ErrInvalidWeight is returned by [New] when a weight is negative, NaN
	// or infinite.
	ErrInvalidWeight = errors.New("weights must be finite and non-negative")
)

// Table is an immutable alias table over K outcomes.
//
// threshold[i] is the probability of keeping column i; otherwise the draw
// resolves to alt[i]. Every threshold lies in [0, 1] and every alt index in
// [0, K).
type Table struct {
	alt       []int
	threshold []float64
}

// New builds a Table from unnormalized weights.
func New(weights []float64) (*Table, error) {
	k := len(weights)
	if k == 0 {
		return nil, ErrNoTransitions
	}

	var sum float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, ErrInvalidWeight
		}
		sum += w
	}
	if sum == 0 {
		return nil, ErrNoTransitions
	}

	t := &Table{
		alt:       make([]int, k),
		threshold: make([]float64, k),
	}

	light := make([]int, 0, k)
	heavy := make([]int, 0, k)
	scale := float64(k) / sum
	for i, w := range weights {
		t.alt[i] = i
		t.threshold[i] = w * scale
		if t.threshold[i] < 1 {
			light = append(light, i)
		} else {
			heavy = append(heavy, i)
		}
	}

	for len(light) > 0 && len(heavy) > 0 {
		l := light[len(light)-1]
		light = light[:len(light)-1]
		h := heavy[len(heavy)-1]
		heavy = heavy[:len(heavy)-1]

		t.alt[l] = h
		t.threshold[h] = max(0, t.threshold[h]-(1-t.threshold[l]))
		if t.threshold[h] < 1 {
			light = append(light, h)
		} else {
			heavy = append(heavy, h)
		}
	}

	// Leftovers on either stack carry only rounding residue.
	for _, i := range heavy {
		t.threshold[i] = 1
	}
	for _, i := range light {
		t.threshold[i] = 1
	}

	return t, nil
}

// Draw samples one outcome index in [0, Len()).
func (t *Table) Draw(rng *rand.Rand) int {
	k := rng.IntN(len(t.alt))
	if rng.Float64() < t.threshold[k] {
		return k
	}
	return t.alt[k]
}

// Len returns the number of outcomes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.alt)
}

// Probabilities reconstructs the normalized distribution encoded by the table.
func (t *Table) Probabilities() []float64 {
	k := t.Len()
	probs := make([]float64, k)
	for i := range k {
		keep := t.threshold[i] / float64(k)
		probs[i] += keep
		probs[t.alt[i]] += 1/float64(k) - keep
	}
	return probs
}

// Equal reports whether t and o hold bit-identical tables.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.alt) != len(o.alt) {
		return false
	}
	for i := range t.alt {
		if t.alt[i] != o.alt[i] || math.Float64bits(t.threshold[i]) != math.Float64bits(o.threshold[i]) {
			return false
		}
	}
	return true
}
