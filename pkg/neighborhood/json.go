package neighborhood

import (
	"encoding/json"

	"github.com/matzehuels/mltn2v/pkg/walk"
)

// set is the serialized form of the walks for one w. JSON object keys must
// be strings, so the w-keyed maps are stored as an ordered list.
type set struct {
	W        float64     `json:"w"`
	Walks    []walk.Walk `json:"walks"`
	Failures int         `json:"failures"`
}

// MarshalJSON encodes the result as a list of per-w sets in ascending w.
func (r *Result) MarshalJSON() ([]byte, error) {
	sets := make([]set, 0, len(r.Walks))
	for _, w := range r.WValues() {
		sets = append(sets, set{W: w, Walks: r.Walks[w], Failures: r.Failures[w]})
	}
	return json.Marshal(sets)
}

// UnmarshalJSON decodes a result written by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var sets []set
	if err := json.Unmarshal(data, &sets); err != nil {
		return err
	}
	r.Walks = make(map[float64][]walk.Walk, len(sets))
	r.Failures = make(map[float64]int, len(sets))
	for _, s := range sets {
		r.Walks[s.W] = s.Walks
		r.Failures[s.W] = s.Failures
	}
	return nil
}
