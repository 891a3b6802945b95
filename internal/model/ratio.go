package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ratioInfinite is the JSON spelling of an unbounded in/out ratio.
const ratioInfinite = "inf"

// Ratio is an in/out degree ratio. A node with incoming but no outgoing
// edges has an infinite ratio; a node with neither has ratio 0.
type Ratio struct {
	Value    float64
	Infinite bool
}

// NewRatio computes in/out for the given degrees.
func NewRatio(in, out int) Ratio {
	switch {
	case out > 0:
		return Ratio{Value: float64(in) / float64(out)}
	case in > 0:
		return Ratio{Infinite: true}
	default:
		return Ratio{}
	}
}

// Float returns the ratio as a float64, using +Inf for the infinite case.
func (r Ratio) Float() float64 {
	if r.Infinite {
		return math.Inf(1)
	}
	return r.Value
}

func (r Ratio) String() string {
	if r.Infinite {
		return ratioInfinite
	}
	return strconv.FormatFloat(r.Value, 'f', 2, 64)
}

// MarshalJSON encodes finite ratios as numbers and the infinite ratio as "inf".
func (r Ratio) MarshalJSON() ([]byte, error) {
	if r.Infinite {
		return json.Marshal(ratioInfinite)
	}
	return json.Marshal(math.Round(r.Value*100) / 100)
}

// UnmarshalJSON accepts either a number or the string "inf".
func (r *Ratio) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != ratioInfinite {
			return fmt.Errorf("invalid ratio %q", s)
		}
		*r = Ratio{Infinite: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Ratio{Value: v}
	return nil
}
