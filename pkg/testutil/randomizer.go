package testutil

// ScriptedRandomizer replays fixed rolls. Float64 values are consumed from
// Floats in order and the last one repeats once the script runs out; Range
// always returns the minimum unless RangeFunc is set.
type ScriptedRandomizer struct {
	Floats    []float64
	RangeFunc func(min, max int64) int64

	next int
}

func (r *ScriptedRandomizer) Float64() float64 {
	if len(r.Floats) == 0 {
		return 0
	}

	value := r.Floats[r.next]
	if r.next < len(r.Floats)-1 {
		r.next++
	}

	return value
}

func (r *ScriptedRandomizer) Range(min, max int64) int64 {
	if r.RangeFunc != nil {
		return r.RangeFunc(min, max)
	}

	return min
}
