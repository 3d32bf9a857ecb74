package utils

import "math"

// ToPhysical scales a raw field value: raw*factor + offset.
func ToPhysical(raw uint64, factor, offset float64) float64 {
	return float64(raw)*factor + offset
}

// ToRaw reverses ToPhysical, truncating toward zero. The result is not
// clamped to the signal range; negative and NaN inputs saturate to 0 and
// values beyond the uint64 range saturate to math.MaxUint64.
func ToRaw(physical, factor, offset float64) uint64 {
	v := math.Trunc((physical - offset) / factor)
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= math.MaxUint64:
		return math.MaxUint64
	}
	return uint64(v)
}
