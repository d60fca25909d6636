package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Lerp linearly interpolates between a and b by t.
func Lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}

// AlignUp rounds value up to the nearest multiple of alignment.
// Alignment must be a power of two.
func AlignUp[T constraints.Integer](value, alignment T) T {
	return (value + alignment - 1) &^ (alignment - 1)
}
