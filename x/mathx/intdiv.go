package mathx

import "golang.org/x/exp/constraints"

// CeilDiv returns ceil(a/b) for non-negative integers; b == 0 yields 0.
func CeilDiv[T constraints.Integer](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Percent returns done*100/total, clamped to [0,100]; total == 0 yields 100.
func Percent[T constraints.Integer](done, total T) int {
	if total == 0 {
		return 100
	}
	return Clamp(int(int64(done)*100/int64(total)), 0, 100)
}
