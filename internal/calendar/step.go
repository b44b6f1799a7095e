package calendar

// Unsigned is the set of integer types Step operates on.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

// Step moves current one position through the inclusive range [min, max],
// wrapping from max to min when incrementing and from min to max when
// decrementing. It is used for every cyclic field the operator can edit.
//
// For current in [min, max] the result is always in [min, max], and
// Step(Step(v, min, max, true), min, max, false) == v.
func Step[T Unsigned](current, min, max T, up bool) T {
	if up {
		if current >= max {
			return min
		}
		return current + 1
	}
	if current <= min {
		return max
	}
	return current - 1
}

// Clamp moves current one position toward max (up) or min (down) and stops
// at the bound instead of wrapping.
func Clamp[T Unsigned](current, min, max T, up bool) T {
	if up {
		if current >= max {
			return max
		}
		return current + 1
	}
	if current <= min {
		return min
	}
	return current - 1
}
