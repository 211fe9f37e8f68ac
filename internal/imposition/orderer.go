package imposition

// Order returns the sheet printing order for n reading positions.
//
// Two pointers walk inwards from both ends of the book. For right-to-left
// books each step emits lo, hi, hi, lo; left-to-right mirrors it to
// hi, lo, lo, hi. Every emission is skipped once the pointers cross, so the
// result is a permutation of 0..n-1 for any n.
func Order(n int, dir Direction) []int {
	out := make([]int, 0, n)
	lo, hi := 0, n-1
	front := func() {
		if lo <= hi {
			out = append(out, lo)
			lo++
		}
	}
	back := func() {
		if lo <= hi {
			out = append(out, hi)
			hi--
		}
	}

	for lo <= hi {
		if dir == LeftToRight {
			back()
			front()
			front()
			back()
		} else {
			front()
			back()
			back()
			front()
		}
	}
	return out
}

// Impose reorders a reading sequence into printing order. The input is not
// modified.
func Impose(seq Sequence, dir Direction) Sequence {
	order := Order(len(seq), dir)
	out := make(Sequence, len(order))
	for i, pos := range order {
		out[i] = seq[pos]
	}
	return out
}
