package domain

// An Ordering is a sequence of distinct group indices representing a ballot
// reduced to "this voter preferenced these groups, in this relative order,
// ignoring all others". The empty Ordering stands for a ballot that
// preferences none of the configured groups.
//
// Orderings are ranked against the canonical enumeration produced by
// Enumerate: rank 0 is the empty Ordering ("None"), followed by every
// length-1 arrangement, then every length-2 arrangement, and so on up to
// length N, with arrangements of equal length in lexicographic order over
// the sorted group indices.
type Ordering []int

// FallingFactorial returns n·(n-1)·…·(n-i+1), the number of i-length
// arrangements of n distinct items. FallingFactorial(n, 0) is 1.
func FallingFactorial(n, i int) int {
	out := 1
	for j := 0; j < i; j++ {
		out *= n - j
	}
	return out
}

// CountOrderings returns the total number of orderings over n groups:
// Σ_{i=0..n} n!/(n-i)!. This is the length of the vector produced by
// Enumerate and the exclusive upper bound of Rank.
func CountOrderings(n int) int {
	total := 0
	for i := 0; i <= n; i++ {
		total += FallingFactorial(n, i)
	}
	return total
}

// Enumerate produces one label per ordering of the given group names, in
// canonical enumeration order. Index 0 is always "None"; a label for a
// non-empty ordering is the concatenation of the group names it preferences,
// most-preferred first (e.g. "GrnAlp").
//
// The names must already be in sorted order; GroupSet guarantees this.
// Enumerate is used for header and label text only, never on the ballot
// hot path — Rank computes the same indices arithmetically.
func Enumerate(names []string) []string {
	labels := make([]string, 0, CountOrderings(len(names)))
	labels = append(labels, "None")

	buf := make([]int, 0, len(names))
	used := make([]bool, len(names))
	for r := 1; r <= len(names); r++ {
		permute(len(names), r, buf, used, func(idx []int) {
			var label string
			for _, i := range idx {
				label += names[i]
			}
			labels = append(labels, label)
		})
	}
	return labels
}

// EnumerateOrderings produces every ordering of n group indices in canonical
// enumeration order, starting with the empty ordering. Intended for tests
// and exhaustive cross-checks against Rank; the slices returned are freshly
// allocated and safe to retain.
func EnumerateOrderings(n int) []Ordering {
	out := make([]Ordering, 0, CountOrderings(n))
	out = append(out, Ordering{})

	buf := make([]int, 0, n)
	used := make([]bool, n)
	for r := 1; r <= n; r++ {
		permute(n, r, buf, used, func(idx []int) {
			ord := make(Ordering, len(idx))
			copy(ord, idx)
			out = append(out, ord)
		})
	}
	return out
}

// permute visits every r-length arrangement of 0..n-1 in lexicographic
// order. The visited slice is reused between calls; callers must copy it
// if they retain it.
func permute(n, r int, cur []int, used []bool, visit func([]int)) {
	if len(cur) == r {
		visit(cur)
		return
	}
	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}
		used[i] = true
		permute(n, r, append(cur, i), used, visit)
		used[i] = false
	}
}

// Rank computes the canonical enumeration index of an ordering over n
// groups without materializing the enumeration. It runs in O(L²) for an
// ordering of length L and performs no allocation, which is what makes it
// usable once per ballot across tens of millions of ballots.
//
// The computation has two parts. First, all strictly shorter orderings are
// skipped: Σ_{i=0..L-1} FallingFactorial(n, i). Then, for each position o,
// the group index is adjusted downward by the number of earlier entries
// that were smaller (the factorial-number-system adjustment for symbols
// already consumed) and multiplied by the number of arrangements of the
// remaining positions.
//
// Rank of the empty ordering is 0 for every n, and Rank returns 0 when n
// is 0. Rank and Enumerate agree for every valid ordering; that agreement
// is the defining correctness property of this type.
func Rank(order Ordering, n int) int {
	if len(order) == 0 || n == 0 {
		return 0
	}

	idx := 0
	for i := 0; i < len(order); i++ {
		idx += FallingFactorial(n, i)
	}

	for o := 0; o < len(order); o++ {
		adjusted := order[o]
		for e := 0; e < o; e++ {
			if order[e] < order[o] {
				adjusted--
			}
		}
		if adjusted > 0 {
			t := adjusted
			remaining := n - o
			length := len(order) - o
			for i := 1; i < length; i++ {
				t *= remaining - i
			}
			idx += t
		}
	}
	return idx
}
