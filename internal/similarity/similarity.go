// Package similarity implements the fuzzy string comparison used to match
// listing companies and locations against the user's target lists.
package similarity

import (
	"sort"

	"golang.org/x/text/unicode/norm"
)

// popularMinLen is the length of b at which elements occurring in more than
// 1% of positions stop seeding matches.
const popularMinLen = 200

// Ratio returns 2*M/T, where T is the total number of runes in a and b and M
// is the number of runes in the matching blocks found by the longest
// contiguous match recursion. Two empty strings have ratio 1.0.
//
// The result is not guaranteed to be commutative. Callers pass the listing
// value first and the target second.
func Ratio(a, b string) float64 {
	ar := []rune(norm.NFC.String(a))
	br := []rune(norm.NFC.String(b))

	total := len(ar) + len(br)
	if total == 0 {
		return 1.0
	}
	m := newMatcher(ar, br)
	return 2.0 * float64(m.matchingRunes()) / float64(total)
}

// MatchesAny reports whether candidate is at least threshold-similar to one of
// targets. An empty target list is no constraint and always matches.
func MatchesAny(candidate string, targets []string, threshold float64) bool {
	if len(targets) == 0 {
		return true
	}
	for _, t := range targets {
		if Ratio(candidate, t) >= threshold {
			return true
		}
	}
	return false
}

type matcher struct {
	a, b []rune
	b2j  map[rune][]int // positions of each rune in b, popular runes removed
}

func newMatcher(a, b []rune) *matcher {
	b2j := make(map[rune][]int)
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	if n := len(b); n >= popularMinLen {
		limit := n/100 + 1
		for r, idxs := range b2j {
			if len(idxs) > limit {
				delete(b2j, r)
			}
		}
	}

	return &matcher{a: a, b: b, b2j: b2j}
}

type block struct{ i, j, size int }

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside the given
// bounds, preferring the earliest i, then the earliest j.
func (m *matcher) longestMatch(alo, ahi, blo, bhi int) block {
	best := block{i: alo, j: blo}
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > best.size {
				best = block{i: i - k + 1, j: j - k + 1, size: k}
			}
		}
		j2len = next
	}

	// Popular runes never seed a match, but a match may still grow across them.
	for best.i > alo && best.j > blo && m.a[best.i-1] == m.b[best.j-1] {
		best.i--
		best.j--
		best.size++
	}
	for best.i+best.size < ahi && best.j+best.size < bhi && m.a[best.i+best.size] == m.b[best.j+best.size] {
		best.size++
	}
	return best
}

// matchingBlocks returns the non-overlapping matching blocks in order.
func (m *matcher) matchingBlocks() []block {
	type span struct{ alo, ahi, blo, bhi int }

	queue := []span{{0, len(m.a), 0, len(m.b)}}
	var blocks []block
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		x := m.longestMatch(s.alo, s.ahi, s.blo, s.bhi)
		if x.size == 0 {
			continue
		}
		blocks = append(blocks, x)
		if s.alo < x.i && s.blo < x.j {
			queue = append(queue, span{s.alo, x.i, s.blo, x.j})
		}
		if x.i+x.size < s.ahi && x.j+x.size < s.bhi {
			queue = append(queue, span{x.i + x.size, s.ahi, x.j + x.size, s.bhi})
		}
	}

	sort.Slice(blocks, func(p, q int) bool {
		if blocks[p].i != blocks[q].i {
			return blocks[p].i < blocks[q].i
		}
		return blocks[p].j < blocks[q].j
	})
	return blocks
}

func (m *matcher) matchingRunes() int {
	n := 0
	for _, b := range m.matchingBlocks() {
		n += b.size
	}
	return n
}
