// Package seq provides a small any-of-set search over a rune sequence,
// used by the word healer and token resizer to locate delimiter
// boundaries without allocating substrings up front.
package seq

// IndexAny returns the index of the first rune of s[start:end] that is a
// member of items, or the last such rune if reverse is true. It returns -1
// if none is found.
//
// Indices are measured in runes over s (not bytes); callers that need byte
// offsets must convert via utf8.RuneLen-style accounting, since the word
// healer and resizer only ever use the returned index to slice s itself,
// never raw bytes.
func IndexAny(s []rune, items map[rune]struct{}, start, end int, reverse bool) int {
	if end > len(s) {
		end = len(s)
	}
	if start < 0 {
		start = 0
	}
	if start >= end {
		return -1
	}

	if !reverse {
		for i := start; i < end; i++ {
			if _, ok := items[s[i]]; ok {
				return i
			}
		}
		return -1
	}

	for i := end - 1; i >= start; i-- {
		if _, ok := items[s[i]]; ok {
			return i
		}
	}
	return -1
}

// IndexAnyString is a convenience wrapper over IndexAny for callers working
// with strings directly; it returns a rune index, not a byte offset.
func IndexAnyString(s string, items map[rune]struct{}, reverse bool) int {
	runes := []rune(s)
	return IndexAny(runes, items, 0, len(runes), reverse)
}

// RuneSet builds the membership set IndexAny expects from a string of
// delimiter characters.
func RuneSet(chars string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(chars))
	for _, r := range chars {
		set[r] = struct{}{}
	}
	return set
}
