package store

// matchGlob reports whether the key matches a Redis-style glob pattern:
// '*' matches any sequence of bytes, '?' matches exactly one byte, anything
// else matches itself. Backtracking on '*' only, so worst case is quadratic
// in the key length but there is no compilation step on the hot path.
func matchGlob(pattern, key string) bool {
	var p, k int
	star, mark := -1, 0

	for k < len(key) {
		switch {
		case p < len(pattern) && pattern[p] == '*':
			star, mark = p, k
			p++
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == key[k]):
			p++
			k++
		case star >= 0:
			mark++
			p, k = star+1, mark
		default:
			return false
		}
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
