package resp

// Match implements Redis-style glob matching: '*' matches any run of
// characters (including none), '?' matches exactly one character, and
// '\x' matches the literal character x. Used by KEYS and by PSUBSCRIBE
// pattern fan-out (spec §4.3).
func Match(pattern, s string) bool {
	return matchHere([]byte(pattern), []byte(s))
}

func matchHere(p, s []byte) bool {
	for len(p) > 0 {
		switch p[0] {
		case '*':
			// Collapse consecutive '*' and try every possible split point.
			for len(p) > 1 && p[1] == '*' {
				p = p[1:]
			}
			if len(p) == 1 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if matchHere(p[1:], s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			p = p[1:]
			s = s[1:]
		case '\\':
			if len(p) < 2 {
				return false
			}
			if len(s) == 0 || s[0] != p[1] {
				return false
			}
			p = p[2:]
			s = s[1:]
		default:
			if len(s) == 0 || s[0] != p[0] {
				return false
			}
			p = p[1:]
			s = s[1:]
		}
	}
	return len(s) == 0
}
