package phases

// parseDigits reads a string as a base-10 integer, skipping every byte
// that is not an ASCII digit. Preference cells are either empty or a small
// number, occasionally with stray whitespace; skipping junk instead of
// validating it is what lets the ballot hot loop avoid strconv and its
// error allocations. Used only on ballot preference cells — everything off
// the hot path uses standard parsing.
func parseDigits(s string) int {
	acc := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			continue
		}
		acc = acc*10 + int(c-'0')
	}
	return acc
}
