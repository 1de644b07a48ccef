package archiver

import "strings"

// Sanitize replaces every character outside [A-Za-z0-9] with 'x'. Multi-byte
// characters become a single 'x'.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('x')
		}
	}
	return b.String()
}
