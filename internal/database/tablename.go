package database

import "strings"

// TableNameFor derives a SQL-safe table name from an account alias or
// username: non-alphanumerics are dropped, letters lowercased and the
// suffix appended.
func TableNameFor(name, suffix string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String() + suffix
}
