// internal/admission/slug.go
//
// Schema-name derivation.
//
// A cycle's human title (“Ciclo Verano”) plus its year becomes the
// Postgres schema name (“ciclo_verano_2025”): accents stripped, every
// non-alphanumeric run collapsed to one underscore, edges trimmed,
// lowercased.  The result doubles as the directory's unique key.
package admission

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SchemaName derives the schema name for a cycle title and year.
func SchemaName(title string, year int) string {
	s, _, err := transform.String(deaccent, strings.TrimSpace(title))
	if err != nil {
		s = strings.TrimSpace(title)
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingSep = true
		}
	}

	if b.Len() == 0 {
		return strconv.Itoa(year)
	}
	return b.String() + "_" + strconv.Itoa(year)
}
