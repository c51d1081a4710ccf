package cleaning

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CapitalizeName title-cases a name written entirely in one case
// ("veronika" -> "Veronika", "JINDROVÁ" -> "Jindrová"). Mixed-case input
// such as "McDonald" is returned trimmed but otherwise untouched.
func CapitalizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if s != strings.ToLower(s) && s != strings.ToUpper(s) {
		return s
	}
	return cases.Title(language.Und).String(s)
}
