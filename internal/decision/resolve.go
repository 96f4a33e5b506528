package decision

// #region imports
import (
	"strings"
	"unicode"
)

// #endregion

// #region normalize

// Normalize lowercases s and drops every rune that is not a letter or digit.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// #endregion

// #region resolve

// ResolveIdentity returns the 0-based index of the first candidate whose
// normalized form contains the normalized reference, or -1.
// An empty reference never matches.
func ResolveIdentity(ref string, candidates []string) int {
	want := Normalize(ref)
	if want == "" {
		return -1
	}
	for i, c := range candidates {
		if strings.Contains(Normalize(c), want) {
			return i
		}
	}
	return -1
}

// #endregion
