package chatlog

import "strings"

// Speaker prefixes applied by Tag.
const (
	NursePrefix       = "Nurse: "
	PatientPrefix     = "Patient: "
	UnspecifiedPrefix = "Unspecified: "
)

// Tag classifies a transcript fragment by its leading word. If the fragment
// starts with the word "nurse" or "patient" (case-insensitive), that word is
// stripped and the remainder is prefixed with "Nurse: " or "Patient: ".
// Anything else, including an empty fragment, is returned unmodified behind
// an "Unspecified: " prefix.
//
// Tag is a pure function with no failure path.
func Tag(fragment string) string {
	word, rest := leadingWord(fragment)
	switch {
	case strings.EqualFold(word, "nurse"):
		return NursePrefix + rest
	case strings.EqualFold(word, "patient"):
		return PatientPrefix + rest
	}
	return UnspecifiedPrefix + fragment
}

// leadingWord splits the first whitespace-delimited word off the fragment
// and returns it along with the remainder, leading whitespace stripped.
func leadingWord(fragment string) (word, rest string) {
	i := strings.IndexFunc(fragment, isSpace)
	if i < 0 {
		return fragment, ""
	}
	return fragment[:i], strings.TrimLeftFunc(fragment[i:], isSpace)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
