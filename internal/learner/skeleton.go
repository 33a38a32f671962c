package learner

import (
	"regexp"
	"strings"
	"unicode"
)

// Skeleton abstracts a corrected value into a structural regex fragment:
// digit runs become \d+, letter runs become [A-Za-z]+, whitespace runs
// become \s+, and everything else is quoted literally. Values with the same
// shape produce identical skeletons, so "7:00 PM" and "9:15 AM" cluster
// together while "7pm doors" does not.
//
// The output is a valid regex fragment by construction; materializing a
// candidate only wraps it in a capture group.
func Skeleton(value string) string {
	var b strings.Builder

	runes := []rune(value)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsDigit(r):
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
			b.WriteString(`\d+`)
		case isASCIILetter(r):
			for i < len(runes) && isASCIILetter(runes[i]) {
				i++
			}
			b.WriteString(`[A-Za-z]+`)
		case unicode.IsSpace(r):
			for i < len(runes) && unicode.IsSpace(runes[i]) {
				i++
			}
			b.WriteString(`\s+`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
			i++
		}
	}
	return b.String()
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
