package main

import "unicode"

const (
	minUsernameLen = 3
	maxUsernameLen = 20
)

// isValidUsername accepts platform display names: 3 to 20 runes of letters,
// digits, and underscores, not starting or ending with an underscore.
func isValidUsername(name string) bool {
	runes := []rune(name)
	if len(runes) < minUsernameLen || len(runes) > maxUsernameLen {
		return false
	}
	if runes[0] == '_' || runes[len(runes)-1] == '_' {
		return false
	}
	for _, r := range runes {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
