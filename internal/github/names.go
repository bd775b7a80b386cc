package github

import "strings"

// GitHub repository name constraints.
//
// GitHub accepts 1-100 characters from [A-Za-z0-9._-], and a name may not
// start or end with '.', '_' or '-'. A handful of Windows device names are
// also rejected. NormalizeName produces a name satisfying all of these.
const (
	MaxNameLength   = 100
	DefaultRepoName = "new_repository" // fallback when nothing survives normalization
)

// reservedNames are case-insensitively rejected by GitHub (Windows device
// names — a repo called "COM1" would break checkouts on Windows).
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// NormalizeName maps ANY input string to a legal GitHub repository name.
//
// This function is pure and total — it never fails. Feeding it a user-typed
// project idea like "My Cool Idea!" yields "My_Cool_Idea"; feeding it garbage
// yields the fallback name. It is also idempotent: normalizing an
// already-normal name returns it unchanged, so it's safe to call at every
// layer without worrying about double-processing.
//
// Steps:
//  1. trim, collapse internal whitespace runs to a single "_"
//  2. drop every character outside [A-Za-z0-9._-]
//  3. strip leading/trailing '.', '_', '-'
//  4. truncate to 100 chars, re-stripping any separator the cut exposes
//  5. empty or reserved results become DefaultRepoName
func NormalizeName(name string) string {
	// strings.Fields splits on any run of whitespace and drops empties,
	// so this both trims and collapses in one step.
	s := strings.Join(strings.Fields(name), "_")

	// Keep only the provider's legal alphabet.
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '_' || r == '-':
			return r
		}
		return -1 // strings.Map drops the rune
	}, s)

	s = strings.Trim(s, "._-")

	if len(s) > MaxNameLength {
		// The input is pure ASCII at this point, so byte slicing is safe.
		// The cut can expose a trailing separator ("abc...x_" → strip again).
		s = strings.TrimRight(s[:MaxNameLength], "._-")
	}

	if s == "" || reservedNames[strings.ToUpper(s)] {
		return DefaultRepoName
	}

	return s
}
