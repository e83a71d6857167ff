package main

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// displayTitle derives a readable title from the first source reference,
// e.g. "captures/family_reunion_1992.avi" becomes "Family Reunion 1992".
func displayTitle(refs []string) string {
	if len(refs) == 0 {
		return "Untitled Tape"
	}
	base := filepath.Base(refs[0])
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Untitled Tape"
	}
	return cases.Title(language.Und).String(title)
}
