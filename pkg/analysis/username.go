package analysis

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// UsernamePattern describes the shape of a handle.
type UsernamePattern struct {
	YearTokens     []string `json:"year_pattern"`
	Length         int      `json:"length"`
	HasNumbers     bool     `json:"has_numbers"`
	HasUnderscores bool     `json:"has_underscores"`
	HasDots        bool     `json:"has_dots"`
	AllLowercase   bool     `json:"all_lowercase"`
}

var yearPattern = regexp.MustCompile(`(?:19|20)\d{2}`)

// UsernamePatternOf inspects a handle for digits, separators, casing and
// year-like tokens.
func UsernamePatternOf(handle string) UsernamePattern {
	years := yearPattern.FindAllString(handle, -1)
	if years == nil {
		years = []string{}
	}

	return UsernamePattern{
		HasNumbers:     strings.ContainsFunc(handle, unicode.IsDigit),
		HasUnderscores: strings.Contains(handle, "_"),
		HasDots:        strings.Contains(handle, "."),
		Length:         utf8.RuneCountInString(handle),
		AllLowercase:   isLower(handle),
		YearTokens:     years,
	}
}

// isLower is true when s has at least one cased letter and none are upper case.
func isLower(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			return false
		case unicode.IsLower(r):
			cased = true
		}
	}
	return cased
}
