package judge

import (
	"strings"
)

// Bounded calendar vocabulary. Anchor detection is a whole-word scan over
// these sets plus 4-digit years; free-form date parsing is out of scope.

var monthAnchors = map[string]string{
	"january": "january", "jan": "january",
	"february": "february", "feb": "february",
	"march": "march", "mar": "march",
	"april": "april", "apr": "april",
	"may":  "may",
	"june": "june", "jun": "june",
	"july": "july", "jul": "july",
	"august": "august", "aug": "august",
	"september": "september", "sep": "september", "sept": "september",
	"october": "october", "oct": "october",
	"november": "november", "nov": "november",
	"december": "december", "dec": "december",
}

var weekdayAnchors = map[string]string{
	"monday": "monday", "tuesday": "tuesday", "wednesday": "wednesday",
	"thursday": "thursday", "friday": "friday", "saturday": "saturday",
	"sunday": "sunday",
}

var relativeAnchors = map[string]string{
	"today": "today", "tonight": "today", "yesterday": "yesterday",
	"tomorrow": "tomorrow", "now": "now", "current": "current",
	"currently": "current", "latest": "latest", "recent": "recent",
	"recently": "recent", "upcoming": "upcoming", "weekend": "weekend",
}

// HasTemporalShift reports whether the new question carries a calendar
// anchor the cached question does not. A question with no anchors never
// shifts; matching anchors (same month, same year) never shift.
func HasTemporalShift(question, cachedQuestion string) bool {
	next := extractAnchors(question)
	if len(next) == 0 {
		return false
	}
	prev := extractAnchors(cachedQuestion)
	for anchor := range next {
		if !prev[anchor] {
			return true
		}
	}
	return false
}

func extractAnchors(text string) map[string]bool {
	anchors := make(map[string]bool)
	for _, word := range splitWords(strings.ToLower(text)) {
		if canonical, ok := monthAnchors[word]; ok {
			anchors[canonical] = true
			continue
		}
		if canonical, ok := weekdayAnchors[word]; ok {
			anchors[canonical] = true
			continue
		}
		if canonical, ok := relativeAnchors[word]; ok {
			anchors[canonical] = true
			continue
		}
		if isYear(word) {
			anchors[word] = true
		}
	}
	return anchors
}

// isYear matches 4-digit tokens in a plausible calendar range.
func isYear(word string) bool {
	if len(word) != 4 {
		return false
	}
	for _, r := range word {
		if r < '0' || r > '9' {
			return false
		}
	}
	return word >= "1900" && word <= "2199"
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		return !isAlnum
	})
}
