package filter

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, strips diacritics and collapses whitespace so
// "Cần Thơ" and "can tho" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.Join(strings.Fields(strings.ToLower(result)), " ")
}

// Match reports the first term that matches label. A term matches when it is
// contained in the label or the label is contained in it, ignoring case and
// diacritics. Empty labels and terms never match.
func Match(label string, terms []string) (string, bool) {
	l := Normalize(label)
	if l == "" {
		return "", false
	}
	for _, term := range terms {
		t := Normalize(term)
		if t == "" {
			continue
		}
		if strings.Contains(l, t) || strings.Contains(t, l) {
			return term, true
		}
	}
	return "", false
}

// MatchKeyword tests a card title against the dismiss keywords.
func MatchKeyword(title string, keywords []string) (string, bool) {
	return Match(title, keywords)
}

// MatchCompany tests a card's company label against the blocked companies.
func MatchCompany(company string, blocked []string) (string, bool) {
	return Match(company, blocked)
}
