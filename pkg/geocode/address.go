package geocode

import (
	"regexp"
	"strings"
)

// Address holds the best-effort components of a one-line billing address.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

// OneLine formats the address as a single comma-separated line, skipping
// empty components.
func (a Address) OneLine() string {
	parts := []string{a.Street, a.City, a.State, a.Zip}
	var nonEmpty []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}

// abbrToState maps lowercase state abbreviations to lowercase full names.
var abbrToState = map[string]string{
	"al": "alabama", "ak": "alaska", "az": "arizona", "ar": "arkansas",
	"ca": "california", "co": "colorado", "ct": "connecticut", "de": "delaware",
	"fl": "florida", "ga": "georgia", "hi": "hawaii", "id": "idaho",
	"il": "illinois", "in": "indiana", "ia": "iowa", "ks": "kansas",
	"ky": "kentucky", "la": "louisiana", "me": "maine", "md": "maryland",
	"ma": "massachusetts", "mi": "michigan", "mn": "minnesota", "ms": "mississippi",
	"mo": "missouri", "mt": "montana", "ne": "nebraska", "nv": "nevada",
	"nh": "new hampshire", "nj": "new jersey", "nm": "new mexico", "ny": "new york",
	"nc": "north carolina", "nd": "north dakota", "oh": "ohio", "ok": "oklahoma",
	"or": "oregon", "pa": "pennsylvania", "ri": "rhode island", "sc": "south carolina",
	"sd": "south dakota", "tn": "tennessee", "tx": "texas", "ut": "utah",
	"vt": "vermont", "va": "virginia", "wa": "washington", "wv": "west virginia",
	"wi": "wisconsin", "wy": "wyoming", "dc": "district of columbia",
}

// stateToAbbr maps lowercase full names to lowercase abbreviations.
var stateToAbbr = func() map[string]string {
	m := make(map[string]string, len(abbrToState))
	for abbr, full := range abbrToState {
		m[full] = abbr
	}
	return m
}()

var (
	zipRe   = regexp.MustCompile(`(\d{5})(?:-\d{4})?\s*$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// ParseAddress splits a loosely structured one-line address into components.
// Best effort only: missing commas, missing zip, or a single-token address
// all produce a usable (if partial) result rather than an error.
func ParseAddress(s string) Address {
	var a Address

	s = spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	s = strings.Trim(s, ", ")
	if s == "" {
		return a
	}

	// Zip first: always the trailing component when present.
	if m := zipRe.FindStringSubmatchIndex(s); m != nil {
		a.Zip = s[m[2]:m[3]]
		s = strings.Trim(s[:m[0]], ", ")
	}
	if s == "" {
		return a
	}

	parts := splitParts(s)
	switch len(parts) {
	case 0:
		return a
	case 1:
		// No commas: peel a trailing state token if one exists.
		a.Street, a.State = splitTrailingState(parts[0])
		return a
	}

	last := parts[len(parts)-1]
	if st, ok := normalizeState(last); ok {
		// "street[, unit], city, state"
		a.State = st
		a.City = parts[len(parts)-2]
		a.Street = strings.Join(parts[:len(parts)-2], ", ")
		return a
	}

	// Last part is "city" or "city state".
	city, st := splitTrailingState(last)
	a.City = city
	a.State = st
	a.Street = strings.Join(parts[:len(parts)-1], ", ")
	return a
}

// splitParts splits on commas and drops empty segments.
func splitParts(s string) []string {
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// splitTrailingState peels a state abbreviation or full name off the end of
// a segment. Returns the remainder and the normalized state, or the segment
// unchanged with an empty state.
func splitTrailingState(seg string) (remainder, state string) {
	fields := strings.Fields(seg)
	if len(fields) == 0 {
		return seg, ""
	}

	// Two-word full names ("north carolina") before single tokens.
	if len(fields) >= 3 {
		tail := strings.Join(fields[len(fields)-2:], " ")
		if st, ok := normalizeState(tail); ok {
			return strings.Join(fields[:len(fields)-2], " "), st
		}
	}
	if len(fields) >= 2 {
		if st, ok := normalizeState(fields[len(fields)-1]); ok {
			return strings.Join(fields[:len(fields)-1], " "), st
		}
	}
	return seg, ""
}

// normalizeState returns the uppercase abbreviation for a state token, which
// may itself be an abbreviation or a full name.
func normalizeState(tok string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(tok))
	if lower == "" {
		return "", false
	}
	if _, ok := abbrToState[lower]; ok {
		return strings.ToUpper(lower), true
	}
	if abbr, ok := stateToAbbr[lower]; ok {
		return strings.ToUpper(abbr), true
	}
	return "", false
}
