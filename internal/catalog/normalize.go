package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokens the operators use to mean "no value".
var absentTokens = map[string]bool{
	"non": true,
	"nan": true,
	"n/a": true,
}

var scalarReplacer = strings.NewReplacer(
	" ", " ", // non-breaking space
	" ", " ", // narrow non-breaking space
	"–", "-", // en dash
	"—", "-", // em dash
)

// CleanScalar trims a raw cell, replaces the usual copy-paste artifacts with
// ASCII, strips one stray trailing backtick and collapses the operators'
// "non"/"nan"/"n/a" placeholders to the empty string.
func CleanScalar(raw string) string {
	v := strings.TrimSpace(scalarReplacer.Replace(raw))
	v = strings.TrimSuffix(v, "`")
	v = strings.TrimSpace(v)
	if absentTokens[strings.ToLower(v)] {
		return ""
	}
	return v
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripAccents(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lowers and accent-strips a value for comparison purposes.
func Fold(s string) string {
	return strings.ToLower(stripAccents(s))
}

// Canonicalize maps one cleaned value to its group's canonical spelling.
// Preference values go through keyword matching first (any value containing
// "casher" is Casher, whatever else the operator typed around it). Values
// with no match keep their cleaned spelling.
func (g TagGroup) Canonicalize(value string) string {
	folded := Fold(value)

	if g == TagPreference {
		for _, kw := range preferenceKeywords {
			if strings.Contains(folded, kw.keyword) {
				return kw.canonical
			}
		}
	}

	for _, canonical := range g.canonicalValues() {
		if Fold(canonical) == folded {
			return canonical
		}
	}
	return value
}

// NormalizeList turns a raw multi-value cell into the group's canonical tag
// list: comma-split, cleaned, canonicalized, deduplicated in first-seen order.
func NormalizeList(g TagGroup, raw string) []string {
	cleaned := CleanScalar(raw)
	if cleaned == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(cleaned, ",") {
		v := CleanScalar(part)
		if v == "" {
			continue
		}
		canonical := g.Canonicalize(v)
		key := Fold(canonical)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, canonical)
	}
	return out
}

// NormalizeNamed is NormalizeList keyed by a loose group name. Unknown names
// yield an empty list so one bad mapping never takes a whole row down.
func NormalizeNamed(name, raw string) []string {
	g, ok := GroupByName(name)
	if !ok {
		return nil
	}
	return NormalizeList(g, raw)
}
