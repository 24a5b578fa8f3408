package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// dayOrder fixes the output keys; every parsed schedule carries all seven.
var dayOrder = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// dayTokens recognizes both the French sheet wording and the occasional
// English paste. Tokens are matched against folded text.
var dayTokens = map[string]string{
	"lundi":     "monday",
	"monday":    "monday",
	"mardi":     "tuesday",
	"tuesday":   "tuesday",
	"mercredi":  "wednesday",
	"wednesday": "wednesday",
	"jeudi":     "thursday",
	"thursday":  "thursday",
	"vendredi":  "friday",
	"friday":    "friday",
	"samedi":    "saturday",
	"saturday":  "saturday",
	"dimanche":  "sunday",
	"sunday":    "sunday",
}

var (
	dayTokenRe  = regexp.MustCompile(`(?i)\b(lundi|mardi|mercredi|jeudi|vendredi|samedi|dimanche|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	timeRangeRe = regexp.MustCompile(`(?i)(\d{1,2})(?:\s*[:hH]\s*(\d{2}))?\s*(am|pm)?\s*(?:-|a|à|to)\s*(\d{1,2})(?:\s*[:hH]\s*(\d{2}))?\s*(am|pm)?`)
	closedRe    = regexp.MustCompile(`(?i)\b(ferme|closed)\b`)
)

// ParseOpeningHours turns the free-text hours block into a per-day structure.
// Every one of the seven days is present in the result: either
// {"closed": true} or {"service_1": "12:00 - 14:30", "service_2": ...} with
// windows kept in source order.
func ParseOpeningHours(raw string) map[string]map[string]any {
	out := make(map[string]map[string]any, len(dayOrder))
	for _, day := range dayOrder {
		out[day] = map[string]any{"closed": true}
	}

	cleaned := scalarReplacer.Replace(raw)
	if CleanScalar(cleaned) == "" {
		return out
	}

	// Both matching and segment extraction run on the folded text so day
	// tokens hit regardless of case and accents ("Fermé" vs "ferme").
	folded := Fold(cleaned)
	matches := dayTokenRe.FindAllStringSubmatchIndex(folded, -1)

	for i, m := range matches {
		day := dayTokens[folded[m[2]:m[3]]]
		segEnd := len(folded)
		if i+1 < len(matches) {
			segEnd = matches[i+1][0]
		}
		segment := folded[m[1]:segEnd]

		services := parseDaySegment(segment)
		if len(services) == 0 {
			continue
		}
		dayMap := make(map[string]any, len(services))
		for n, window := range services {
			dayMap[fmt.Sprintf("service_%d", n+1)] = window
		}
		out[day] = dayMap
	}
	return out
}

// parseDaySegment extracts the service windows of one day's text. A closed
// marker or an absence of any recognizable window yields nil.
func parseDaySegment(segment string) []string {
	if closedRe.MatchString(segment) {
		return nil
	}

	var services []string
	for _, part := range strings.FieldsFunc(segment, func(r rune) bool {
		return r == ';' || r == ','
	}) {
		if window, ok := parseTimeRange(part); ok {
			services = append(services, window)
		}
	}
	return services
}

// parseTimeRange converts "12h30 - 14h30", "7:00 pm - 11:00 pm" or bare
// "9:00-17:00" into "HH:MM - HH:MM".
func parseTimeRange(text string) (string, bool) {
	m := timeRangeRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	startH, startM, ok := parseClock(m[1], m[2], m[3])
	if !ok {
		return "", false
	}
	endH, endM, ok := parseClock(m[4], m[5], m[6])
	if !ok {
		return "", false
	}

	return fmt.Sprintf("%02d:%02d - %02d:%02d", startH, startM, endH, endM), true
}

func parseClock(hourStr, minStr, meridian string) (int, int, bool) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour > 24 {
		return 0, 0, false
	}
	minute := 0
	if minStr != "" {
		minute, err = strconv.Atoi(minStr)
		if err != nil || minute > 59 {
			return 0, 0, false
		}
	}
	switch strings.ToLower(meridian) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return hour, minute, true
}
