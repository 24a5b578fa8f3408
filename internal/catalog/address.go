package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Coordinate is one latitude/longitude pair. Either side may be missing when
// the source cell was blank or unparsable.
type Coordinate struct {
	Lat *float64 `json:"lat" firestore:"lat"`
	Lon *float64 `json:"lon" firestore:"lon"`
}

// MetroStation is one nearby transit stop with its line identifiers.
type MetroStation struct {
	Name  string   `json:"name" firestore:"name"`
	Lines []string `json:"lines" firestore:"lines"`
}

// AddressEntry is one physical location of a restaurant.
type AddressEntry struct {
	Address        string         `json:"address" firestore:"address"`
	Arrondissement string         `json:"arrondissement" firestore:"arrondissement"`
	Lat            *float64       `json:"lat" firestore:"lat"`
	Lon            *float64       `json:"lon" firestore:"lon"`
	Stations       []MetroStation `json:"stations" firestore:"stations"`
}

// ParseAddresses splits a composite address cell on "|". An empty cell yields
// one empty placeholder, never an empty slice, so positional alignment with
// the arrondissement and coordinate cells is preserved.
func ParseAddresses(raw string) []string {
	cleaned := CleanScalar(raw)
	if cleaned == "" {
		return []string{""}
	}
	parts := strings.Split(cleaned, "|")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

var fiveDigitCode = regexp.MustCompile(`^\d{5}$`)

// ParseArrondissements splits on "|", "," or "." and maps each token to a
// 5-digit postal code, best effort: 1-20 become 750NN, 116 becomes 75116,
// codes already 5 digits long pass through, anything else is kept as typed.
func ParseArrondissements(raw string) []string {
	cleaned := CleanScalar(raw)
	if cleaned == "" {
		return nil
	}

	tokens := strings.FieldsFunc(cleaned, func(r rune) bool {
		return r == '|' || r == ',' || r == '.'
	})

	var out []string
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		out = append(out, mapArrondissement(tok))
	}
	return out
}

func mapArrondissement(tok string) string {
	if fiveDigitCode.MatchString(tok) {
		return tok
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return tok
	}
	switch {
	case n >= 1 && n <= 20:
		return fmt.Sprintf("750%02d", n)
	case n == 116:
		return "75116"
	}
	return tok
}

// ParseCoordinates splits the latitude and longitude cells on ";"
// independently and zips them by index, padding the shorter side. Comma
// decimals are normalized before parsing; unparsable tokens become nil.
func ParseCoordinates(rawLat, rawLon string) []Coordinate {
	lats := splitCoordinateCell(rawLat)
	lons := splitCoordinateCell(rawLon)

	n := len(lats)
	if len(lons) > n {
		n = len(lons)
	}
	if n == 0 {
		return nil
	}

	out := make([]Coordinate, n)
	for i := 0; i < n; i++ {
		var c Coordinate
		if i < len(lats) {
			c.Lat = lats[i]
		}
		if i < len(lons) {
			c.Lon = lons[i]
		}
		out[i] = c
	}
	return out
}

func splitCoordinateCell(raw string) []*float64 {
	cleaned := CleanScalar(raw)
	if cleaned == "" {
		return nil
	}
	parts := strings.Split(cleaned, ";")
	out := make([]*float64, len(parts))
	for i, p := range parts {
		out[i] = parseCoordinateToken(p)
	}
	return out
}

func parseCoordinateToken(tok string) *float64 {
	tok = strings.ReplaceAll(strings.TrimSpace(tok), ",", ".")
	if tok == "" {
		return nil
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return nil
	}
	return &f
}

var stationLines = regexp.MustCompile(`^(.*?)\s*\(([^)]*)\)\s*$`)

// ParseStations builds the per-address station lists from the two station
// slot cells. Each slot is itself "|"-delimited when the restaurant has
// several addresses. Station text is "Name (1, 7)"; without parentheses the
// line list is empty. "non"/empty tokens are dropped.
func ParseStations(slot1, slot2 string, addressCount int) [][]MetroStation {
	out := make([][]MetroStation, addressCount)
	for _, slot := range []string{slot1, slot2} {
		parts := strings.Split(slot, "|")
		for i := 0; i < addressCount; i++ {
			raw := ""
			if len(parts) == 1 {
				// A single-valued slot applies to the first address only.
				if i == 0 {
					raw = parts[0]
				}
			} else if i < len(parts) {
				raw = parts[i]
			}
			if st, ok := parseStationToken(raw); ok {
				out[i] = append(out[i], st)
			}
		}
	}
	return out
}

func parseStationToken(raw string) (MetroStation, bool) {
	cleaned := CleanScalar(raw)
	if cleaned == "" {
		return MetroStation{}, false
	}

	name := cleaned
	var lines []string
	if m := stationLines.FindStringSubmatch(cleaned); m != nil {
		name = strings.TrimSpace(m[1])
		for _, l := range strings.Split(m[2], ",") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
	}
	if name == "" {
		return MetroStation{}, false
	}
	return MetroStation{Name: name, Lines: lines}, true
}

// BuildAddressEntries zips the parsed location arrays into AddressEntry
// records, padding or truncating everything to the address count so callers
// can never index past it.
func BuildAddressEntries(addresses, arrondissements []string, coords []Coordinate, stations [][]MetroStation) []AddressEntry {
	out := make([]AddressEntry, len(addresses))
	for i, addr := range addresses {
		entry := AddressEntry{Address: addr}
		if i < len(arrondissements) {
			entry.Arrondissement = arrondissements[i]
		}
		if i < len(coords) {
			entry.Lat = coords[i].Lat
			entry.Lon = coords[i].Lon
		}
		if i < len(stations) {
			entry.Stations = stations[i]
		}
		out[i] = entry
	}
	return out
}
