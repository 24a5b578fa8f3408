package catalog

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danou294/butter-gestion-sub000/internal/sheet"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// --------------------------------------------------
// Stub geocoder
// --------------------------------------------------

type stubGeocoder struct {
	calls int
	coord *Coordinate
}

func (s *stubGeocoder) Geocode(ctx context.Context, address string) (*Coordinate, error) {
	s.calls++
	return s.coord, nil
}

func coordOf(lat, lon float64) *Coordinate {
	return &Coordinate{Lat: &lat, Lon: &lon}
}

// --------------------------------------------------
// Identifier derivation
// --------------------------------------------------

func TestDeriveID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CAFÉ-X", "CAFE-X"},
		{"café x", "CAFE-X"},
		{"chez_janou", "CHEZ_JANOU"},
		{"  le 975  ", "LE-975"},
		{"***", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveID(tt.in), "input %q", tt.in)
	}
}

// --------------------------------------------------
// Row conversion
// --------------------------------------------------

func testRow(index int, overrides map[string]string) sheet.Row {
	values := map[string]string{
		"Tag":             "CHEZ-JANOU",
		"Nom":             "Chez Janou",
		"Adresse":         "2 rue Roger Verlomme",
		"Arrondissement":  "3",
		"Latitude":        "48.8566",
		"Longitude":       "2.3522",
		"Type de cuisine": "Française",
		"Moment":          "Déjeuner, Dîner",
		"Ambiance":        "Terrasse, Romantique",
		"Préférences_TAG": "vegetarien",
		"Horaires":        "Lundi: 12h00 - 14h30",
		"Téléphone":       "01 42 72 28 41",
	}
	for k, v := range overrides {
		values[k] = v
	}

	headers := make([]string, 0, len(values))
	cells := make([]string, 0, len(values))
	for k, v := range values {
		headers = append(headers, k)
		cells = append(cells, v)
	}
	return sheet.NewRow(index, headers, cells)
}

func TestConvertBuildsDocument(t *testing.T) {
	geo := &stubGeocoder{coord: coordOf(1, 1)}
	conv := NewConverter(geo, testLog())

	converted, skip := conv.Convert(context.Background(), testRow(1, nil))
	require.Nil(t, skip)
	require.Equal(t, "CHEZ-JANOU", converted.ID)

	doc := converted.Doc
	assert.Equal(t, "Chez Janou", doc.Name)
	assert.Equal(t, "2 rue Roger Verlomme", doc.Address)
	assert.Equal(t, "75003", doc.Arrondissement)
	require.NotNil(t, doc.Lat)
	assert.InDelta(t, 48.8566, *doc.Lat, 1e-9)
	require.Len(t, doc.Addresses, 1)

	assert.Equal(t, []string{"Française"}, doc.Cuisine)
	assert.Equal(t, doc.Cuisine, doc.CuisineLegacy)
	assert.Equal(t, []string{"100% végétarien"}, doc.Preferences)

	assert.True(t, doc.HasTerrace)
	assert.Equal(t, []string{"Terrasse"}, doc.TerraceLocations)

	require.Len(t, doc.OpeningHours, 7)

	// Coordinates were present in the sheet, so no geocoding happened.
	assert.Zero(t, geo.calls)
}

func TestConvertGeocodesOnlyWhenCoordinatesMissing(t *testing.T) {
	geo := &stubGeocoder{coord: coordOf(48.86, 2.34)}
	conv := NewConverter(geo, testLog())

	converted, skip := conv.Convert(context.Background(), testRow(1, map[string]string{
		"Latitude":  "",
		"Longitude": "",
	}))
	require.Nil(t, skip)

	assert.Equal(t, 1, geo.calls)
	require.NotNil(t, converted.Doc.Lat)
	assert.InDelta(t, 48.86, *converted.Doc.Lat, 1e-9)
}

func TestConvertSurvivesGeocoderMiss(t *testing.T) {
	geo := &stubGeocoder{coord: nil}
	conv := NewConverter(geo, testLog())

	converted, skip := conv.Convert(context.Background(), testRow(1, map[string]string{
		"Latitude":  "",
		"Longitude": "",
	}))
	require.Nil(t, skip)
	assert.Nil(t, converted.Doc.Lat)
	assert.Nil(t, converted.Doc.Lon)
}

func TestConvertMissingTagSkips(t *testing.T) {
	conv := NewConverter(nil, testLog())

	converted, skip := conv.Convert(context.Background(), testRow(4, map[string]string{"Tag": "***"}))
	require.Nil(t, converted)
	require.NotNil(t, skip)
	assert.Equal(t, 4, skip.Row)
	assert.Equal(t, "missing tag", skip.Reason)
}

// --------------------------------------------------
// Sheet-level conversion
// --------------------------------------------------

func TestConvertAllReportsDuplicateIdentifiers(t *testing.T) {
	conv := NewConverter(nil, testLog())

	rows := []sheet.Row{
		testRow(1, map[string]string{"Tag": "CAFÉ-X"}),
		testRow(2, map[string]string{"Tag": "café x"}),
	}
	result := conv.ConvertAll(context.Background(), rows, false)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "CAFE-X", result.Rows[0].ID)
	assert.Equal(t, "CAFE-X", result.Rows[1].ID)
	require.Equal(t, []string{"CAFE-X"}, result.Duplicates)
	assert.Empty(t, result.Skips)
}

func TestConvertAllDedupeRenames(t *testing.T) {
	conv := NewConverter(nil, testLog())

	rows := []sheet.Row{
		testRow(1, map[string]string{"Tag": "CAFE-X"}),
		testRow(2, map[string]string{"Tag": "CAFE-X"}),
		testRow(3, map[string]string{"Tag": "CAFE-X"}),
	}
	result := conv.ConvertAll(context.Background(), rows, true)

	require.Len(t, result.Rows, 3)
	assert.Equal(t, "CAFE-X", result.Rows[0].ID)
	assert.Equal(t, "CAFE-X-2", result.Rows[1].ID)
	assert.Equal(t, "CAFE-X-3", result.Rows[2].ID)
	assert.Len(t, result.Duplicates, 2)
}

func TestConvertAllCollectsSkips(t *testing.T) {
	conv := NewConverter(nil, testLog())

	rows := []sheet.Row{
		testRow(1, nil),
		testRow(2, map[string]string{"Tag": ""}),
	}
	result := conv.ConvertAll(context.Background(), rows, false)

	require.Len(t, result.Rows, 1)
	require.Len(t, result.Skips, 1)
	assert.Equal(t, 2, result.Skips[0].Row)
}
