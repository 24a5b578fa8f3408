package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danou294/butter-gestion-sub000/internal/sheet"
)

// Geocoder resolves a free-text address into coordinates. A nil, nil return
// means the lookup came up empty; the row imports without coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Coordinate, error)
}

// Column aliases for the scalar fields, in priority order. Tag-group columns
// live on TagGroup.Columns.
var (
	colShortTag       = []string{"Tag", "TAG", "Référence"}
	colName           = []string{"Nom", "Nom du restaurant"}
	colAddress        = []string{"Adresse", "Adresses"}
	colArrondissement = []string{"Arrondissement", "Arrondissements"}
	colLatitude       = []string{"Latitude"}
	colLongitude      = []string{"Longitude"}
	colStation1       = []string{"Métro 1", "Station 1"}
	colStation2       = []string{"Métro 2", "Station 2"}
	colPhone          = []string{"Téléphone", "Tel"}
	colWebsite        = []string{"Site web", "Site"}
	colReservation    = []string{"Lien réservation", "Réservation"}
	colMenu           = []string{"Lien menu", "Menu"}
	colInstagram      = []string{"Instagram"}
	colFacebook       = []string{"Facebook"}
	colHours          = []string{"Horaires", "Horaires d'ouverture"}
	colNotes          = []string{"Notes", "Commentaires"}
)

var idSeparators = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// DeriveID turns the human-assigned short tag into the document key:
// transliterate accents, uppercase, collapse every run of other characters
// into one hyphen, trim. An empty result means the row has no usable tag.
func DeriveID(shortTag string) string {
	id := strings.ToUpper(stripAccents(strings.TrimSpace(shortTag)))
	id = idSeparators.ReplaceAllString(id, "-")
	return strings.Trim(id, "-")
}

// SkipReason records why a row did not convert.
type SkipReason struct {
	Row      int    `json:"row"`
	ShortTag string `json:"short_tag,omitempty"`
	Reason   string `json:"reason"`
}

// ConvertedRow pairs a derived identifier with its document.
type ConvertedRow struct {
	ID       string
	RowIndex int
	Doc      *RestaurantDocument
}

// SheetResult aggregates one full sheet conversion.
type SheetResult struct {
	Rows       []ConvertedRow
	Skips      []SkipReason
	Duplicates []string // duplicate ids in sheet order, repeats included
}

// Converter builds RestaurantDocuments from sheet rows. It never touches the
// store; writes belong to the batch writer.
type Converter struct {
	geo Geocoder
	now func() time.Time
	log *logrus.Entry
}

func NewConverter(geo Geocoder, log *logrus.Entry) *Converter {
	return &Converter{geo: geo, now: time.Now, log: log}
}

// Convert builds one document from one row, or explains why it could not.
func (c *Converter) Convert(ctx context.Context, row sheet.Row) (*ConvertedRow, *SkipReason) {
	shortTag := row.Resolve(colShortTag...)
	id := DeriveID(shortTag)
	if id == "" {
		return nil, &SkipReason{Row: row.Index, ShortTag: shortTag, Reason: "missing tag"}
	}

	addresses := ParseAddresses(row.Resolve(colAddress...))
	arrondissements := ParseArrondissements(row.Resolve(colArrondissement...))
	coords := ParseCoordinates(row.Resolve(colLatitude...), row.Resolve(colLongitude...))
	stations := ParseStations(row.Resolve(colStation1...), row.Resolve(colStation2...), len(addresses))

	coords = c.fillFirstCoordinate(ctx, id, addresses, coords)
	entries := BuildAddressEntries(addresses, arrondissements, coords, stations)

	name := CleanScalar(row.Resolve(colName...))
	if name == "" {
		name = shortTag
	}

	doc := &RestaurantDocument{
		Name:     name,
		RawName:  row.Resolve(colName...),
		ShortTag: strings.TrimSpace(shortTag),

		Address:        entries[0].Address,
		Arrondissement: entries[0].Arrondissement,
		Lat:            entries[0].Lat,
		Lon:            entries[0].Lon,

		Addresses:       entries,
		Arrondissements: arrondissements,

		Cuisine:     NormalizeList(TagCuisine, row.Resolve(TagCuisine.Columns()...)),
		Moments:     NormalizeList(TagMoment, row.Resolve(TagMoment.Columns()...)),
		PlaceTypes:  NormalizeList(TagPlaceType, row.Resolve(TagPlaceType.Columns()...)),
		Ambiance:    NormalizeList(TagAmbiance, row.Resolve(TagAmbiance.Columns()...)),
		PriceRange:  NormalizeList(TagPriceRange, row.Resolve(TagPriceRange.Columns()...)),
		Preferences: NormalizeList(TagPreference, row.Resolve(TagPreference.Columns()...)),
		Recommended: NormalizeList(TagRecommender, row.Resolve(TagRecommender.Columns()...)),
		TerraceTags: NormalizeList(TagTerrace, row.Resolve(TagTerrace.Columns()...)),

		Phone:          CleanScalar(row.Resolve(colPhone...)),
		Website:        CleanScalar(row.Resolve(colWebsite...)),
		ReservationURL: CleanScalar(row.Resolve(colReservation...)),
		MenuURL:        CleanScalar(row.Resolve(colMenu...)),
		Instagram:      CleanScalar(row.Resolve(colInstagram...)),
		Facebook:       CleanScalar(row.Resolve(colFacebook...)),

		OpeningHours: ParseOpeningHours(row.Resolve(colHours...)),
		Notes:        CleanScalar(row.Resolve(colNotes...)),

		ImportedAt: c.now().UTC(),
	}

	doc.CuisineLegacy = doc.Cuisine
	doc.MomentsLegacy = doc.Moments
	doc.PlaceTypesLegacy = doc.PlaceTypes
	doc.PreferencesLegacy = doc.Preferences

	doc.HasTerrace, doc.TerraceLocations = deriveTerrace(doc.Ambiance, doc.PlaceTypes, doc.TerraceTags)

	return &ConvertedRow{ID: id, RowIndex: row.Index, Doc: doc}, nil
}

// fillFirstCoordinate geocodes the first address when the source has an
// address but no usable coordinate pair for it. Geocoding failure is
// non-fatal; the row keeps nil coordinates.
func (c *Converter) fillFirstCoordinate(ctx context.Context, id string, addresses []string, coords []Coordinate) []Coordinate {
	if c.geo == nil || addresses[0] == "" {
		return coords
	}
	if len(coords) > 0 && coords[0].Lat != nil && coords[0].Lon != nil {
		return coords
	}

	found, err := c.geo.Geocode(ctx, addresses[0])
	if err != nil || found == nil {
		c.log.WithField("id", id).Warn("geocoding failed, importing without coordinates")
		return coords
	}
	if len(coords) == 0 {
		coords = make([]Coordinate, 1)
	}
	coords[0] = *found
	return coords
}

var terraceMarkers = []string{"terrasse", "rooftop", "cour"}

func deriveTerrace(groups ...[]string) (bool, []string) {
	var locations []string
	seen := make(map[string]bool)
	for _, tags := range groups {
		for _, tag := range tags {
			folded := Fold(tag)
			for _, marker := range terraceMarkers {
				if strings.Contains(folded, marker) && !seen[folded] {
					seen[folded] = true
					locations = append(locations, tag)
				}
			}
		}
	}
	return len(locations) > 0, locations
}

// ConvertAll runs the whole sheet through Convert, sequentially so the
// geocoder's pacing is respected, and collects duplicate-id diagnostics.
// With dedupe off (the default) duplicates are reported but kept: the batch
// writer makes the last one win, which matches the historical behavior even
// though it silently drops the earlier row.
func (c *Converter) ConvertAll(ctx context.Context, rows []sheet.Row, dedupe bool) *SheetResult {
	result := &SheetResult{}
	seen := make(map[string]int)

	for _, row := range rows {
		converted, skip := c.Convert(ctx, row)
		if skip != nil {
			c.log.WithFields(logrus.Fields{"row": skip.Row, "reason": skip.Reason}).Warn("row skipped")
			result.Skips = append(result.Skips, *skip)
			continue
		}

		if n := seen[converted.ID]; n > 0 {
			result.Duplicates = append(result.Duplicates, converted.ID)
			if dedupe {
				seen[converted.ID] = n + 1
				converted.ID = fmt.Sprintf("%s-%d", converted.ID, n+1)
			} else {
				c.log.WithField("id", converted.ID).Warn("duplicate identifier, later row will overwrite")
			}
		} else {
			seen[converted.ID] = 1
		}

		result.Rows = append(result.Rows, *converted)
	}
	return result
}
