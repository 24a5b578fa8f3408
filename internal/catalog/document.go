package catalog

import (
	"encoding/json"
	"time"
)

// RestaurantDocument is the import's target entity, one Firestore document
// per restaurant. The first-address convenience fields (address,
// arrondissement, lat, lon) duplicate addresses[0] because the mobile app
// still reads them; same for the legacy list aliases further down. None of
// them are eliminable until every consumer moves to the canonical fields.
type RestaurantDocument struct {
	Name     string `json:"name" firestore:"name"`
	RawName  string `json:"raw_name" firestore:"raw_name"`
	ShortTag string `json:"short_tag" firestore:"short_tag"`

	Address        string   `json:"address" firestore:"address"`
	Arrondissement string   `json:"arrondissement" firestore:"arrondissement"`
	Lat            *float64 `json:"lat" firestore:"lat"`
	Lon            *float64 `json:"lon" firestore:"lon"`

	Addresses       []AddressEntry `json:"addresses" firestore:"addresses"`
	Arrondissements []string       `json:"arrondissements" firestore:"arrondissements"`

	Cuisine     []string `json:"cuisine" firestore:"cuisine"`
	Moments     []string `json:"moments" firestore:"moments"`
	PlaceTypes  []string `json:"place_types" firestore:"place_types"`
	Ambiance    []string `json:"ambiance" firestore:"ambiance"`
	PriceRange  []string `json:"price_range" firestore:"price_range"`
	Preferences []string `json:"preferences" firestore:"preferences"`
	Recommended []string `json:"recommended_by" firestore:"recommended_by"`
	TerraceTags []string `json:"terrace" firestore:"terrace"`

	// Legacy aliases, older field names still read by released app versions.
	CuisineLegacy     []string `json:"type_cuisine" firestore:"type_cuisine"`
	MomentsLegacy     []string `json:"moment" firestore:"moment"`
	PlaceTypesLegacy  []string `json:"type_endroit" firestore:"type_endroit"`
	PreferencesLegacy []string `json:"regimes" firestore:"regimes"`

	HasTerrace       bool     `json:"has_terrace" firestore:"has_terrace"`
	TerraceLocations []string `json:"terrace_locations" firestore:"terrace_locations"`

	Phone          string `json:"phone" firestore:"phone"`
	Website        string `json:"website" firestore:"website"`
	ReservationURL string `json:"reservation_url" firestore:"reservation_url"`
	MenuURL        string `json:"menu_url" firestore:"menu_url"`
	Instagram      string `json:"instagram" firestore:"instagram"`
	Facebook       string `json:"facebook" firestore:"facebook"`

	OpeningHours map[string]map[string]any `json:"opening_hours" firestore:"opening_hours"`
	Notes        string                    `json:"notes" firestore:"notes"`

	ImportedAt time.Time `json:"imported_at" firestore:"imported_at"`
}

// Map flattens the document into the generic form the batch writer and the
// snapshot files use. JSON and firestore tags are kept identical so one
// round trip is enough.
func (d *RestaurantDocument) Map() (map[string]any, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
