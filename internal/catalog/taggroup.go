package catalog

// TagGroup is the closed set of tag families a restaurant carries. Each group
// owns its canonical-value table and the ordered list of source columns that
// feed it, so parsing and validation read from the same data.
type TagGroup int

const (
	TagCuisine TagGroup = iota
	TagMoment
	TagPlaceType
	TagAmbiance
	TagPriceRange
	TagPreference
	TagRecommender
	TagTerrace
)

func AllTagGroups() []TagGroup {
	return []TagGroup{
		TagCuisine, TagMoment, TagPlaceType, TagAmbiance,
		TagPriceRange, TagPreference, TagRecommender, TagTerrace,
	}
}

func (g TagGroup) String() string {
	switch g {
	case TagCuisine:
		return "cuisine"
	case TagMoment:
		return "moment"
	case TagPlaceType:
		return "place_type"
	case TagAmbiance:
		return "ambiance"
	case TagPriceRange:
		return "price_range"
	case TagPreference:
		return "preference"
	case TagRecommender:
		return "recommender"
	case TagTerrace:
		return "terrace"
	}
	return "unknown"
}

// GroupByName resolves a loose group name to its TagGroup. Callers that feed
// it unmapped names get ok=false and should treat the field as empty.
func GroupByName(name string) (TagGroup, bool) {
	for _, g := range AllTagGroups() {
		if g.String() == name {
			return g, true
		}
	}
	return 0, false
}

// Columns returns the source columns feeding this group, in priority order.
// Later entries are legacy header spellings still present in older exports.
func (g TagGroup) Columns() []string {
	switch g {
	case TagCuisine:
		return []string{"Type de cuisine", "Cuisine"}
	case TagMoment:
		return []string{"Moment", "Moments"}
	case TagPlaceType:
		return []string{"Type de lieu", "Type d'endroit"}
	case TagAmbiance:
		return []string{"Ambiance", "Ambiances"}
	case TagPriceRange:
		return []string{"Gamme de prix", "Prix"}
	case TagPreference:
		// The source sheet carries two "Préférences" columns on purpose.
		return []string{"Préférences_TAG", "Préférences"}
	case TagRecommender:
		return []string{"Recommandé par", "Reco"}
	case TagTerrace:
		return []string{"Terrasse_TAG", "Terrasse"}
	}
	return nil
}

// canonicalValues is the accepted spelling per group. Values compare
// case- and accent-insensitively; on a match the canonical spelling wins.
// Recommender tags are free-form and have no table.
func (g TagGroup) canonicalValues() []string {
	switch g {
	case TagCuisine:
		return []string{
			"Française", "Italienne", "Japonaise", "Chinoise", "Coréenne",
			"Thaïlandaise", "Vietnamienne", "Indienne", "Libanaise",
			"Israélienne", "Mexicaine", "Américaine", "Espagnole", "Grecque",
			"Portugaise", "Marocaine", "Éthiopienne", "Péruvienne", "Fusion",
		}
	case TagMoment:
		return []string{
			"Petit-déjeuner", "Brunch", "Déjeuner", "Goûter", "Apéro",
			"Dîner", "Tard le soir",
		}
	case TagPlaceType:
		return []string{
			"Restaurant", "Bistrot", "Brasserie", "Café", "Coffee shop",
			"Bar à vin", "Cave à manger", "Salon de thé", "Food court",
			"Rooftop",
		}
	case TagAmbiance:
		return []string{
			"Romantique", "Festif", "Cosy", "Branché", "Familial", "Calme",
			"Terrasse", "Rooftop", "Cour intérieure",
		}
	case TagPriceRange:
		return []string{"€", "€€", "€€€", "€€€€"}
	case TagPreference:
		return []string{
			"100% végétarien", "Vegan friendly", "Casher", "Halal",
			"Sans gluten",
		}
	case TagTerrace:
		return []string{"Terrasse", "Rooftop", "Cour intérieure"}
	}
	return nil
}

// preferenceKeywords maps a folded substring to its canonical preference.
// Checked before the generic table match, in order; first hit wins.
var preferenceKeywords = []struct {
	keyword   string
	canonical string
}{
	{"casher", "Casher"},
	{"kasher", "Casher"},
	{"vegetarien", "100% végétarien"},
	{"vegan", "Vegan friendly"},
	{"halal", "Halal"},
	{"gluten", "Sans gluten"},
}
