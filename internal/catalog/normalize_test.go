package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanScalar(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims spaces", "  Chez Janou  ", "Chez Janou"},
		{"non-breaking space", "Chez Janou", "Chez Janou"},
		{"narrow non-breaking space", "12 30", "12 30"},
		{"en dash", "12h – 14h", "12h - 14h"},
		{"em dash", "12h — 14h", "12h - 14h"},
		{"stray trailing backtick", "Bistrot`", "Bistrot"},
		{"non token", "non", ""},
		{"NON token", "NON", ""},
		{"nan token", "NaN", ""},
		{"n/a token", "n/a", ""},
		{"bare na is a real value", "Na", "Na"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanScalar(tt.in))
		})
	}
}

func TestNormalizeListPreferences(t *testing.T) {
	got := NormalizeList(TagPreference, "vegetarien, Casher, n/a")
	require.Equal(t, []string{"100% végétarien", "Casher"}, got)
}

func TestNormalizeListCanonicalizesCaseAndAccents(t *testing.T) {
	got := NormalizeList(TagCuisine, "ITALIENNE, francaise, inconnue")
	require.Equal(t, []string{"Italienne", "Française", "inconnue"}, got)
}

func TestNormalizeListDeduplicatesFirstSeen(t *testing.T) {
	got := NormalizeList(TagMoment, "Brunch, brunch, Dîner, BRUNCH")
	require.Equal(t, []string{"Brunch", "Dîner"}, got)
}

func TestNormalizeListIdempotent(t *testing.T) {
	inputs := map[TagGroup]string{
		TagCuisine:    "italienne, Japonaise, fusion",
		TagMoment:     "brunch, diner",
		TagPlaceType:  "bistrot, CAFE",
		TagAmbiance:   "romantique, cosy",
		TagPriceRange: "€€, €€€",
		TagPreference: "vegetarien, sans gluten, casher",
		TagTerrace:    "terrasse, rooftop",
	}

	for group, raw := range inputs {
		once := NormalizeList(group, raw)
		twice := NormalizeList(group, strings.Join(once, ", "))
		require.Equal(t, once, twice, "group %s", group)
	}
}

func TestNormalizeListRecommenderPassesThrough(t *testing.T) {
	got := NormalizeList(TagRecommender, "Le Fooding, Marie")
	require.Equal(t, []string{"Le Fooding", "Marie"}, got)
}

func TestNormalizeNamedUnknownGroup(t *testing.T) {
	assert.Empty(t, NormalizeNamed("no_such_group", "whatever"))
}

func TestCanonicalizeKeepsUnknownValue(t *testing.T) {
	assert.Equal(t, "Bouillon", TagPlaceType.Canonicalize("Bouillon"))
}
