package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSVCommaDelimited(t *testing.T) {
	path := writeTempCSV(t, "Tag,Nom,Adresse\nCHEZ-JANOU,Chez Janou,2 rue Roger Verlomme\n")

	rows, err := Read(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "CHEZ-JANOU", rows[0].Get("Tag"))
	assert.Equal(t, "Chez Janou", rows[0].Get("Nom"))
}

func TestReadCSVSemicolonDelimited(t *testing.T) {
	path := writeTempCSV(t, "Tag;Nom\nBISTROT-PAUL;Bistrot Paul Bert\n")

	rows, err := Read(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bistrot Paul Bert", rows[0].Get("Nom"))
}

func TestDuplicateColumnFirstNonBlankWins(t *testing.T) {
	path := writeTempCSV(t, "Tag,Préférences,Préférences\nA,,casher\nB,vegan,halal\n")

	rows, err := Read(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "casher", rows[0].Get("Préférences"))
	assert.Equal(t, "vegan", rows[1].Get("Préférences"))
}

func TestResolvePriorityOrder(t *testing.T) {
	row := NewRow(1, []string{"Nom", "Nom du restaurant"}, []string{"", "Le Baratin"})

	assert.Equal(t, "Le Baratin", row.Resolve("Nom", "Nom du restaurant"))
	assert.Equal(t, "", row.Resolve("Téléphone"))
}

func TestBlankRowsAreDropped(t *testing.T) {
	path := writeTempCSV(t, "Tag,Nom\nA,Alpha\n,\nB,Beta\n")

	rows, err := Read(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Index)
	assert.Equal(t, 3, rows[1].Index)
}

func TestReadRejectsUnknownExtension(t *testing.T) {
	_, err := Read("source.txt")
	require.Error(t, err)
}

func TestReadRejectsEmptyFile(t *testing.T) {
	path := writeTempCSV(t, "")
	_, err := Read(path)
	require.Error(t, err)
}
