// internal/export/export_test.go
package export

import (
	"encoding/csv"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/asin-radar/internal/models"
)

func testRecords() []models.ItemRecord {
	price := 19.99
	sub := "Lanterns"
	return []models.ItemRecord{
		{Identifier: "B000000001", Keyword: "camping lantern", Name: "Lantern A", Price: &price, CategorySub: &sub},
		{Identifier: "B000000002", Keyword: "camping lantern", Name: "Lantern B"},
	}
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	exporter := NewExporter(dir, log)

	path, err := exporter.WriteCSV("camping lantern/mini", testRecords())
	require.NoError(t, err)
	assert.NotContains(t, path, " ")
	assert.NotContains(t, path[len(dir):], "/mini")

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "identifier", rows[0][0])
	assert.Equal(t, "B000000001", rows[1][0])
	assert.Equal(t, "19.99", rows[1][3])
	assert.Equal(t, "", rows[2][3]) // null price stays empty
}

func TestWriteXLSX(t *testing.T) {
	dir := t.TempDir()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	exporter := NewExporter(dir, log)

	path, err := exporter.WriteXLSX("camping lantern", testRecords())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
