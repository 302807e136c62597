package exporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"baaccli/internal/config"
	"baaccli/internal/dataprocessing"
)

func str(s string) dataprocessing.Value { return dataprocessing.StringValue(s) }

func testDataset() *dataprocessing.Dataset {
	ts := time.Date(2021, 11, 30, 7, 32, 0, 0, dataprocessing.SourceLocation)
	acc := dataprocessing.NewTable("caract", []string{"num_acc", "an", "dep", "com", "lat", "long", "timestamp"})
	acc.AppendRow([]dataprocessing.Value{str("A"), dataprocessing.IntValue(2021), str("30"), str("30319"),
		dataprocessing.FloatValue(44.03), dataprocessing.FloatValue(4.34), dataprocessing.TimeValue(ts)})
	acc.AppendRow([]dataprocessing.Value{str("B"), dataprocessing.IntValue(2021), str("2A"), str("2A004"),
		dataprocessing.FloatValue(41.9), dataprocessing.Null, dataprocessing.Null})
	acc.AppendRow([]dataprocessing.Value{str("C"), dataprocessing.IntValue(2010), str("30"), str("30007"),
		dataprocessing.Null, dataprocessing.Null, dataprocessing.Null})

	veh := dataprocessing.NewTable("vehicules", []string{"num_acc", "num_veh"})
	veh.AppendRow([]dataprocessing.Value{str("A"), str("A01")})
	veh.AppendRow([]dataprocessing.Value{str("A"), str("B01")})
	veh.AppendRow([]dataprocessing.Value{str("C"), str("A01")})

	occ := dataprocessing.NewTable("usagers", []string{"num_acc", "num_veh"})
	occ.AppendRow([]dataprocessing.Value{str("A"), str("A01")})
	occ.AppendRow([]dataprocessing.Value{str("Z"), str("A01")})

	return &dataprocessing.Dataset{
		Years:     []int{2010, 2021},
		Accidents: acc,
		Locations: dataprocessing.NewTable("lieux", []string{"num_acc"}),
		Vehicles:  veh,
		Occupants: occ,
	}
}

func TestAccidentRows(t *testing.T) {
	rows := AccidentRows(testDataset())
	require.Len(t, rows, 3)

	assert.Equal(t, "A", rows[0].ID)
	assert.Equal(t, 2021, rows[0].Year)
	assert.Equal(t, "2021-11-30T07:32:00+01:00", rows[0].Timestamp)
	require.NotNil(t, rows[0].Lat)
	assert.InDelta(t, 44.03, *rows[0].Lat, 1e-9)
	assert.Equal(t, 2, rows[0].Vehicles)
	assert.Equal(t, 1, rows[0].Occupants)

	assert.NotNil(t, rows[1].Lat)
	assert.Nil(t, rows[1].Lon)
	assert.Empty(t, rows[1].Timestamp)
	assert.Equal(t, 0, rows[1].Vehicles)
}

func TestExportAccidents(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(&config.Paths{ExportDir: dir})

	path, err := ExportAccidents(w, testDataset(), "accidents.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "accidents.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := strings.TrimPrefix(string(data), "\ufeff")
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id_accident,annee,timestamp,lat,lon,dep,com,nb_vehicules,nb_usagers", lines[0])
	assert.Equal(t, "B,2021,,41.9,,2A,2A004,0,0", lines[2])
}

func TestExportAccidentsEmpty(t *testing.T) {
	ds := testDataset()
	ds.Accidents = ds.Accidents.Filter(func(int) bool { return false })

	var sb strings.Builder
	require.NoError(t, EncodeAccidents(&sb, AccidentRows(ds)))
	assert.Equal(t, "id_accident,annee,timestamp,lat,lon,dep,com,nb_vehicules,nb_usagers\n", sb.String())
}

func TestSummarize(t *testing.T) {
	got := Summarize(testDataset())
	assert.Equal(t, []YearSummary{
		{Year: 2010, Accidents: 1, Vehicles: 1},
		{Year: 2021, Accidents: 2, WithCoordinates: 1, WithTimestamp: 1, Vehicles: 2, Occupants: 1},
	}, got)
}

func TestWriteSummaryWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "summary.xlsx")
	require.NoError(t, WriteSummaryWorkbook(testDataset(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Year", rows[0][0])
	assert.Equal(t, []string{"2021", "2", "1", "1", "2", "1"}, rows[2])

	deps, err := f.GetRows(departmentsSheet)
	require.NoError(t, err)
	require.Len(t, deps, 3)
	assert.Equal(t, []string{"30", "2"}, deps[1])
	assert.Equal(t, []string{"2A", "1"}, deps[2])
}
