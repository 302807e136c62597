package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"

	"baaccli/internal/dataprocessing"
	"baaccli/pkg/contracts/domain"
)

// AccidentRow is the flat export of one accident.
type AccidentRow struct {
	ID         string   `csv:"id_accident"`
	Year       int      `csv:"annee"`
	Timestamp  string   `csv:"timestamp"`
	Lat        *float64 `csv:"lat"`
	Lon        *float64 `csv:"lon"`
	Department string   `csv:"dep"`
	Commune    string   `csv:"com"`
	Vehicles   int      `csv:"nb_vehicules"`
	Occupants  int      `csv:"nb_usagers"`
}

// AccidentRows flattens the dataset, one row per accident in dataset order.
func AccidentRows(ds *dataprocessing.Dataset) []AccidentRow {
	acc := ds.Accidents
	vehicles := ds.Vehicles.GroupIndex(domain.ColumnAccidentID)
	occupants := ds.Occupants.GroupIndex(domain.ColumnAccidentID)

	rows := make([]AccidentRow, 0, acc.Len())
	for i := 0; i < acc.Len(); i++ {
		id := acc.Get(i, domain.ColumnAccidentID).Text()
		row := AccidentRow{
			ID:         id,
			Department: acc.Get(i, domain.ColumnDepartment).Text(),
			Commune:    acc.Get(i, domain.ColumnCommune).Text(),
			Vehicles:   len(vehicles[id]),
			Occupants:  len(occupants[id]),
		}
		if y, ok := acc.Get(i, domain.ColumnYear).AsInt(); ok {
			row.Year = int(y)
		}
		if ts, ok := acc.Get(i, domain.ColumnTimestamp).AsTime(); ok {
			row.Timestamp = formatTime(ts)
		}
		if lat, ok := acc.Get(i, domain.ColumnLatitude).AsFloat(); ok {
			row.Lat = &lat
		}
		if lon, ok := acc.Get(i, domain.ColumnLongitude).AsFloat(); ok {
			row.Lon = &lon
		}
		rows = append(rows, row)
	}
	return rows
}

// EncodeAccidents writes the rows as CSV with a header line.
func EncodeAccidents(w io.Writer, rows []AccidentRow) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(rows) == 0 {
		if err := enc.EncodeHeader(AccidentRow{}); err != nil {
			return err
		}
	}
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encode accidents: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// ExportAccidents writes the flat accident file and returns its path.
func ExportAccidents(w *CSVWriter, ds *dataprocessing.Dataset, filePath string) (string, error) {
	rows := AccidentRows(ds)
	fullPath := w.resolvePath(filePath)
	err := w.write(fullPath, true, func(out io.Writer) error {
		return EncodeAccidents(out, rows)
	})
	return fullPath, err
}
