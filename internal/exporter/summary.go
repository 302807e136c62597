package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"baaccli/internal/dataprocessing"
	"baaccli/pkg/contracts/domain"
)

const (
	summarySheet     = "Summary"
	departmentsSheet = "Departments"
)

// YearSummary holds the counts of one year.
type YearSummary struct {
	Year            int
	Accidents       int
	WithCoordinates int
	WithTimestamp   int
	Vehicles        int
	Occupants       int
}

// Summarize counts rows per year. Vehicles and occupants are attributed to
// the year of their accident.
func Summarize(ds *dataprocessing.Dataset) []YearSummary {
	byYear := make(map[int]*YearSummary)
	accidentYear := make(map[string]int)

	acc := ds.Accidents
	for i := 0; i < acc.Len(); i++ {
		y, _ := acc.Get(i, domain.ColumnYear).AsInt()
		s := byYear[int(y)]
		if s == nil {
			s = &YearSummary{Year: int(y)}
			byYear[int(y)] = s
		}
		s.Accidents++
		if !acc.Get(i, domain.ColumnLatitude).IsNull() && !acc.Get(i, domain.ColumnLongitude).IsNull() {
			s.WithCoordinates++
		}
		if !acc.Get(i, domain.ColumnTimestamp).IsNull() {
			s.WithTimestamp++
		}
		accidentYear[acc.Get(i, domain.ColumnAccidentID).Text()] = int(y)
	}

	count := func(t *dataprocessing.Table, add func(*YearSummary)) {
		for id, rows := range t.GroupIndex(domain.ColumnAccidentID) {
			y, ok := accidentYear[id]
			if !ok {
				continue
			}
			for range rows {
				add(byYear[y])
			}
		}
	}
	count(ds.Vehicles, func(s *YearSummary) { s.Vehicles++ })
	count(ds.Occupants, func(s *YearSummary) { s.Occupants++ })

	out := make([]YearSummary, 0, len(byYear))
	for _, s := range byYear {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// WriteSummaryWorkbook writes the per-year and per-department sheets.
func WriteSummaryWorkbook(ds *dataprocessing.Dataset, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	header := []interface{}{"Year", "Accidents", "With coordinates", "With timestamp", "Vehicles", "Occupants"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return err
	}
	for i, s := range Summarize(ds) {
		row := []interface{}{s.Year, s.Accidents, s.WithCoordinates, s.WithTimestamp, s.Vehicles, s.Occupants}
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(departmentsSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(departmentsSheet, "A1", &[]interface{}{"Department", "Accidents"}); err != nil {
		return err
	}
	for i, d := range departmentCounts(ds.Accidents) {
		if err := f.SetSheetRow(departmentsSheet, fmt.Sprintf("A%d", i+2), &[]interface{}{d.code, d.count}); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return f.SaveAs(path)
}

type departmentCount struct {
	code  string
	count int
}

// departmentCounts orders departments by descending accident count, then
// by code.
func departmentCounts(acc *dataprocessing.Table) []departmentCount {
	counts := make(map[string]int)
	for _, v := range acc.Column(domain.ColumnDepartment) {
		if !v.IsNull() {
			counts[v.Text()]++
		}
	}
	out := make([]departmentCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, departmentCount{code: code, count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].code < out[j].code
	})
	return out
}
