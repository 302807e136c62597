// Package exporter writes the loaded dataset to files for analysts.
//
// CSVWriter: resolves export paths and writes files with an optional UTF-8
// BOM so spreadsheet tools detect the encoding.
//
// ExportAccidents: one flat row per accident (id, year, timestamp,
// coordinates, codes, vehicle and occupant counts) encoded with csvutil.
//
// WriteSummaryWorkbook: an xlsx workbook with per-year counts and the
// accident count per department.
//
// Example usage:
//
//	csvw := exporter.NewCSVWriter(paths)
//	path, err := exporter.ExportAccidents(csvw, dataset, "accidents.csv")
//
//	err = exporter.WriteSummaryWorkbook(dataset, paths.GetExportPath("summary.xlsx"))
package exporter
