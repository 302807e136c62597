// Package dataprocessing turns the raw BAAC yearly CSV tables into the
// cleaned, typed tables the rest of the pipeline consumes.
//
// # Architecture
//
// The package is organized into small stages applied per table:
//
// 1. Reader: detects the text encoding and delimiter and reads a Table
// 2. Columns: normalizes header names across the legacy and modern layouts
// 3. Sanitize: cleans numeric, marker, measure and code fields
// 4. Coordinates: parses legacy compact and modern decimal coordinates
// 5. Timestamp: reconciles date parts into a Europe/Paris instant
// 6. Derived: computes occupant ages at the batch year
//
// # Usage
//
//	res, err := dataprocessing.ReadTableFile(path, "caract")
//	if err != nil {
//	    return err
//	}
//	t := dataprocessing.NormalizeColumns(res.Table)
//	dataprocessing.SanitizeTable(t)
//	if err := dataprocessing.ApplyCoordinates(t); err != nil {
//	    return err
//	}
//
// A Dataset groups the four tables of every loaded year and supports
// sampling and per-year slices.
//
// # Data Flow
//
//	CSV bytes → ReadTable → NormalizeColumns → SanitizeTable → ApplyCoordinates → ReconcileTimestamps → Dataset
package dataprocessing
