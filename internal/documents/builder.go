// Package documents derives the nested per-accident documents pushed to the
// document store from the three-table dataset.
package documents

import (
	"baaccli/internal/dataprocessing"
	"baaccli/pkg/contracts/domain"
)

// Build returns one document per accident row, in row order. Vehicles and
// occupants are grouped under their accident; enrichments are attached by
// accident id when present. Accidents without an id are skipped.
func Build(ds *dataprocessing.Dataset, enrichments map[string]domain.Enrichment) []domain.AccidentDocument {
	if ds == nil || ds.Accidents == nil {
		return nil
	}
	acc := ds.Accidents
	locations := groups(ds.Locations)
	vehicles := groups(ds.Vehicles)
	occupants := groups(ds.Occupants)

	docs := make([]domain.AccidentDocument, 0, acc.Len())
	for i := 0; i < acc.Len(); i++ {
		idValue := acc.Get(i, domain.ColumnAccidentID)
		if idValue.IsNull() {
			continue
		}
		id := idValue.Text()

		doc := domain.AccidentDocument{
			ID:              id,
			Department:      acc.Get(i, domain.ColumnDepartment).Text(),
			Commune:         acc.Get(i, domain.ColumnCommune).Text(),
			Characteristics: acc.Record(i),
			Vehicles:        records(ds.Vehicles, vehicles[id]),
			Occupants:       records(ds.Occupants, occupants[id]),
		}
		if year, ok := acc.Get(i, domain.ColumnYear).AsInt(); ok {
			doc.Year = int(year)
		}
		if ts, ok := acc.Get(i, domain.ColumnTimestamp).AsTime(); ok {
			doc.Timestamp = &ts
		}
		lat, okLat := acc.Get(i, domain.ColumnLatitude).AsFloat()
		lon, okLon := acc.Get(i, domain.ColumnLongitude).AsFloat()
		if okLat && okLon {
			doc.Coords = &domain.GeoPoint{Lat: lat, Lon: lon}
		}
		if rows := locations[id]; len(rows) > 0 {
			doc.Location = ds.Locations.Record(rows[0])
		}
		if e, ok := enrichments[id]; ok {
			doc.Infrastructure = e.Infrastructure
			doc.Weather = e.Weather
		}
		docs = append(docs, doc)
	}
	return docs
}

func groups(t *dataprocessing.Table) map[string][]int {
	if t == nil {
		return map[string][]int{}
	}
	return t.GroupIndex(domain.ColumnAccidentID)
}

// records renders rows of t. The result is never nil so documents always
// carry their arrays.
func records(t *dataprocessing.Table, rows []int) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		out = append(out, t.Record(row))
	}
	return out
}
