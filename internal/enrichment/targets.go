package enrichment

import (
	"baaccli/internal/dataprocessing"
	"baaccli/pkg/contracts/domain"
)

// TargetsFromTable selects the accidents with a coordinate pair whose year
// is at least minYear (0 keeps every year).
func TargetsFromTable(accidents *dataprocessing.Table, minYear, radius int) []domain.EnrichmentTarget {
	var targets []domain.EnrichmentTarget
	for i := 0; i < accidents.Len(); i++ {
		lat, okLat := accidents.Get(i, domain.ColumnLatitude).AsFloat()
		lon, okLon := accidents.Get(i, domain.ColumnLongitude).AsFloat()
		if !okLat || !okLon {
			continue
		}
		year, _ := accidents.Get(i, domain.ColumnYear).AsInt()
		if minYear > 0 && int(year) < minYear {
			continue
		}
		id := accidents.Get(i, domain.ColumnAccidentID)
		if id.IsNull() {
			continue
		}

		target := domain.EnrichmentTarget{
			ID:     id.Text(),
			Year:   int(year),
			Lat:    lat,
			Lon:    lon,
			Radius: radius,
		}
		if ts, ok := accidents.Get(i, domain.ColumnTimestamp).AsTime(); ok {
			target.Time = &ts
		}
		targets = append(targets, target)
	}
	return targets
}
