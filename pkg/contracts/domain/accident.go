package domain

import (
	"time"
)

// TableKind identifies one of the four BAAC source tables. The value is the
// case-insensitive keyword searched for in the year directory's file names.
type TableKind string

const (
	TableAccidents TableKind = "caract"
	TableLocations TableKind = "lieux"
	TableVehicles  TableKind = "vehicules"
	TableOccupants TableKind = "usagers"
)

// TableKinds lists the source tables in the order used for signatures and logs.
var TableKinds = []TableKind{TableAccidents, TableLocations, TableVehicles, TableOccupants}

// Keyword returns the file-name keyword for the table kind.
func (k TableKind) Keyword() string {
	return string(k)
}

// Canonical column names shared by every table after normalization.
const (
	ColumnAccidentID = "num_acc"
	ColumnVehicleNum = "num_veh"
	ColumnVehicleID  = "id_vehicule"
	ColumnSeat       = "place"
	ColumnBirthYear  = "an_nais"
	ColumnAge        = "age"
	ColumnLatitude   = "lat"
	ColumnLongitude  = "long"
	ColumnTimestamp  = "timestamp"
	ColumnDepartment = "dep"
	ColumnCommune    = "com"
	ColumnYear       = "an"
	ColumnMonth      = "mois"
	ColumnDay        = "jour"
	ColumnHourMinute = "hrmn"
	ColumnHour       = "heure"
	ColumnMinute     = "minute"
)

// GeoPoint is the geo_point projection of an accident's coordinates.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// AccidentDocument is the nested per-accident document pushed to the store.
type AccidentDocument struct {
	ID              string                   `json:"id_accident" validate:"required"`
	Year            int                      `json:"annee"`
	Timestamp       *time.Time               `json:"timestamp,omitempty"`
	Coords          *GeoPoint                `json:"coords,omitempty"`
	Department      string                   `json:"dep,omitempty"`
	Commune         string                   `json:"com,omitempty"`
	Characteristics map[string]interface{}   `json:"caracteristiques"`
	Location        map[string]interface{}   `json:"lieu,omitempty"`
	Vehicles        []map[string]interface{} `json:"vehicules"`
	Occupants       []map[string]interface{} `json:"usagers"`
	Infrastructure  *Infrastructure          `json:"infrastructure_env,omitempty"`
	Weather         *Weather                 `json:"meteo_reelle,omitempty"`
}

// HasCoordinates reports whether the document carries a geo point.
func (d *AccidentDocument) HasCoordinates() bool {
	return d != nil && d.Coords != nil
}
