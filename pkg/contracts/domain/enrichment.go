package domain

import "time"

// Infrastructure summarizes road-safety equipment found around an accident.
type Infrastructure struct {
	SecurityCount  int  `json:"infra_securite_count"`
	HasRadarOrRail bool `json:"has_radar_or_rail"`
}

// Weather is the observed weather at the accident hour. Nil fields were not
// reported by the archive.
type Weather struct {
	TempC       *float64 `json:"temp_c,omitempty"`
	PrecipMM    *float64 `json:"precip_mm,omitempty"`
	RainMM      *float64 `json:"rain_mm,omitempty"`
	SnowCM      *float64 `json:"snow_cm,omitempty"`
	VisibilityM *float64 `json:"visibility_m,omitempty"`
	WindKMH     *float64 `json:"wind_kmh,omitempty"`
	WeatherCode *int     `json:"weather_code,omitempty"`
}

// EnrichmentTarget is an accident eligible for external enrichment.
type EnrichmentTarget struct {
	ID     string     `json:"id"`
	Year   int        `json:"year"`
	Lat    float64    `json:"lat"`
	Lon    float64    `json:"lon"`
	Time   *time.Time `json:"time,omitempty"`
	Radius int        `json:"radius"`
}

// Enrichment holds the external context attached to one accident.
type Enrichment struct {
	Infrastructure *Infrastructure `json:"infrastructure_env,omitempty"`
	Weather        *Weather        `json:"meteo_reelle,omitempty"`
}

// IsEmpty reports whether no enrichment source produced data.
func (e Enrichment) IsEmpty() bool {
	return e.Infrastructure == nil && e.Weather == nil
}
