package enrichment

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"baaccli/pkg/contracts/domain"
)

const meteoHourly = "temperature_2m,precipitation,rain,snowfall,visibility,windspeed_10m,weathercode"

// Meteo reads hourly observations from the Open-Meteo archive.
type Meteo struct {
	client   *Client
	baseURL  string
	timezone string
}

// NewMeteo creates an archive collaborator. Hours are requested in the
// timezone of the accident timestamps.
func NewMeteo(client *Client, baseURL string, loc *time.Location) *Meteo {
	return &Meteo{client: client, baseURL: baseURL, timezone: loc.String()}
}

type meteoResponse struct {
	Hourly struct {
		Time          []string   `json:"time"`
		Temperature   []*float64 `json:"temperature_2m"`
		Precipitation []*float64 `json:"precipitation"`
		Rain          []*float64 `json:"rain"`
		Snowfall      []*float64 `json:"snowfall"`
		Visibility    []*float64 `json:"visibility"`
		Wind          []*float64 `json:"windspeed_10m"`
		WeatherCode   []*float64 `json:"weathercode"`
	} `json:"hourly"`
}

// Weather returns the observation for the hour of at. It yields nil when
// the archive has no row for that hour.
func (m *Meteo) Weather(ctx context.Context, lat, lon float64, at time.Time) (*domain.Weather, error) {
	day := at.Format(time.DateOnly)
	params := url.Values{
		"latitude":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":  {strconv.FormatFloat(lon, 'f', -1, 64)},
		"start_date": {day},
		"end_date":   {day},
		"hourly":     {meteoHourly},
		"timezone":   {m.timezone},
	}

	var resp meteoResponse
	if err := m.client.GetJSON(ctx, m.baseURL, params, &resp); err != nil {
		return nil, err
	}

	h := resp.Hourly
	idx := hourIndex(h.Time, at)
	if idx < 0 {
		return nil, nil
	}

	w := &domain.Weather{
		TempC:       valueAt(h.Temperature, idx),
		PrecipMM:    valueAt(h.Precipitation, idx),
		RainMM:      valueAt(h.Rain, idx),
		SnowCM:      valueAt(h.Snowfall, idx),
		VisibilityM: valueAt(h.Visibility, idx),
		WindKMH:     valueAt(h.Wind, idx),
	}
	if code := valueAt(h.WeatherCode, idx); code != nil {
		c := int(*code)
		w.WeatherCode = &c
	}
	if *w == (domain.Weather{}) {
		return nil, nil
	}
	return w, nil
}

// hourIndex finds the row for the hour of at. The archive answers in local
// ISO hours ("2006-01-02T15:04").
func hourIndex(times []string, at time.Time) int {
	key := at.Format("2006-01-02T15") + ":00"
	for i, t := range times {
		if t == key {
			return i
		}
	}
	return -1
}

func valueAt(series []*float64, idx int) *float64 {
	if idx < len(series) {
		return series[idx]
	}
	return nil
}
