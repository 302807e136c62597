package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"baaccli/pkg/contracts/domain"
)

const overpassQuery = `[out:json][timeout:25];
(
  node["highway"="speed_camera"](around:%d,%s,%s);
  way["barrier"="guard_rail"](around:%d,%s,%s);
);
out count;`

// Overpass counts speed cameras and guard rails around a point.
type Overpass struct {
	client  *Client
	baseURL string
}

// NewOverpass creates an Overpass collaborator for the interpreter URL.
func NewOverpass(client *Client, baseURL string) *Overpass {
	return &Overpass{client: client, baseURL: baseURL}
}

type overpassResponse struct {
	Elements []struct {
		Type string                     `json:"type"`
		Tags map[string]json.RawMessage `json:"tags"`
	} `json:"elements"`
}

// OverpassQuery renders the count query for a point.
func OverpassQuery(lat, lon float64, radius int) string {
	la := strconv.FormatFloat(lat, 'f', -1, 64)
	lo := strconv.FormatFloat(lon, 'f', -1, 64)
	return fmt.Sprintf(overpassQuery, radius, la, lo, radius, la, lo)
}

// Infrastructure returns the equipment count within radius meters. A
// response without a count element yields nil.
func (o *Overpass) Infrastructure(ctx context.Context, lat, lon float64, radius int) (*domain.Infrastructure, error) {
	var resp overpassResponse
	params := url.Values{"data": {OverpassQuery(lat, lon, radius)}}
	if err := o.client.GetJSON(ctx, o.baseURL, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Elements) == 0 {
		return nil, nil
	}

	total, err := tagInt(resp.Elements[0].Tags["total"])
	if err != nil {
		return nil, fmt.Errorf("overpass total: %w", err)
	}
	return &domain.Infrastructure{
		SecurityCount:  total,
		HasRadarOrRail: total > 0,
	}, nil
}

// tagInt reads a count tag, which Overpass sends as a string.
func tagInt(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.Atoi(s)
	}
	var n int
	err := json.Unmarshal(raw, &n)
	return n, err
}
