package dataprocessing

import (
	"math"
	"strconv"
	"strings"

	"baaccli/pkg/contracts/domain"
)

// Axis selects the geographic bound applied to a parsed coordinate.
type Axis int

const (
	AxisLatitude Axis = iota
	AxisLongitude
)

// Bound returns the maximum absolute value for the axis.
func (a Axis) Bound() float64 {
	if a == AxisLongitude {
		return 180
	}
	return 90
}

// legacyMinDigits is the width legacy coordinates are left padded to.
const legacyMinDigits = 6

// ParseCoordinate decodes a latitude or longitude in either the decimal
// form used since 2019 ("47,56277000") or the compact digit form used
// before ("5055737", "-082600"). Zero is treated as unset GPS.
func ParseCoordinate(raw string, axis Axis) (float64, bool) {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "nan", "none", "null":
		return 0, false
	}

	var (
		v  float64
		ok bool
	)
	if strings.ContainsAny(s, ",.") {
		v, ok = parseDecimalCoordinate(s)
	} else {
		v, ok = parseCompactCoordinate(s)
	}
	if !ok || v == 0 || math.IsNaN(v) || math.Abs(v) > axis.Bound() {
		return 0, false
	}
	return v, true
}

func parseDecimalCoordinate(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseCompactCoordinate(s string) (float64, bool) {
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return 0, true
	}
	if len(digits) < legacyMinDigits {
		digits = strings.Repeat("0", legacyMinDigits-len(digits)) + digits
	}

	split := 2
	if len(digits) == legacyMinDigits {
		split = 1
	}
	v, err := strconv.ParseFloat(digits[:split]+"."+digits[split:], 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// CoordinateValue parses a cell of any kind into a float cell or Null.
func CoordinateValue(v Value, axis Axis) Value {
	if v.IsNull() {
		return Null
	}
	f, ok := ParseCoordinate(v.Text(), axis)
	if !ok {
		return Null
	}
	return FloatValue(f)
}

// CoordinatePair parses latitude and longitude together. Both are Null
// unless both are valid.
func CoordinatePair(lat, lon Value) (Value, Value) {
	la := CoordinateValue(lat, AxisLatitude)
	lo := CoordinateValue(lon, AxisLongitude)
	if la.IsNull() || lo.IsNull() {
		return Null, Null
	}
	return la, lo
}

// ApplyCoordinates rewrites the lat and long columns of an accidents table.
// Missing columns are added as all-null.
func ApplyCoordinates(t *Table) error {
	lats := t.Column(domain.ColumnLatitude)
	lons := t.Column(domain.ColumnLongitude)
	if lats == nil {
		lats = make([]Value, t.Len())
	}
	if lons == nil {
		lons = make([]Value, t.Len())
	}

	for i := range lats {
		lats[i], lons[i] = CoordinatePair(lats[i], lons[i])
	}

	if err := t.SetColumn(domain.ColumnLatitude, lats); err != nil {
		return err
	}
	return t.SetColumn(domain.ColumnLongitude, lons)
}
