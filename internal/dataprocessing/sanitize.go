package dataprocessing

import (
	"math"
	"strconv"
	"strings"

	"baaccli/pkg/contracts/domain"
)

// FieldClass selects the cleaning rule applied to a column.
type FieldClass int

const (
	// FieldCode is a categorical integer code. The column is converted to
	// integers only when every present cell parses as one.
	FieldCode FieldClass = iota
	// FieldText is kept verbatim as a string.
	FieldText
	// FieldMarker is a road marker number such as "(12)".
	FieldMarker
	// FieldMeasure is a width in metres with a decimal comma.
	FieldMeasure
	// FieldCount is a count that may carry a multi-value placeholder.
	FieldCount
	// FieldDepartment is a department code padded to 2 characters.
	FieldDepartment
	// FieldCommune is a commune code padded to 3 characters.
	FieldCommune
	// FieldCoordinate is left for the coordinate parser.
	FieldCoordinate
)

var fieldClasses = map[string]FieldClass{
	domain.ColumnAccidentID: FieldText,
	domain.ColumnVehicleID:  FieldText,
	domain.ColumnVehicleNum: FieldText,
	"id_usager":             FieldText,
	"voie":                  FieldText,
	"v2":                    FieldText,
	"adr":                   FieldText,
	"gps":                   FieldText,
	domain.ColumnHourMinute: FieldText,
	"pr":                    FieldMarker,
	"pr1":                   FieldMarker,
	"larrout":               FieldMeasure,
	"lartpc":                FieldMeasure,
	"nbv":                   FieldCount,
	domain.ColumnDepartment: FieldDepartment,
	domain.ColumnCommune:    FieldCommune,
	domain.ColumnLatitude:   FieldCoordinate,
	domain.ColumnLongitude:  FieldCoordinate,
}

// ClassOf returns the cleaning rule for a normalized column name.
func ClassOf(column string) FieldClass {
	if c, ok := fieldClasses[column]; ok {
		return c
	}
	return FieldCode
}

// IsWithheld reports whether s is one of the source placeholders for a
// withheld or inapplicable value.
func IsWithheld(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "#") {
		return true
	}
	switch strings.ToLower(s) {
	case "-1", "-1.0", "(1)", "sans", "n/a":
		return true
	}
	return false
}

// CleanNumeric parses a locale formatted number. Placeholders and
// unparsable text become Null.
func CleanNumeric(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" || IsWithheld(s) {
		return Null
	}
	return parseNumber(strings.ReplaceAll(s, ",", "."))
}

// CleanMarker strips parentheses and spaces before parsing.
func CleanMarker(raw string) Value {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, raw)
	if s == "" || IsWithheld(s) {
		return Null
	}
	return parseNumber(s)
}

// CleanMeasure parses a decimal comma measure as a float.
func CleanMeasure(raw string) Value {
	v := CleanNumeric(raw)
	if f, ok := v.AsFloat(); ok {
		return FloatValue(f)
	}
	return Null
}

// CleanCount parses a count. The "#VALEURMULTI" placeholder is Null.
func CleanCount(raw string) Value {
	return CleanNumeric(raw)
}

// CleanDepartment pads a department code to 2 characters. Codes are never
// converted to numbers so "2A" and "07" survive.
func CleanDepartment(raw string) string {
	return padCode(raw, 2)
}

// CleanCommune pads a commune code to 3 characters.
func CleanCommune(raw string) string {
	return padCode(raw, 3)
}

// CleanRoute keeps any route identifier as a string.
func CleanRoute(v Value) Value {
	if v.IsNull() {
		return Null
	}
	return StringValue(v.Text())
}

func padCode(raw string, width int) string {
	s := strings.TrimSuffix(strings.TrimSpace(raw), ".0")
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

func parseNumber(s string) Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntValue(i)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Null
	}
	return FloatValue(f)
}

// cellInt reads an integer out of any cell kind.
func cellInt(v Value) (int64, bool) {
	if v.Kind == KindString {
		v = CleanNumeric(v.Str)
	}
	return v.AsInt()
}

// SanitizeTable applies the per-column cleaning rules in place. It returns
// the number of present cells that degraded to Null.
func SanitizeTable(t *Table) int {
	degraded := 0
	for _, col := range t.Columns {
		degraded += sanitizeColumn(t, col)
	}
	return degraded
}

func sanitizeColumn(t *Table, col string) int {
	var fn func(Value) Value
	switch ClassOf(col) {
	case FieldText:
		fn = CleanRoute
	case FieldMarker:
		fn = textRule(CleanMarker)
	case FieldMeasure:
		fn = textRule(CleanMeasure)
	case FieldCount:
		fn = textRule(CleanCount)
	case FieldDepartment:
		fn = codeRule(CleanDepartment)
	case FieldCommune:
		fn = codeRule(CleanCommune)
	case FieldCoordinate:
		return 0
	default:
		return sanitizeCodeColumn(t, col)
	}

	degraded := 0
	t.MapColumn(col, func(v Value) Value {
		out := fn(v)
		if out.IsNull() && !v.IsNull() {
			degraded++
		}
		return out
	})
	return degraded
}

// sanitizeCodeColumn nulls placeholder cells of a categorical column, then
// converts it to integers when every remaining present cell is an integer.
// Other columns stay strings.
func sanitizeCodeColumn(t *Table, col string) int {
	degraded := 0
	t.MapColumn(col, func(v Value) Value {
		if v.Kind == KindString && IsWithheld(v.Str) {
			degraded++
			return Null
		}
		return v
	})

	for _, v := range t.Column(col) {
		if v.IsNull() {
			continue
		}
		if _, ok := cellInt(v); !ok {
			return degraded
		}
	}
	t.MapColumn(col, func(v Value) Value {
		if v.IsNull() {
			return Null
		}
		n, _ := cellInt(v)
		return IntValue(n)
	})
	return degraded
}

func textRule(fn func(string) Value) func(Value) Value {
	return func(v Value) Value {
		if v.IsNull() {
			return Null
		}
		return fn(v.Text())
	}
}

func codeRule(fn func(string) string) func(Value) Value {
	return func(v Value) Value {
		if v.IsNull() {
			return Null
		}
		return StringValue(fn(v.Text()))
	}
}
