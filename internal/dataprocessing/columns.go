package dataprocessing

import (
	"strings"

	"baaccli/pkg/contracts/domain"
)

// columnAliases maps legacy column names to their canonical name.
var columnAliases = []struct {
	Legacy    string
	Canonical string
}{
	{"accident_id", domain.ColumnAccidentID},
	{"agglo", "agg"},
}

// NormalizeColumnName lowercases a header and strips BOM, quotes and spaces.
func NormalizeColumnName(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeHeader maps raw header names onto the canonical schema. An alias
// is only applied when its canonical target is absent. Applying it twice
// yields the same header.
func NormalizeHeader(columns []string) []string {
	out := make([]string, len(columns))
	present := make(map[string]bool, len(columns))
	for i, c := range columns {
		out[i] = NormalizeColumnName(c)
		present[out[i]] = true
	}

	for _, alias := range columnAliases {
		if !present[alias.Legacy] || present[alias.Canonical] {
			continue
		}
		for i, c := range out {
			if c == alias.Legacy {
				out[i] = alias.Canonical
				break
			}
		}
		present[alias.Canonical] = true
	}
	return out
}

// NormalizeColumns rewrites the table header in place.
func NormalizeColumns(t *Table) *Table {
	t.Columns = NormalizeHeader(t.Columns)
	return t
}
