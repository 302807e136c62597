package dataprocessing

import (
	"math/rand"
	"sort"

	"baaccli/pkg/contracts/domain"
)

// Dataset is the multi-year result: one table per source kind, rows ordered
// by ascending year then source order.
type Dataset struct {
	Years     []int
	Accidents *Table
	Locations *Table
	Vehicles  *Table
	Occupants *Table
}

// Counts holds the row count of each table.
type Counts struct {
	Accidents int `json:"accidents"`
	Locations int `json:"locations"`
	Vehicles  int `json:"vehicles"`
	Occupants int `json:"occupants"`
}

// Table returns the table for a source kind.
func (d *Dataset) Table(kind domain.TableKind) *Table {
	switch kind {
	case domain.TableAccidents:
		return d.Accidents
	case domain.TableLocations:
		return d.Locations
	case domain.TableVehicles:
		return d.Vehicles
	case domain.TableOccupants:
		return d.Occupants
	}
	return nil
}

// Counts returns the row counts.
func (d *Dataset) Counts() Counts {
	return Counts{
		Accidents: d.Accidents.Len(),
		Locations: d.Locations.Len(),
		Vehicles:  d.Vehicles.Len(),
		Occupants: d.Occupants.Len(),
	}
}

// AccidentIDs returns the accident ids in row order, skipping nulls.
func (d *Dataset) AccidentIDs() []string {
	var ids []string
	for _, v := range d.Accidents.Column(domain.ColumnAccidentID) {
		if !v.IsNull() {
			ids = append(ids, v.Text())
		}
	}
	return ids
}

// Sample keeps n accidents picked with a seeded generator and filters every
// table down to them. n <= 0 or n >= the accident count returns d unchanged.
func (d *Dataset) Sample(n int, seed int64) *Dataset {
	ids := d.AccidentIDs()
	if n <= 0 || n >= len(ids) {
		return d
	}

	rng := rand.New(rand.NewSource(seed))
	keep := make(map[string]bool, n)
	for _, i := range rng.Perm(len(ids))[:n] {
		keep[ids[i]] = true
	}

	return d.Subset(keep)
}

// Subset filters every table down to the accidents whose id is in ids.
func (d *Dataset) Subset(ids map[string]bool) *Dataset {
	filter := func(t *Table) *Table {
		if t == nil {
			return nil
		}
		idx := t.Index(domain.ColumnAccidentID)
		return t.Filter(func(row int) bool {
			r := t.Rows[row]
			return idx >= 0 && idx < len(r) && ids[r[idx].Text()]
		})
	}

	accidents := filter(d.Accidents)
	return &Dataset{
		Years:     yearsOf(accidents),
		Accidents: accidents,
		Locations: filter(d.Locations),
		Vehicles:  filter(d.Vehicles),
		Occupants: filter(d.Occupants),
	}
}

// YearSlice returns the rows of every table that belong to one year.
func (d *Dataset) YearSlice(year int) *Dataset {
	ids := make(map[string]bool)
	yearIdx := d.Accidents.Index(domain.ColumnYear)
	idIdx := d.Accidents.Index(domain.ColumnAccidentID)
	if yearIdx < 0 || idIdx < 0 {
		return &Dataset{}
	}
	for _, r := range d.Accidents.Rows {
		if y, ok := r[yearIdx].AsInt(); ok && int(y) == year {
			ids[r[idIdx].Text()] = true
		}
	}

	sub := d.Subset(ids)
	sub.Years = []int{year}
	return sub
}

// AccidentsWithLocations left joins the first location row of each accident
// onto the accidents table. Accidents without a location keep null columns.
func (d *Dataset) AccidentsWithLocations() *Table {
	return LeftJoin(d.Accidents, d.Locations, domain.ColumnAccidentID)
}

// LeftJoin appends the columns of right onto left, matching rows on key.
// Only the first right row per key is used, so every left row appears
// exactly once. Right columns already present in left are skipped.
func LeftJoin(left, right *Table, key string) *Table {
	if left == nil {
		return nil
	}
	out := left.Clone()
	if right == nil || !right.Has(key) {
		return out
	}

	first := make(map[string]int)
	for k, rows := range right.GroupIndex(key) {
		first[k] = rows[0]
	}

	var extra []int
	for i, c := range right.Columns {
		if !out.Has(c) {
			extra = append(extra, i)
			out.Columns = append(out.Columns, c)
		}
	}

	keyIdx := left.Index(key)
	for i, r := range out.Rows {
		add := make([]Value, len(extra))
		if keyIdx >= 0 && keyIdx < len(r) && !r[keyIdx].IsNull() {
			if j, ok := first[r[keyIdx].Text()]; ok {
				src := right.Rows[j]
				for n, col := range extra {
					if col < len(src) {
						add[n] = src[col]
					}
				}
			}
		}
		out.Rows[i] = append(r, add...)
	}
	return out
}

func yearsOf(accidents *Table) []int {
	seen := make(map[int]bool)
	var years []int
	for _, v := range accidents.Column(domain.ColumnYear) {
		if y, ok := v.AsInt(); ok && !seen[int(y)] {
			seen[int(y)] = true
			years = append(years, int(y))
		}
	}
	sort.Ints(years)
	return years
}
