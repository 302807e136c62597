package dataprocessing

import "baaccli/pkg/contracts/domain"

// minBirthYear is the earliest birth year accepted as real data.
const minBirthYear = 1900

// DeriveOccupantAge adds an age column computed at the batch year from
// an_nais. Missing or implausible birth years give a null age.
func DeriveOccupantAge(t *Table, batchYear int) error {
	births := t.Column(domain.ColumnBirthYear)
	ages := make([]Value, t.Len())
	for i, b := range births {
		year, ok := cellInt(b)
		if !ok || year <= minBirthYear || int(year) > batchYear {
			continue
		}
		ages[i] = IntValue(int64(batchYear) - year)
	}
	return t.SetColumn(domain.ColumnAge, ages)
}
