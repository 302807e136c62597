package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baaccli/pkg/contracts/domain"
)

func TestCleanNumeric(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Value
	}{
		{name: "spaced withheld", in: "  -1 ", want: Null},
		{name: "parenthesized withheld", in: "(1)", want: Null},
		{name: "decimal comma", in: "5,5", want: FloatValue(5.5)},
		{name: "integer", in: "42", want: IntValue(42)},
		{name: "sans", in: "Sans", want: Null},
		{name: "not applicable", in: "N/A", want: Null},
		{name: "reserved marker", in: "#ERREUR", want: Null},
		{name: "text", in: "abc", want: Null},
		{name: "empty", in: "", want: Null},
		{name: "zero kept", in: "0", want: IntValue(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanNumeric(tt.in))
		})
	}
}

func TestFieldRules(t *testing.T) {
	assert.Equal(t, IntValue(12), CleanMarker("( 12 )"))
	assert.Equal(t, IntValue(1), CleanMarker("(1)"))
	assert.Equal(t, Null, CleanMarker("-1"))
	assert.Equal(t, Null, CleanMarker("()"))

	assert.Equal(t, FloatValue(6.5), CleanMeasure(" 6,5 "))
	assert.Equal(t, FloatValue(7), CleanMeasure("7"))
	assert.Equal(t, Null, CleanMeasure("large"))

	assert.Equal(t, Null, CleanCount("#VALEURMULTI"))
	assert.Equal(t, IntValue(2), CleanCount("2"))

	assert.Equal(t, StringValue("12"), CleanRoute(IntValue(12)))
	assert.Equal(t, StringValue("RUE DE LA PAIX"), CleanRoute(StringValue("RUE DE LA PAIX")))
	assert.Equal(t, Null, CleanRoute(Null))
}

func TestCleanDepartment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "7", want: "07"},
		{in: "75", want: "75"},
		{in: "2A", want: "2A"},
		{in: "10", want: "10"},
		{in: "13.0", want: "13"},
		{in: "971", want: "971"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanDepartment(tt.in))
		})
	}
}

func TestCleanCommune(t *testing.T) {
	assert.Equal(t, "005", CleanCommune("5"))
	assert.Equal(t, "056", CleanCommune("56.0"))
	assert.Equal(t, "75056", CleanCommune("75056"))
}

func TestSanitizeTable(t *testing.T) {
	table := NewTable("lieux", []string{
		domain.ColumnAccidentID, "catr", "voie", "pr", "larrout", "nbv", "adr", domain.ColumnDepartment,
	})
	table.AppendRow([]Value{
		StringValue("000123"), StringValue("3"), StringValue("12"), StringValue("(5)"),
		StringValue("6,5"), StringValue("#VALEURMULTI"), StringValue("RD 12"), StringValue("7"),
	})
	table.AppendRow([]Value{
		StringValue("000124"), StringValue("-1"), StringValue("A6"), Null,
		StringValue("x"), StringValue("2"), StringValue("12"), StringValue("2B"),
	})

	degraded := SanitizeTable(table)

	assert.Equal(t, StringValue("000123"), table.Get(0, domain.ColumnAccidentID))
	assert.Equal(t, IntValue(3), table.Get(0, "catr"))
	assert.Equal(t, Null, table.Get(1, "catr"))
	assert.Equal(t, StringValue("12"), table.Get(0, "voie"))
	assert.Equal(t, IntValue(5), table.Get(0, "pr"))
	assert.Equal(t, FloatValue(6.5), table.Get(0, "larrout"))
	assert.Equal(t, Null, table.Get(1, "larrout"))
	assert.Equal(t, Null, table.Get(0, "nbv"))
	assert.Equal(t, IntValue(2), table.Get(1, "nbv"))
	assert.Equal(t, StringValue("07"), table.Get(0, domain.ColumnDepartment))
	assert.Equal(t, StringValue("2B"), table.Get(1, domain.ColumnDepartment))
	assert.Equal(t, 3, degraded)
}

func TestSanitizeTable_MixedCodeColumnStaysText(t *testing.T) {
	table := NewTable("caract", []string{"int"})
	table.AppendRow([]Value{StringValue("1")})
	table.AppendRow([]Value{StringValue("rond-point")})
	table.AppendRow([]Value{StringValue("-1")})

	require.Equal(t, 1, SanitizeTable(table))
	assert.Equal(t, StringValue("1"), table.Get(0, "int"))
	assert.Equal(t, StringValue("rond-point"), table.Get(1, "int"))
	assert.True(t, table.Get(2, "int").IsNull(), "placeholders are null even when the column stays text")
}

func TestSanitizeTable_CodeColumnPlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		cells    []string
		want     []Value
		degraded int
	}{
		{
			name:     "text column",
			cells:    []string{"-1", "A", "(1)", "B"},
			want:     []Value{Null, StringValue("A"), Null, StringValue("B")},
			degraded: 2,
		},
		{
			name:     "integer column",
			cells:    []string{"-1", "2", "(1)", "3"},
			want:     []Value{Null, IntValue(2), Null, IntValue(3)},
			degraded: 2,
		},
		{
			name:     "only placeholders",
			cells:    []string{"-1", "#ERREUR"},
			want:     []Value{Null, Null},
			degraded: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewTable("vehicules", []string{"actp"})
			for _, c := range tt.cells {
				table.AppendRow([]Value{StringValue(c)})
			}

			assert.Equal(t, tt.degraded, SanitizeTable(table))
			assert.Equal(t, tt.want, table.Column("actp"))
		})
	}
}

func TestDeriveOccupantAge(t *testing.T) {
	table := NewTable("usagers", []string{domain.ColumnAccidentID, domain.ColumnBirthYear})
	table.AppendRow([]Value{StringValue("1"), IntValue(1980)})
	table.AppendRow([]Value{StringValue("1"), Null})
	table.AppendRow([]Value{StringValue("1"), IntValue(1850)})
	table.AppendRow([]Value{StringValue("1"), StringValue("2001")})

	require.NoError(t, DeriveOccupantAge(table, 2021))

	assert.Equal(t, IntValue(41), table.Get(0, domain.ColumnAge))
	assert.True(t, table.Get(1, domain.ColumnAge).IsNull())
	assert.True(t, table.Get(2, domain.ColumnAge).IsNull())
	assert.Equal(t, IntValue(20), table.Get(3, domain.ColumnAge))
}
