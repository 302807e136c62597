package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baaccli/pkg/contracts/domain"
)

func TestNormalizeHourMinute(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{name: "colon form", in: StringValue("14:50"), want: "1450"},
		{name: "compact", in: StringValue("1450"), want: "1450"},
		{name: "short integer", in: IntValue(850), want: "0850"},
		{name: "midnight digit", in: StringValue("5"), want: "0005"},
		{name: "hour out of range", in: StringValue("2500"), want: "0000"},
		{name: "minute out of range", in: StringValue("1275"), want: "0000"},
		{name: "garbage", in: StringValue("ab:cd"), want: "0000"},
		{name: "null", in: Null, want: "0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHourMinute(tt.in))
		})
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name     string
		fields   TimestampFields
		fallback int
		want     time.Time
		wantOK   bool
	}{
		{
			name:     "two digit year with invalid calendar date",
			fields:   TimestampFields{Year: IntValue(23), Month: IntValue(2), Day: IntValue(30), HourMinute: StringValue("1450")},
			fallback: 2023,
		},
		{
			name:     "invalid hour resets to midnight",
			fields:   TimestampFields{Year: IntValue(2021), Month: IntValue(1), Day: IntValue(1), HourMinute: StringValue("2500")},
			fallback: 2021,
			want:     time.Date(2021, 1, 1, 0, 0, 0, 0, SourceLocation),
			wantOK:   true,
		},
		{
			name:     "two digit year expanded",
			fields:   TimestampFields{Year: StringValue("12"), Month: StringValue("7"), Day: StringValue("14"), HourMinute: StringValue("1830")},
			fallback: 2012,
			want:     time.Date(2012, 7, 14, 18, 30, 0, 0, SourceLocation),
			wantOK:   true,
		},
		{
			name:     "missing year uses fallback and defaults",
			fields:   TimestampFields{},
			fallback: 2019,
			want:     time.Date(2019, 1, 1, 0, 0, 0, 0, SourceLocation),
			wantOK:   true,
		},
		{
			name:     "spring forward gap is null",
			fields:   TimestampFields{Year: IntValue(2021), Month: IntValue(3), Day: IntValue(28), HourMinute: StringValue("02:30")},
			fallback: 2021,
		},
		{
			name:     "autumn overlap is null",
			fields:   TimestampFields{Year: IntValue(2021), Month: IntValue(10), Day: IntValue(31), HourMinute: StringValue("02:30")},
			fallback: 2021,
		},
		{
			name:     "hour after overlap is fine",
			fields:   TimestampFields{Year: IntValue(2021), Month: IntValue(10), Day: IntValue(31), HourMinute: StringValue("03:30")},
			fallback: 2021,
			want:     time.Date(2021, 10, 31, 3, 30, 0, 0, SourceLocation),
			wantOK:   true,
		},
		{
			name:     "month out of range",
			fields:   TimestampFields{Year: IntValue(2021), Month: IntValue(13), Day: IntValue(1)},
			fallback: 2021,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Reconcile(tt.fields, tt.fallback)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
			}
		})
	}
}

func TestReconcileTimestamps(t *testing.T) {
	table := NewTable("caract", []string{
		domain.ColumnAccidentID, domain.ColumnYear, domain.ColumnMonth, domain.ColumnDay, domain.ColumnHourMinute,
	})
	table.AppendRow([]Value{StringValue("1"), IntValue(21), IntValue(6), IntValue(3), StringValue("08:05")})
	table.AppendRow([]Value{StringValue("2"), IntValue(21), IntValue(2), IntValue(30), StringValue("1450")})

	require.NoError(t, ReconcileTimestamps(table, 2021))

	assert.Equal(t, IntValue(2021), table.Get(0, domain.ColumnYear))
	assert.Equal(t, StringValue("0805"), table.Get(0, domain.ColumnHourMinute))
	assert.Equal(t, IntValue(8), table.Get(0, domain.ColumnHour))
	assert.Equal(t, IntValue(5), table.Get(0, domain.ColumnMinute))

	ts, ok := table.Get(0, domain.ColumnTimestamp).AsTime()
	require.True(t, ok)
	assert.True(t, time.Date(2021, 6, 3, 8, 5, 0, 0, SourceLocation).Equal(ts))

	assert.True(t, table.Get(1, domain.ColumnTimestamp).IsNull())
}

func TestReconcileTimestamps_NoHourColumn(t *testing.T) {
	table := NewTable("caract", []string{domain.ColumnAccidentID})
	table.AppendRow([]Value{StringValue("1")})

	require.NoError(t, ReconcileTimestamps(table, 2010))

	assert.False(t, table.Has(domain.ColumnHourMinute))
	assert.Equal(t, IntValue(0), table.Get(0, domain.ColumnHour))
	assert.Equal(t, IntValue(2010), table.Get(0, domain.ColumnYear))
	assert.False(t, table.Get(0, domain.ColumnTimestamp).IsNull())
}
