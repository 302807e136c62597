package dataprocessing

import (
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Paris must resolve on hosts without zoneinfo

	"baaccli/pkg/contracts/domain"
)

// SourceLocation is the timezone accident times are recorded in.
var SourceLocation = mustLoadLocation("Europe/Paris")

var hourMinutePattern = regexp.MustCompile(`^([01][0-9]|2[0-3])[0-5][0-9]$`)

const defaultHourMinute = "0000"

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("failed to load timezone " + name + ": " + err.Error())
	}
	return loc
}

// TimestampFields holds the raw date parts of one accident. Null parts fall
// back to defaults.
type TimestampFields struct {
	Year       Value
	Month      Value
	Day        Value
	HourMinute Value
}

// NormalizeHourMinute returns a strict HHMM string. Values that do not form
// a valid time of day become "0000".
func NormalizeHourMinute(v Value) string {
	if v.IsNull() {
		return defaultHourMinute
	}
	s := strings.ReplaceAll(strings.TrimSpace(v.Text()), ":", "")
	s = strings.TrimSuffix(s, ".0")
	if len(s) < 4 {
		s = strings.Repeat("0", 4-len(s)) + s
	}
	if !hourMinutePattern.MatchString(s) {
		return defaultHourMinute
	}
	return s
}

// NormalizeYear expands two-digit years and falls back to the batch year
// when the cell is missing or unreadable.
func NormalizeYear(v Value, fallback int) int {
	y, ok := cellInt(v)
	if !ok {
		return fallback
	}
	if y < 100 {
		y += 2000
	}
	return int(y)
}

// Reconcile composes the accident time in SourceLocation. It reports false
// for impossible calendar dates and for local times that are skipped or
// repeated by a daylight saving transition.
func Reconcile(f TimestampFields, fallbackYear int) (time.Time, bool) {
	year := NormalizeYear(f.Year, fallbackYear)
	month := intOr(f.Month, 1)
	day := intOr(f.Day, 1)
	hm := NormalizeHourMinute(f.HourMinute)
	hour := int(hm[0]-'0')*10 + int(hm[1]-'0')
	minute := int(hm[2]-'0')*10 + int(hm[3]-'0')

	return localize(year, month, day, hour, minute)
}

func localize(year, month, day, hour, minute int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	utc := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if utc.Day() != day || int(utc.Month()) != month {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, SourceLocation)
	if !sameWallClock(t, year, month, day, hour, minute) {
		return time.Time{}, false
	}
	for _, shift := range []time.Duration{-time.Hour, time.Hour} {
		if sameWallClock(t.Add(shift), year, month, day, hour, minute) {
			return time.Time{}, false
		}
	}
	return t, true
}

func sameWallClock(t time.Time, year, month, day, hour, minute int) bool {
	return t.Year() == year && int(t.Month()) == month && t.Day() == day &&
		t.Hour() == hour && t.Minute() == minute
}

// ReconcileTimestamps rewrites the date columns of an accidents table. It
// normalizes hrmn and an, then adds heure, minute and timestamp. Rows whose
// time cannot be built get a null timestamp.
func ReconcileTimestamps(t *Table, fallbackYear int) error {
	n := t.Len()
	hasHM := t.Has(domain.ColumnHourMinute)

	years := make([]Value, n)
	hours := make([]Value, n)
	minutes := make([]Value, n)
	stamps := make([]Value, n)
	var hrmn []Value
	if hasHM {
		hrmn = make([]Value, n)
	}

	for i := 0; i < n; i++ {
		fields := TimestampFields{
			Year:  t.Get(i, domain.ColumnYear),
			Month: t.Get(i, domain.ColumnMonth),
			Day:   t.Get(i, domain.ColumnDay),
		}
		hm := defaultHourMinute
		if hasHM {
			fields.HourMinute = t.Get(i, domain.ColumnHourMinute)
			hm = NormalizeHourMinute(fields.HourMinute)
			hrmn[i] = StringValue(hm)
		}

		years[i] = IntValue(int64(NormalizeYear(fields.Year, fallbackYear)))
		hours[i] = IntValue(int64(hm[0]-'0')*10 + int64(hm[1]-'0'))
		minutes[i] = IntValue(int64(hm[2]-'0')*10 + int64(hm[3]-'0'))
		if ts, ok := Reconcile(fields, fallbackYear); ok {
			stamps[i] = TimeValue(ts)
		}
	}

	if hasHM {
		if err := t.SetColumn(domain.ColumnHourMinute, hrmn); err != nil {
			return err
		}
	}
	for _, c := range []struct {
		name   string
		values []Value
	}{
		{domain.ColumnYear, years},
		{domain.ColumnHour, hours},
		{domain.ColumnMinute, minutes},
		{domain.ColumnTimestamp, stamps},
	} {
		if err := t.SetColumn(c.name, c.values); err != nil {
			return err
		}
	}
	return nil
}

func intOr(v Value, def int) int {
	if i, ok := cellInt(v); ok {
		return int(i)
	}
	return def
}
