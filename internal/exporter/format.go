package exporter

import "time"

// formatTime renders an instant in RFC 3339 with its source offset.
func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
