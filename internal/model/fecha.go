package model

import "time"

// FechaLayout is the local wall-clock format used for every business timestamp
// (ventas, movimientos, sesiones). Day-boundary reports compare these strings
// lexicographically, so the layout must stay fixed-width and never carry a zone.
const FechaLayout = "2006-01-02 15:04:05"

// FormatFecha renders t in the host's local zone using FechaLayout.
func FormatFecha(t time.Time) string {
	return t.In(time.Local).Format(FechaLayout)
}

// ParseFecha parses a FechaLayout string as local time.
func ParseFecha(s string) (time.Time, error) {
	return time.ParseInLocation(FechaLayout, s, time.Local)
}
