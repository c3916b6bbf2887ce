package tz

import (
	"time"

	appLog "daycal/internal/log"
)

// Resolve returns the *time.Location for the named IANA zone. When the name
// cannot be loaded it falls back to the host's local zone, and as a last
// resort to UTC. It never fails; timestamp handling always has a usable zone.
func Resolve(name string) *time.Location {
	if name != "" {
		loc, err := time.LoadLocation(name)
		if err == nil {
			return loc
		}
		appLog.Warn("timezone not resolvable, falling back to host local", "timezone", name, "err", err)
	}
	if time.Local != nil {
		return time.Local
	}
	appLog.Warn("host local timezone unavailable, falling back to UTC")
	return time.UTC
}

// Normalize brings t into loc. A naive timestamp (zoned=false, parsed without
// any zone information) keeps its wall-clock reading and is stamped with loc;
// no arithmetic shift happens. A zone-aware timestamp is converted into loc
// preserving the absolute instant. A nil loc returns t unchanged rather than
// erroring.
func Normalize(t time.Time, zoned bool, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	if !zoned {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	}
	return t.In(loc)
}
