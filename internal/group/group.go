// Package group turns a flat event list into the per-day structure consumed
// by presenters.
package group

import (
	"time"

	"daycal/internal/model"
)

const isoDate = "2006-01-02"

// Group filters events to today-or-future and buckets them by local calendar
// date. The comparison is day-granular: an event earlier today is kept, one
// yesterday at 23:59 is not. Events with a zero Begin are dropped silently.
//
// Keys are ISO dates ("2006-01-02") in loc; only dates that actually carry
// events appear. Relative input order is preserved within each day, so a
// begin-sorted input yields begin-sorted days. Pure function: identical
// events and now always produce an identical grouping.
func Group(events []model.Event, loc *time.Location, now time.Time) model.EventGroup {
	if loc == nil {
		loc = time.UTC
	}
	today := dayOrdinal(now.In(loc))

	grouped := make(model.EventGroup)
	for _, ev := range events {
		if ev.Begin.IsZero() {
			continue
		}
		local := ev.Begin.In(loc)
		if dayOrdinal(local) < today {
			continue
		}
		key := local.Format(isoDate)
		grouped[key] = append(grouped[key], ev)
	}
	return grouped
}

// dayOrdinal collapses a timestamp to a comparable calendar-day value.
func dayOrdinal(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
