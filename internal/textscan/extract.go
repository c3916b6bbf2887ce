// Package textscan synthesizes calendar events from free text containing
// "HH:MM-HH:MM DD.MM" time-range patterns. Titles are not taken from the
// text; a fixed time-of-day cutoff classifies each event into one of two
// shift labels.
package textscan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	appLog "daycal/internal/log"
	"daycal/internal/model"
)

// timeRangePattern matches "H:MM-H:MM D.M" anywhere in the text; times are
// 24-hour, day and month are 1-2 digits, whitespace between range and date is
// tolerated.
var timeRangePattern = regexp.MustCompile(`(\d{1,2}:\d{2})-(\d{1,2}:\d{2})\s*(\d{1,2}\.\d{1,2})`)

// Clock is a time of day with minute resolution.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (or "H:MM") into a Clock.
func ParseClock(s string) (Clock, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("invalid clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("invalid clock %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("invalid clock %q", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// Minutes returns the clock as minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Extractor scans text for time-range patterns and builds events in a single
// zone. All extracted times are treated as local to Location, never converted.
type Extractor struct {
	// Year combined with the matched day.month; zero means the current year
	// in Location at extraction time.
	Year     int
	Location *time.Location

	// Cutoff splits events into the two title classes: a start strictly
	// before the cutoff gets EarlyTitle, anything else LateTitle.
	Cutoff     Clock
	EarlyTitle string
	LateTitle  string
}

// Extract returns one event per valid pattern occurrence, in scan order; no
// sorting is applied. Invalid matches (impossible dates or times) are skipped
// and counted in the report. Zero matches yields an empty slice, not an
// error; the caller decides how to surface that.
func (x *Extractor) Extract(text string) ([]model.Event, model.Report) {
	var report model.Report

	loc := x.Location
	if loc == nil {
		loc = time.Local
	}
	year := x.Year
	if year == 0 {
		year = time.Now().In(loc).Year()
	}

	matches := timeRangePattern.FindAllStringSubmatch(text, -1)
	events := make([]model.Event, 0, len(matches))

	for _, m := range matches {
		startStr, endStr, dateStr := m[1], m[2], m[3]

		// The strict layout parse rejects impossible values (32.1, 31.2,
		// 25:00) the same way a field-by-field validation would.
		const layout = "2.1.2006 15:04"
		begin, err := time.ParseInLocation(layout, fmt.Sprintf("%s.%d %s", dateStr, year, startStr), loc)
		if err != nil {
			report.Skip(fmt.Sprintf("invalid pattern %s-%s %s: %v", startStr, endStr, dateStr, err))
			continue
		}
		end, err := time.ParseInLocation(layout, fmt.Sprintf("%s.%d %s", dateStr, year, endStr), loc)
		if err != nil {
			report.Skip(fmt.Sprintf("invalid pattern %s-%s %s: %v", startStr, endStr, dateStr, err))
			continue
		}

		title := x.LateTitle
		if begin.Hour()*60+begin.Minute() < x.Cutoff.Minutes() {
			title = x.EarlyTitle
		}

		endCopy := end
		events = append(events, model.Event{Title: title, Begin: begin, End: &endCopy})
		report.Ok()
	}

	if report.Skipped > 0 {
		appLog.Warn("text extraction skipped invalid patterns", "skipped", report.Skipped)
	}
	appLog.Info("text extraction completed", "events", report.Succeeded, "skipped", report.Skipped)
	return events, report
}
