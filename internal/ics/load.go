package ics

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "daycal/internal/log"
	"daycal/internal/model"
	"daycal/internal/tz"
)

// NotFoundError reports a missing calendar file. It matches fs.ErrNotExist
// via errors.Is so callers can keep using the stdlib sentinel.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "calendar file not found: " + e.Path
}

func (e *NotFoundError) Unwrap() error {
	return fs.ErrNotExist
}

// Loader parses structured calendar data into model.Events normalized to a
// single display zone.
type Loader struct {
	loc *time.Location
}

// NewLoader returns a Loader that normalizes every timestamp into loc.
func NewLoader(loc *time.Location) *Loader {
	return &Loader{loc: loc}
}

// Load reads and parses the .ics file at path. A missing file yields
// *NotFoundError; any other read or whole-file parse failure is returned as
// is. Per-event failures never fail the load (see Parse).
func (l *Loader) Load(path string) ([]model.Event, model.Report, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, model.Report{}, &NotFoundError{Path: path}
		}
		return nil, model.Report{}, err
	}
	return l.Parse(body)
}

// Parse parses an ICS payload into events sorted ascending by Begin.
//
// Per VEVENT:
//   - title comes from SUMMARY, defaulting to "Untitled" when absent or empty
//   - a begin that cannot be obtained skips that event and records the reason
//   - an end that cannot be obtained downgrades to absent; the event survives
//   - naive timestamps (no TZID, no trailing Z) keep their wall-clock reading
//     in the display zone; aware ones are converted preserving the instant
func (l *Loader) Parse(body []byte) ([]model.Event, model.Report, error) {
	var report model.Report

	if len(body) == 0 {
		return nil, report, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, report, err
	}

	events := make([]model.Event, 0, len(cal.Events()))

	for _, ve := range cal.Events() {
		ev, perr := l.parseVEvent(ve)
		if perr != nil {
			report.Skip(perr.Error())
			appLog.Warn("skipping calendar entry", "reason", perr)
			continue
		}
		report.Ok()
		events = append(events, ev)
	}

	// Entries sort ascending by Begin; a zero Begin is the minimum time and
	// sorts first on its own.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Begin.Before(events[j].Begin)
	})

	appLog.Info("calendar parsed", "events", report.Succeeded, "skipped", report.Skipped)
	return events, report, nil
}

func (l *Loader) parseVEvent(ve *ical.VEvent) (model.Event, error) {
	var out model.Event

	out.Title = "Untitled"
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil && p.Value != "" {
		out.Title = p.Value
	}

	begin, err := ve.GetStartAt()
	if err != nil {
		return out, errors.New("no usable begin time: " + err.Error())
	}
	out.Begin = tz.Normalize(begin, propZoned(ve.GetProperty(ical.ComponentPropertyDtStart)), l.loc)

	if end, err := ve.GetEndAt(); err == nil {
		e := tz.Normalize(end, propZoned(ve.GetProperty(ical.ComponentPropertyDtEnd)), l.loc)
		out.End = &e
	} else {
		appLog.Warn("entry end time unparseable, keeping begin only", "title", out.Title, "err", err)
	}

	return out, nil
}

// propZoned reports whether a DTSTART/DTEND property carries zone
// information: a TZID parameter or a UTC "Z" suffix. Floating date-times and
// date-only values are naive.
func propZoned(p *ical.IANAProperty) bool {
	if p == nil {
		return false
	}
	if params := p.ICalParameters; params != nil {
		if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
			return true
		}
	}
	return strings.HasSuffix(p.Value, "Z")
}
