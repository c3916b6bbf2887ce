package model

import (
	"sort"
	"time"
)

// Event is a single normalized calendar entry. After loading, Begin is always
// zone-aware in the configured display zone. End is nil when the source had no
// usable end time. End is not validated against Begin; malformed sources can
// yield negative-duration events and they pass through unchanged.
type Event struct {
	Title string     `json:"title"`
	Begin time.Time  `json:"begin"`
	End   *time.Time `json:"end,omitempty"`
}

// EventGroup maps an ISO local date ("2006-01-02") to the events starting on
// that date, ordered by Begin ascending. It is rebuilt on every pass and never
// cached across runs.
type EventGroup map[string][]Event

// Dates returns the group's keys in ascending order. ISO date strings sort
// lexically in chronological order.
func (g EventGroup) Dates() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Total returns the number of events across all dates.
func (g EventGroup) Total() int {
	n := 0
	for _, evs := range g {
		n += len(evs)
	}
	return n
}

// Report summarizes one load or extract pass: how many records made it, how
// many were skipped, and why. Record-level failures never abort a pass; they
// are collected here instead.
type Report struct {
	Succeeded int      `json:"succeeded"`
	Skipped   int      `json:"skipped"`
	Reasons   []string `json:"reasons,omitempty"`
}

// Ok counts one successfully handled record.
func (r *Report) Ok() {
	r.Succeeded++
}

// Skip counts one skipped record with its reason.
func (r *Report) Skip(reason string) {
	r.Skipped++
	r.Reasons = append(r.Reasons, reason)
}

// Merge folds another report into r.
func (r *Report) Merge(o Report) {
	r.Succeeded += o.Succeeded
	r.Skipped += o.Skipped
	r.Reasons = append(r.Reasons, o.Reasons...)
}
