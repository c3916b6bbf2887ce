package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventGroupDatesSorted(t *testing.T) {
	g := EventGroup{
		"2024-10-21": {{Title: "b", Begin: time.Now()}},
		"2024-01-05": {{Title: "a", Begin: time.Now()}},
		"2024-12-31": {{Title: "c", Begin: time.Now()}},
	}

	assert.Equal(t, []string{"2024-01-05", "2024-10-21", "2024-12-31"}, g.Dates())
	assert.Equal(t, 3, g.Total())
}

func TestReportMerge(t *testing.T) {
	var a Report
	a.Ok()
	a.Ok()
	a.Skip("bad date")

	var b Report
	b.Ok()
	b.Skip("bad time")

	a.Merge(b)

	assert.Equal(t, 3, a.Succeeded)
	assert.Equal(t, 2, a.Skipped)
	assert.Equal(t, []string{"bad date", "bad time"}, a.Reasons)
}
