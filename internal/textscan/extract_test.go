package textscan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExtractor(loc *time.Location) *Extractor {
	return &Extractor{
		Year:       2024,
		Location:   loc,
		Cutoff:     Clock{Hour: 16, Minute: 30},
		EarlyTitle: "X1",
		LateTitle:  "X2",
	}
}

func TestExtractLateEvent(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	x := testExtractor(loc)

	events, report := x.Extract("shift plan: 17:00-20:15 21.10 please confirm")

	require.Len(t, events, 1)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 0, report.Skipped)

	ev := events[0]
	assert.Equal(t, "X2", ev.Title)
	assert.True(t, ev.Begin.Equal(time.Date(2024, 10, 21, 17, 0, 0, 0, loc)))
	require.NotNil(t, ev.End)
	assert.True(t, ev.End.Equal(time.Date(2024, 10, 21, 20, 15, 0, 0, loc)))
	assert.Equal(t, loc, ev.Begin.Location())
}

func TestExtractEarlyEvent(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	x := testExtractor(loc)

	events, _ := x.Extract("08:00-09:00 5.3")

	require.Len(t, events, 1)
	assert.Equal(t, "X1", events[0].Title)
	assert.True(t, events[0].Begin.Equal(time.Date(2024, 3, 5, 8, 0, 0, 0, loc)))
}

func TestExtractCutoffIsStrict(t *testing.T) {
	loc := time.UTC
	x := testExtractor(loc)

	// A start exactly at the cutoff is not "earlier than" it.
	events, _ := x.Extract("16:30-18:00 1.6 and 16:29-18:00 1.6")

	require.Len(t, events, 2)
	assert.Equal(t, "X2", events[0].Title)
	assert.Equal(t, "X1", events[1].Title)
}

func TestExtractNoMatchesReturnsEmpty(t *testing.T) {
	x := testExtractor(time.UTC)

	events, report := x.Extract("nothing resembling a schedule here")

	assert.Empty(t, events)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 0, report.Skipped)
}

func TestExtractSkipsInvalidMatches(t *testing.T) {
	x := testExtractor(time.UTC)

	// 31.2 is an impossible date; the other match must still come through.
	events, report := x.Extract("10:00-11:00 31.2 then 12:00-13:00 2.4")

	require.Len(t, events, 1)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Reasons, 1)
	assert.Contains(t, report.Reasons[0], "31.2")
	assert.True(t, events[0].Begin.Equal(time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)))
}

func TestExtractKeepsScanOrder(t *testing.T) {
	x := testExtractor(time.UTC)

	// Later date first in the text; output is scan order, not sorted.
	events, _ := x.Extract("18:00-19:00 20.12, 9:00-10:00 1.1")

	require.Len(t, events, 2)
	assert.Equal(t, time.December, events[0].Begin.Month())
	assert.Equal(t, time.January, events[1].Begin.Month())
}

func TestExtractDefaultYear(t *testing.T) {
	x := testExtractor(time.UTC)
	x.Year = 0

	events, _ := x.Extract("10:00-11:00 15.6")

	require.Len(t, events, 1)
	assert.Equal(t, time.Now().UTC().Year(), events[0].Begin.Year())
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "16:30", want: Clock{16, 30}},
		{in: "0:05", want: Clock{0, 5}},
		{in: "23:59", want: Clock{23, 59}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
