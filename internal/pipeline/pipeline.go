// Package pipeline composes one full refresh pass: load every configured
// source, extract text patterns, merge, sort, and group by day. Both the HTTP
// server and the one-shot CLI mode run the same pass.
package pipeline

import (
	"context"
	"errors"
	"os"
	"sort"
	"time"

	"daycal/internal/config"
	"daycal/internal/group"
	"daycal/internal/ics"
	appLog "daycal/internal/log"
	"daycal/internal/model"
	"daycal/internal/textscan"
)

// Result is the outcome of one pass. Days is rebuilt from scratch every time;
// nothing is carried over between passes.
type Result struct {
	Events      []model.Event
	Days        model.EventGroup
	Report      model.Report
	GeneratedAt time.Time
}

// Build runs one pass over all configured inputs at the given instant.
//
// A failure of one source among several is logged and the pass continues;
// only when every configured input is unavailable does Build return an error,
// so callers can tell "source unavailable" apart from "0 events".
func Build(ctx context.Context, cfg *config.Config, loc *time.Location, now time.Time) (Result, error) {
	res := Result{GeneratedAt: now}

	loader := ics.NewLoader(loc)
	fetcher := ics.NewFetcher(cfg.CacheDir)

	inputs := 0
	failed := 0
	var firstErr error

	fail := func(err error, kv ...any) {
		failed++
		if firstErr == nil {
			firstErr = err
		}
		appLog.Error("input unavailable", err, kv...)
	}

	for _, src := range cfg.Sources {
		inputs++

		var (
			events []model.Event
			report model.Report
			err    error
		)
		switch {
		case src.Path != "":
			events, report, err = loader.Load(src.Path)
		case src.URL != "":
			var fetched ics.FetchResult
			fetched, err = fetcher.Fetch(ctx, ics.Source{ID: src.ID, URL: src.URL})
			if err == nil {
				events, report, err = loader.Parse(fetched.Body)
			}
		default:
			err = errors.New("source has neither path nor url")
		}
		if err != nil {
			fail(err, "id", src.ID)
			continue
		}

		res.Events = append(res.Events, events...)
		res.Report.Merge(report)
	}

	if cfg.TextPath != "" {
		inputs++
		if text, err := os.ReadFile(cfg.TextPath); err != nil {
			fail(err, "text_path", cfg.TextPath)
		} else {
			events, report := newExtractor(cfg, loc).Extract(string(text))
			res.Events = append(res.Events, events...)
			res.Report.Merge(report)
		}
	}

	if inputs > 0 && failed == inputs {
		return Result{}, firstErr
	}

	// The extractor emits in scan order; one stable sort here restores the
	// begin-ascending contract for the merged list.
	sort.SliceStable(res.Events, func(i, j int) bool {
		return res.Events[i].Begin.Before(res.Events[j].Begin)
	})

	res.Days = group.Group(res.Events, loc, now)

	appLog.Info("pass completed",
		"days", len(res.Days),
		"events", len(res.Events),
		"skipped", res.Report.Skipped,
	)
	return res, nil
}

func newExtractor(cfg *config.Config, loc *time.Location) *textscan.Extractor {
	cutoff, err := textscan.ParseClock(cfg.Cutoff)
	if err != nil {
		appLog.Warn("invalid cutoff in config, using 16:30", "cutoff", cfg.Cutoff)
		cutoff = textscan.Clock{Hour: 16, Minute: 30}
	}
	return &textscan.Extractor{
		Year:       cfg.ReferenceYear,
		Location:   loc,
		Cutoff:     cutoff,
		EarlyTitle: cfg.EarlyTitle,
		LateTitle:  cfg.LateTitle,
	}
}
