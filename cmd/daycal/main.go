package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"daycal/internal/config"
	"daycal/internal/ics"
	appLog "daycal/internal/log"
	"daycal/internal/pipeline"
	"daycal/internal/tz"
	"daycal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	icsPath    string
	textPath   string
	once       bool
	debug      bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("daycal starting", "version", "0.1.0")

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI overrides beat the config file.
	if flags.listen != "" {
		cfg.Listen = flags.listen
	}
	if flags.icsPath != "" {
		cfg.Sources = append(cfg.Sources, config.SourceConfig{ID: "cli", Name: "cli", Path: flags.icsPath})
	}
	if flags.textPath != "" {
		cfg.TextPath = flags.textPath
	}

	loc := tz.Resolve(cfg.Timezone)

	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"refresh", cfg.RefreshCron,
		"sources", len(cfg.Sources),
		"text_path", cfg.TextPath,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		if err := runOnce(ctx, cfg, loc); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, loc); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("server failed", err)
		os.Exit(1)
	}
	appLog.Info("daycal exiting")
}

// runOnce executes a single pass and prints the day-card summary to stdout.
// An unavailable source exits non-zero; zero events is a successful run.
func runOnce(ctx context.Context, cfg *config.Config, loc *time.Location) error {
	res, err := pipeline.Build(ctx, cfg, loc, time.Now().In(loc))
	if err != nil {
		var nf *ics.NotFoundError
		if errors.As(err, &nf) {
			appLog.Error("calendar source missing", err, "path", nf.Path)
		} else {
			appLog.Error("pass failed", err)
		}
		return err
	}

	fmt.Printf("Showing %d days with %d events\n", len(res.Days), len(res.Events))
	for _, day := range res.Days.Dates() {
		fmt.Println(day)
		for _, ev := range res.Days[day] {
			line := "  " + ev.Begin.Format("15:04")
			if ev.End != nil {
				line += "-" + ev.End.Format("15:04")
			}
			fmt.Println(line + " " + ev.Title)
		}
	}
	if res.Report.Skipped > 0 {
		appLog.Warn("some records were skipped", "skipped", res.Report.Skipped)
	}
	return nil
}

// serve runs the HTTP API plus the cron-scheduled refresh until ctx is done.
func serve(ctx context.Context, cfg *config.Config, loc *time.Location) error {
	srv := web.NewServer(cfg, loc)

	// Warm the cache; a failing source at startup is not fatal, the handler
	// reports it per request until the source comes back.
	if err := srv.Refresh(ctx); err != nil {
		appLog.Error("initial refresh failed", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.RefreshCron, func() {
		if err := srv.Refresh(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", cfg.RefreshCron)
		return err
	}
	c.Start()
	defer c.Stop()

	httpSrv := &http.Server{
		Addr:    cfg.Listen,
		Handler: srv.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
	return httpSrv.ListenAndServe()
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/daycal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.icsPath, "ics", "", "Additional local .ics file to load")
	flag.StringVar(&cfg.textPath, "text", "", "Free-text file to scan for time-range patterns (overrides config)")
	flag.BoolVar(&cfg.once, "once", false, "Run one pass, print the day summary, and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
