// Package main provides the sunrise clock entry point and CLI interface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devskill-org/sunclock/console"
	"github.com/devskill-org/sunclock/ephemeris"
	"github.com/devskill-org/sunclock/reference"
	"github.com/devskill-org/sunclock/scheduler"
	"github.com/devskill-org/sunclock/utils"
)

func main() {
	// Command line flags
	var (
		configFile = flag.String("config", "", "Configuration file path (defaults are used when empty)")
		help       = flag.Bool("help", false, "Show help message")
		serverOnly = flag.Bool("serverOnly", false, "Run only web server without the clock")
		table      = flag.Bool("table", false, "Print the simulated days and exit")
		compare    = flag.Bool("compare", false, "Compare the simulated days with reference libraries and exit")
		track      = flag.Bool("track", false, "Print the sun track of every simulated day and exit")
		headless   = flag.Bool("headless", false, "Do not draw the clock on the terminal")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	config := scheduler.DefaultConfig()
	if *configFile != "" {
		var err error
		config, err = scheduler.LoadConfig(*configFile)
		if err != nil {
			fmt.Println("Error loading configuration:", err)
			os.Exit(1)
		}
	}
	if *headless {
		config.Headless = true
	}

	logger := newLogger(config, "[SUNCLOCK] ")

	clock, err := scheduler.NewClockSchedulerWithWebServer(config, logger)
	if err != nil {
		fmt.Println("Error:", err)
		var domainErr *ephemeris.DomainError
		if errors.As(err, &domainErr) {
			fmt.Println("The Sun does not rise and set every simulated day at this latitude; choose other dates or a lower latitude.")
		}
		os.Exit(1)
	}

	switch {
	case *table:
		printTable(clock)
		return
	case *compare:
		if err := printComparison(clock); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		return
	case *track:
		printTracks(clock)
		return
	}

	fmt.Printf("Starting sunrise clock with the following configuration:\n")
	fmt.Printf("  Observer: %.4f, %.4f\n", config.Latitude, config.Longitude)
	fmt.Printf("  Timezone: %s\n", clock.Location())
	fmt.Printf("  Days: %d from %s, every %d days\n", config.Days, config.StartDate, config.DayInterval)
	fmt.Printf("  Tick: %s simulated every %s (%.0fx)\n", config.TickStep, config.TickInterval, config.Acceleration())
	fmt.Println()

	// Draw on the terminal unless headless
	if !config.Headless && !*serverOnly {
		term := console.NewTerminal(os.Stdout, clock.Location())
		restore := term.Acquire()
		defer restore()
		clock.AddDisplay(term)
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start scheduler in a goroutine
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := clock.Start(ctx, *serverOnly); err != nil {
			if err != context.Canceled {
				logger.Printf("Scheduler error: %v", err)
			}
		}
	}()

	logger.Printf("Clock started. Press Ctrl+C to stop...")

	// Wait for shutdown signal
	<-sigChan
	logger.Printf("Shutdown signal received, stopping clock...")

	// Cancel context to stop scheduler
	cancel()
	clock.Stop()

	if !*serverOnly {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
		}
	}

	logger.Printf("Clock stopped successfully")
}

// newLogger returns the application logger. The clock only logs
// informational messages, so warn and error levels silence it.
func newLogger(config *scheduler.Config, prefix string) *log.Logger {
	var out io.Writer = os.Stdout
	if config.LogLevel == "warn" || config.LogLevel == "error" {
		out = io.Discard
	}
	flags := log.LstdFlags
	if config.LogLevel == "debug" {
		flags |= log.Lmicroseconds
	}
	return log.New(out, prefix, flags)
}

func printTable(clock *scheduler.ClockScheduler) {
	entries := clock.Table().Entries()

	fmt.Println("\n========================================")
	fmt.Println("SIMULATED DAYS")
	fmt.Println("========================================")
	fmt.Printf("Timezone: %s\n\n", clock.Location())

	fmt.Println("┌─────┬────────────┬──────────┬──────────┬──────────┬──────────┬──────────┬──────────┐")
	fmt.Println("│ Day │    Date    │ Sunrise  │   Noon   │  Sunset  │ Daylight │ Rise Az  │  Set Az  │")
	fmt.Println("├─────┼────────────┼──────────┼──────────┼──────────┼──────────┼──────────┼──────────┤")

	for i, e := range entries {
		rise := clock.LocalTime(e.Rise).Round(time.Second)
		fmt.Printf("│ %3d │ %10s │ %8s │ %8s │ %8s │ %8s │  %6.2f  │  %6.2f  │\n",
			i,
			rise.Format(scheduler.StartDateLayout),
			rise.Format(time.TimeOnly),
			clock.LocalTime(e.Transit).Round(time.Second).Format(time.TimeOnly),
			clock.LocalTime(e.Set).Round(time.Second).Format(time.TimeOnly),
			utils.FormatCountdown(ephemeris.DaysToDuration(e.DayLength())),
			e.RiseAzimuth,
			e.SetAzimuth,
		)
	}

	fmt.Println("└─────┴────────────┴──────────┴──────────┴──────────┴──────────┴──────────┴──────────┘")
}

func printComparison(clock *scheduler.ClockScheduler) error {
	observer := clock.Table().Observer()

	fmt.Println("\n========================================")
	fmt.Println("REFERENCE COMPARISON")
	fmt.Println("========================================")

	for i, e := range clock.Table().Entries() {
		cmp, err := reference.Compare(int(e.Offset), observer)
		if err != nil {
			return fmt.Errorf("day %d: %w", i, err)
		}

		fmt.Printf("Day %d (%s):\n", i, clock.LocalTime(e.Transit).Format(scheduler.StartDateLayout))
		for _, est := range append([]reference.Estimate{cmp.Engine}, cmp.References...) {
			fmt.Printf("  %-10s rise %s  set %s  (Δ %s / %s)\n",
				est.Source,
				est.Rise.In(clock.Location()).Format(time.TimeOnly),
				est.Set.In(clock.Location()).Format(time.TimeOnly),
				utils.FormatCountdown(est.Rise.Sub(cmp.Engine.Rise)),
				utils.FormatCountdown(est.Set.Sub(cmp.Engine.Set)),
			)
		}
		fmt.Printf("  max deviation: %s\n", cmp.MaxDeviation())
		fmt.Printf("  declination at noon: %.3f° (meeus %.3f°)\n",
			e.Declination*180/math.Pi, reference.Declination(e.Transit))
	}
	return nil
}

func printTracks(clock *scheduler.ClockScheduler) {
	observer := clock.Table().Observer()
	segments := clock.GetConfig().TrackSegments

	for i, e := range clock.Table().Entries() {
		fmt.Printf("\nDay %d (%s), azimuth from south:\n", i, clock.LocalTime(e.Transit).Format(scheduler.StartDateLayout))
		for _, p := range e.Track(segments, observer.Latitude) {
			fmt.Printf("  %s  azimuth %7.2f°  altitude %6.2f°\n",
				clock.LocalTime(p.JulianDay).Round(time.Second).Format(time.TimeOnly),
				utils.SouthAzimuth(p.Azimuth),
				p.Altitude,
			)
		}
	}
}

func showHelp() {
	fmt.Println("Sunrise Clock - Simulate sunrise and sunset at an accelerated pace")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Computes sunrise, solar noon and sunset for an observer over a series of days")
	fmt.Println("  and plays each day back at an accelerated pace, from before sunrise to after")
	fmt.Println("  sunset, showing the countdown to the next sunrise and sunset.")
	fmt.Println()
	fmt.Println("  Key Features:")
	fmt.Println("  - Sunrise equation with no external ephemeris data")
	fmt.Println("  - Terminal clock with today/tomorrow countdowns")
	fmt.Println("  - Sun position and daily track")
	fmt.Println("  - Cross-check against suncalc and go-sunrise")
	fmt.Println("  - Real-time web feed over WebSocket")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  sunclock [OPTIONS]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Run the clock with default settings (UCSB, 7 days from 2019-12-21)")
	fmt.Println("  sunclock")
	fmt.Println()
	fmt.Println("  # Custom configuration")
	fmt.Println("  sunclock --config=config.json")
	fmt.Println()
	fmt.Println("  # Print the simulated days")
	fmt.Println("  sunclock -table")
	fmt.Println()
	fmt.Println("  # Compare with reference libraries")
	fmt.Println("  sunclock -compare")
	fmt.Println()
	fmt.Println("  # Run only the web server, without the clock")
	fmt.Println("  sunclock -serverOnly")
	fmt.Println()
	fmt.Println("  # Show this help")
	fmt.Println("  sunclock -help")
}
