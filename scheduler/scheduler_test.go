package scheduler

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/devskill-org/sunclock/ephemeris"
	"github.com/devskill-org/sunclock/simclock"
)

type recordingDisplay struct {
	mu    sync.Mutex
	snaps []simclock.Snapshot
	err   error
}

func (d *recordingDisplay) Render(snap simclock.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snaps = append(d.snaps, snap)
	return d.err
}

func (d *recordingDisplay) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.snaps)
}

func testConfig() *Config {
	config := DefaultConfig()
	config.Days = 3
	config.TickInterval = 5 * time.Millisecond
	return config
}

func TestNewClockScheduler(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		logger *log.Logger
	}{
		{
			name:   "valid parameters",
			config: testConfig(),
			logger: log.New(os.Stdout, "TEST", log.LstdFlags),
		},
		{
			name:   "nil logger",
			config: testConfig(),
			logger: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler, err := NewClockScheduler(tt.config, tt.logger)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			status := scheduler.GetStatus()
			if status.IsRunning {
				t.Error("New scheduler should not be running")
			}
			if status.Days != 3 {
				t.Errorf("Expected 3 days, got %d", status.Days)
			}
			if status.Phase != "before_rise" {
				t.Errorf("Expected before_rise, got %s", status.Phase)
			}

			if tt.logger == nil && scheduler.logger == nil {
				t.Error("Expected default logger when nil provided")
			}
			if scheduler.State() != (simclock.State{}) {
				t.Errorf("Expected initial state, got %+v", scheduler.State())
			}
		})
	}
}

func TestNewClockScheduler_Errors(t *testing.T) {
	t.Run("polar night", func(t *testing.T) {
		config := testConfig()
		config.Latitude = 80

		_, err := NewClockScheduler(config, nil)
		var domainErr *ephemeris.DomainError
		if !errors.As(err, &domainErr) {
			t.Errorf("Expected *ephemeris.DomainError, got %v", err)
		}
	})

	t.Run("invalid location", func(t *testing.T) {
		config := testConfig()
		config.Location = "Nowhere/Special"

		if _, err := NewClockScheduler(config, nil); err == nil {
			t.Error("Expected error for unknown location")
		}
	})

	t.Run("no days", func(t *testing.T) {
		config := testConfig()
		config.Days = 0

		if _, err := NewClockScheduler(config, nil); err == nil {
			t.Error("Expected error for empty table")
		}
	})
}

func TestClockScheduler_Tick(t *testing.T) {
	scheduler, err := NewClockScheduler(testConfig(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	display := &recordingDisplay{}
	scheduler.AddDisplay(display)

	first := scheduler.Tick()
	if first.State != (simclock.State{}) {
		t.Errorf("Expected the first tick to show the initial state, got %+v", first.State)
	}
	if scheduler.State() != (simclock.State{Day: 0, Tick: 1}) {
		t.Errorf("Expected state (0,1) after one tick, got %+v", scheduler.State())
	}

	second := scheduler.Tick()
	if second.JulianDay-first.JulianDay <= 0 {
		t.Error("Expected simulated time to move forward")
	}
	if scheduler.Snapshot() != second {
		t.Error("Expected Snapshot to return the last tick")
	}

	if display.count() != 2 {
		t.Errorf("Expected 2 renders, got %d", display.count())
	}
	if status := scheduler.GetStatus(); status.Ticks != 2 || status.Tick != 2 {
		t.Errorf("Expected 2 ticks, got %+v", status)
	}
}

func TestClockScheduler_TickRollsOver(t *testing.T) {
	scheduler, err := NewClockScheduler(testConfig(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ticks := scheduler.Simulator().TicksPerDay(0)
	for i := 0; i < ticks; i++ {
		scheduler.Tick()
	}

	if scheduler.State() != (simclock.State{Day: 1, Tick: 0}) {
		t.Errorf("Expected the second day after %d ticks, got %+v", ticks, scheduler.State())
	}
}

func TestClockScheduler_DisplayErrorDoesNotStop(t *testing.T) {
	scheduler, err := NewClockScheduler(testConfig(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	failing := &recordingDisplay{err: errors.New("broken pipe")}
	working := &recordingDisplay{}
	scheduler.AddDisplay(failing)
	scheduler.AddDisplay(working)

	scheduler.Tick()

	if working.count() != 1 {
		t.Errorf("Expected the second display to render, got %d", working.count())
	}
}

func TestSchedulerRunningState(t *testing.T) {
	scheduler, err := NewClockScheduler(testConfig(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	display := &recordingDisplay{}
	scheduler.AddDisplay(display)

	// Initially not running
	if scheduler.IsRunning() {
		t.Error("New scheduler should not be running")
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- scheduler.Start(ctx, false)
	}()

	// Give it a moment to start
	time.Sleep(100 * time.Millisecond)

	if !scheduler.IsRunning() {
		t.Error("Scheduler should be running after Start()")
	}

	// Cancel context to stop
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Scheduler did not stop within timeout")
	}

	if scheduler.IsRunning() {
		t.Error("Scheduler should not be running after context cancellation")
	}
	if display.count() == 0 {
		t.Error("Expected the clock to tick while running")
	}
}

func TestSchedulerDoubleStart(t *testing.T) {
	scheduler, err := NewClockScheduler(testConfig(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done1 := make(chan error, 1)
	go func() {
		done1 <- scheduler.Start(ctx, false)
	}()

	// Give it a moment to start
	time.Sleep(100 * time.Millisecond)

	if err := scheduler.Start(ctx, false); err == nil {
		t.Error("Expected error when starting scheduler twice")
	}

	// Clean up
	cancel()
	<-done1
}

func TestSchedulerStop(t *testing.T) {
	scheduler, err := NewClockScheduler(testConfig(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- scheduler.Start(context.Background(), false)
	}()

	// Give it a moment to start
	time.Sleep(100 * time.Millisecond)

	if !scheduler.IsRunning() {
		t.Error("Scheduler should be running")
	}

	scheduler.Stop()

	select {
	case <-done:
		// Expected
	case <-time.After(2 * time.Second):
		t.Error("Scheduler did not stop within timeout")
	}

	if scheduler.IsRunning() {
		t.Error("Scheduler should not be running after Stop()")
	}
}

func TestSchedulerConcurrency(t *testing.T) {
	scheduler, err := NewClockScheduler(testConfig(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	done := make(chan bool, 10)

	// Concurrent readers
	for i := 0; i < 5; i++ {
		go func() {
			defer func() { done <- true }()
			for i := 0; i < 100; i++ {
				_ = scheduler.GetStatus()
				_ = scheduler.Snapshot()
				_ = scheduler.IsRunning()
			}
		}()
	}

	// Concurrent tickers
	for i := 0; i < 5; i++ {
		go func() {
			defer func() { done <- true }()
			for i := 0; i < 100; i++ {
				scheduler.Tick()
			}
		}()
	}

	for i := 0; i < 10; i++ {
		select {
		case <-done:
			// OK
		case <-time.After(5 * time.Second):
			t.Fatal("Concurrent test timed out")
		}
	}

	if status := scheduler.GetStatus(); status.Ticks != 500 {
		t.Errorf("Expected 500 ticks, got %d", status.Ticks)
	}
}

func BenchmarkClockSchedulerTick(b *testing.B) {
	scheduler, err := NewClockScheduler(DefaultConfig(), log.New(os.Stderr, "", 0))
	if err != nil {
		b.Fatalf("Unexpected error: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scheduler.Tick()
	}
}
