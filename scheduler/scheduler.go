package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/devskill-org/sunclock/daytable"
	"github.com/devskill-org/sunclock/ephemeris"
	"github.com/devskill-org/sunclock/simclock"
)

// PeriodicTask represents a task that runs periodically with an optional initial delay
type PeriodicTask struct {
	name         string
	initialDelay time.Duration
	interval     time.Duration
	runFunc      func()
}

// run executes the periodic task in a loop, respecting the initial delay and context cancellation
func (pt *PeriodicTask) run(ctx context.Context, stopChan <-chan struct{}, logger *log.Logger) {
	// Wait for initial delay
	if pt.initialDelay > 0 {
		logger.Printf("[%s] Waiting for initial delay: %v", pt.name, pt.initialDelay)
		select {
		case <-time.After(pt.initialDelay):
			pt.runFunc()
		case <-ctx.Done():
			logger.Printf("[%s] Stopped during initial delay due to context cancellation", pt.name)
			return
		case <-stopChan:
			logger.Printf("[%s] Stopped during initial delay due to stop signal", pt.name)
			return
		}
	} else {
		pt.runFunc()
	}

	ticker := time.NewTicker(pt.interval)
	defer ticker.Stop()

	logger.Printf("[%s] Started with interval: %v", pt.name, pt.interval)

	for {
		select {
		case <-ticker.C:
			pt.runFunc()
		case <-ctx.Done():
			logger.Printf("[%s] Stopped due to context cancellation", pt.name)
			return
		case <-stopChan:
			logger.Printf("[%s] Stopped due to stop signal", pt.name)
			return
		}
	}
}

// Display receives every simulated instant the clock produces
type Display interface {
	Render(snap simclock.Snapshot) error
}

// ClockScheduler drives the simulation clock from a wall clock ticker and
// owns the clock state.
type ClockScheduler struct {
	// Configuration
	config   *Config
	location *time.Location

	// Simulation
	sim          *simclock.Simulator
	state        simclock.State
	lastSnapshot simclock.Snapshot
	ticks        uint64
	isRunning    bool
	stopChan     chan struct{}
	mu           sync.RWMutex

	// Outputs
	displays  []Display
	webServer *WebServer

	// Logging
	logger *log.Logger
}

// NewClockScheduler builds the day table for config and creates a scheduler
// positioned at the start of the first simulated day.
func NewClockScheduler(config *Config, logger *log.Logger) (*ClockScheduler, error) {
	if logger == nil {
		logger = log.Default()
	}

	loc, err := config.TimeLocation()
	if err != nil {
		return nil, err
	}

	params, err := config.TableParams(loc)
	if err != nil {
		return nil, err
	}

	table, err := daytable.Build(params, config.Observer())
	if err != nil {
		return nil, fmt.Errorf("failed to build day table: %w", err)
	}

	sim, err := simclock.New(table, config.Observer(), config.TickStep)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulator: %w", err)
	}

	s := &ClockScheduler{
		config:   config,
		location: loc,
		sim:      sim,
		stopChan: make(chan struct{}),
		logger:   logger,
	}
	s.lastSnapshot = sim.Query(s.state)

	for i, e := range table.Entries() {
		logger.Printf("Day %d: sunrise %s, sunset %s, daylight %s",
			i,
			s.LocalTime(e.Rise).Format("2006-01-02 15:04:05 MST"),
			s.LocalTime(e.Set).Format("15:04:05 MST"),
			ephemeris.DaysToDuration(e.DayLength()).Round(time.Second))
	}

	return s, nil
}

// NewClockSchedulerWithWebServer creates a new scheduler instance with the web server
func NewClockSchedulerWithWebServer(config *Config, logger *log.Logger) (*ClockScheduler, error) {
	s, err := NewClockScheduler(config, logger)
	if err != nil {
		return nil, err
	}
	s.webServer = NewWebServer(s, config.HealthCheckPort, config.BroadcastInterval)
	return s, nil
}

// AddDisplay registers a display that receives every tick
func (s *ClockScheduler) AddDisplay(d Display) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displays = append(s.displays, d)
}

// GetConfig returns the current configuration
func (s *ClockScheduler) GetConfig() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Simulator returns the simulator driven by the scheduler
func (s *ClockScheduler) Simulator() *simclock.Simulator {
	return s.sim
}

// Table returns the simulated days
func (s *ClockScheduler) Table() *daytable.Table {
	return s.sim.Table()
}

// Location returns the timezone simulated times are shown in
func (s *ClockScheduler) Location() *time.Location {
	return s.location
}

// LocalTime converts a Julian day to the scheduler's timezone
func (s *ClockScheduler) LocalTime(jd float64) time.Time {
	return ephemeris.JulianDayToTime(jd, s.location)
}

// Start runs the clock until ctx is cancelled or Stop is called
func (s *ClockScheduler) Start(ctx context.Context, serverOnly bool) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	config := s.GetConfig()
	s.logger.Printf("Simulating %d days from %s every %d days at %.0fx",
		config.Days, config.StartDate, config.DayInterval, config.Acceleration())

	// Start web server if configured
	if s.webServer != nil {
		err := s.webServer.Start()
		if err != nil {
			s.logger.Printf("Failed to start web server: %v", err)
		} else {
			s.logger.Printf("Web server started on port %d", s.webServer.port)
		}
		if serverOnly {
			return err
		}
	}

	tasks := []PeriodicTask{
		{
			name:         "Clock",
			initialDelay: 0,
			interval:     config.TickInterval,
			runFunc: func() {
				s.Tick()
			},
		},
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		task := task
		wg.Add(1)
		go func() {
			defer wg.Done()
			task.run(ctx, s.stopChan, s.logger)
		}()
	}

	wg.Wait()

	s.logger.Printf("All periodic tasks stopped")
	s.stop()
	return nil
}

// Tick produces the current simulated instant, hands it to the displays
// and the web server, then advances the clock by one tick.
func (s *ClockScheduler) Tick() simclock.Snapshot {
	s.mu.Lock()
	snap := s.sim.Query(s.state)
	s.state = s.sim.Advance(s.state)
	s.lastSnapshot = snap
	s.ticks++
	displays := s.displays
	s.mu.Unlock()

	for _, d := range displays {
		if err := d.Render(snap); err != nil {
			s.logger.Printf("Display error: %v", err)
		}
	}

	if s.webServer != nil {
		s.webServer.Publish(snap)
	}

	return snap
}

// Snapshot returns the most recently produced simulated instant
func (s *ClockScheduler) Snapshot() simclock.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSnapshot
}

// State returns the clock state the next tick will produce
func (s *ClockScheduler) State() simclock.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stop gracefully stops the scheduler
func (s *ClockScheduler) Stop() {
	s.stop()
}

func (s *ClockScheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.isRunning = false

	// Close stopChan if it's not already closed
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}

	if s.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.webServer.Stop(ctx); err != nil {
			s.logger.Printf("Error stopping web server: %v", err)
		}
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *ClockScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current status of the scheduler
func (s *ClockScheduler) GetStatus() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SchedulerStatus{
		IsRunning: s.isRunning,
		Day:       s.state.Day,
		Tick:      s.state.Tick,
		Ticks:     s.ticks,
		Days:      s.sim.Table().Len(),
		Phase:     s.lastSnapshot.Phase.String(),
	}
}

// SchedulerStatus represents the current status of the scheduler
type SchedulerStatus struct {
	IsRunning bool   `json:"is_running"`
	Day       int    `json:"day"`
	Tick      int    `json:"tick"`
	Ticks     uint64 `json:"ticks"`
	Days      int    `json:"days"`
	Phase     string `json:"phase"`
}
