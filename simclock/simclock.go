// Package simclock steps a virtual clock through a day table and answers
// point-in-time questions about the simulated instant.
//
// The clock state is a plain value: the caller owns it, passes it to
// Advance on every tick and stores the result. A Simulator never mutates
// anything, so any number of goroutines may Query it.
package simclock

import (
	"fmt"
	"time"

	"github.com/devskill-org/sunclock/daytable"
	"github.com/devskill-org/sunclock/ephemeris"
)

// ValidationError represents a validation error for simulator parameters
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// State is the position of the clock: the table entry being simulated and
// the number of ticks since that entry's start. The zero value is the
// initial state.
type State struct {
	Day  int `json:"day"`
	Tick int `json:"tick"`
}

// Phase is the part of the simulated day the clock is in
type Phase int

const (
	BeforeRise Phase = iota
	Daylight
	AfterSet
)

func (p Phase) String() string {
	switch p {
	case BeforeRise:
		return "before_rise"
	case Daylight:
		return "daylight"
	case AfterSet:
		return "after_set"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Label tells whether an upcoming event belongs to the current day
type Label string

const (
	Today    Label = "today"
	Tomorrow Label = "tomorrow"
)

// Event is an upcoming sunrise or sunset
type Event struct {
	Label     Label         `json:"label"`
	JulianDay float64       `json:"julian_day"`
	Countdown time.Duration `json:"countdown"`
}

// Snapshot is everything known about the simulated instant of a State
type Snapshot struct {
	State      State   `json:"state"`
	JulianDay  float64 `json:"julian_day"`
	Phase      Phase   `json:"phase"`
	Daylight   bool    `json:"daylight"`
	NextRise   Event   `json:"next_rise"`
	NextSet    Event   `json:"next_set"`
	Azimuth    float64 `json:"azimuth"`  // degrees from north, positive to the east
	Altitude   float64 `json:"altitude"` // degrees
	SunVisible bool    `json:"sun_visible"`
}

// Simulator advances a State through a table at a fixed simulated step per tick
type Simulator struct {
	table    *daytable.Table
	observer ephemeris.Observer
	step     float64 // fraction of a day per tick
}

// New creates a simulator. tickStep is the simulated time covered by one tick.
func New(table *daytable.Table, observer ephemeris.Observer, tickStep time.Duration) (*Simulator, error) {
	if table == nil || table.Len() == 0 {
		return nil, &ValidationError{Field: "table", Message: "must contain at least one day"}
	}
	if tickStep <= 0 {
		return nil, &ValidationError{Field: "tick_step", Message: fmt.Sprintf("must be greater than 0, got: %s", tickStep)}
	}
	if err := observer.Validate(); err != nil {
		return nil, err
	}

	return &Simulator{
		table:    table,
		observer: observer,
		step:     ephemeris.DurationToDays(tickStep),
	}, nil
}

// Table returns the simulated day table
func (s *Simulator) Table() *daytable.Table {
	return s.table
}

// Step returns the simulated time per tick as a fraction of a day
func (s *Simulator) Step() float64 {
	return s.step
}

// TicksPerDay returns the number of ticks spent on table entry day before
// the clock rolls over to the next one.
func (s *Simulator) TicksPerDay(day int) int {
	total := s.table.Entry(day).Total

	// last tick is the largest k with k*step <= total, using the same
	// comparison as Advance
	last := int(total / s.step)
	for float64(last+1)*s.step <= total {
		last++
	}
	for last > 0 && float64(last)*s.step > total {
		last--
	}
	return last + 1
}

// Advance returns the state one tick after st. Once the elapsed simulated
// time passes the entry's total span the clock moves to the start of the
// next entry, wrapping to the first after the last.
func (s *Simulator) Advance(st State) State {
	day := s.normalizeDay(st.Day)
	next := State{Day: day, Tick: st.Tick + 1}

	if float64(next.Tick)*s.step > s.table.Entry(day).Total {
		return State{Day: (day + 1) % s.table.Len(), Tick: 0}
	}
	return next
}

// Now returns the simulated Julian day of st
func (s *Simulator) Now(st State) float64 {
	return s.table.Entry(st.Day).Start + float64(st.Tick)*s.step
}

// Query describes the simulated instant of st. It has no side effects.
func (s *Simulator) Query(st State) Snapshot {
	st.Day = s.normalizeDay(st.Day)
	today := s.table.Entry(st.Day)
	tomorrow := s.table.Entry(st.Day + 1)
	now := s.Now(st)

	snap := Snapshot{
		State:     st,
		JulianDay: now,
		Daylight:  today.Rise <= now && now <= today.Set,
		NextRise:  nextEvent(now, today.Rise, tomorrow.Rise),
		NextSet:   nextEvent(now, today.Set, tomorrow.Set),
	}

	switch {
	case now < today.Rise:
		snap.Phase = BeforeRise
	case now <= today.Set:
		snap.Phase = Daylight
	default:
		snap.Phase = AfterSet
	}

	snap.Azimuth, snap.Altitude = ephemeris.EquatorialToHorizontal(now-today.Transit, today.Declination, s.observer.Latitude)
	snap.SunVisible = snap.Altitude >= ephemeris.HorizonAltitude

	return snap
}

func nextEvent(now, today, tomorrow float64) Event {
	ev := Event{Label: Today, JulianDay: today}
	if now >= today {
		ev = Event{Label: Tomorrow, JulianDay: tomorrow}
	}
	ev.Countdown = ephemeris.DaysToDuration(ev.JulianDay - now)
	return ev
}

func (s *Simulator) normalizeDay(day int) int {
	n := s.table.Len()
	return ((day % n) + n) % n
}
