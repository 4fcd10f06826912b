// Package daytable builds the table of per-day sunrise, transit and sunset
// events that drives the simulation clock.
package daytable

import (
	"fmt"
	"time"

	"github.com/devskill-org/sunclock/ephemeris"
)

// ValidationError represents a validation error for table parameters
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Params describes which days go into the table
type Params struct {
	StartOffset int           // day offset of the first day since J2000
	DayCount    int           // number of days to simulate (>= 1)
	DayStride   int           // days between two consecutive entries (>= 1)
	PreRoll     time.Duration // simulated time before sunrise
	PostRoll    time.Duration // simulated time after sunset
}

// Entry is one simulated day. All times are Julian days.
type Entry struct {
	ephemeris.SolarEvent

	Rise        float64 `json:"rise"`
	Set         float64 `json:"set"`
	Start       float64 `json:"start"`        // simulation starts here
	Stop        float64 `json:"stop"`         // and stops here
	Total       float64 `json:"total"`        // Stop - Start, fraction of a day
	RiseAzimuth float64 `json:"rise_azimuth"` // degrees from north
	SetAzimuth  float64 `json:"set_azimuth"`  // degrees from north
}

// TrackPoint is a position of the Sun along a day's track
type TrackPoint struct {
	JulianDay float64 `json:"julian_day"`
	Azimuth   float64 `json:"azimuth"`
	Altitude  float64 `json:"altitude"`
}

// Track returns the Sun's path from sunrise to sunset as segments+1 points
// evenly spaced in time, seen from latitude.
func (e Entry) Track(segments int, latitude float64) []TrackPoint {
	if segments < 1 {
		segments = 1
	}
	step := (e.Set - e.Rise) / float64(segments)

	track := make([]TrackPoint, 0, segments+1)
	for i := 0; i <= segments; i++ {
		offset := float64(i) * step
		az, alt := ephemeris.EquatorialToHorizontal(offset-e.HourAngle, e.Declination, latitude)
		track = append(track, TrackPoint{
			JulianDay: e.Rise + offset,
			Azimuth:   az,
			Altitude:  alt,
		})
	}
	return track
}

// Table is an immutable, ordered sequence of simulated days
type Table struct {
	observer ephemeris.Observer
	params   Params
	entries  []Entry
}

// Build evaluates the sunrise equation for every day described by p. A day
// without sunrise or sunset fails the whole table; entries are never skipped.
func Build(p Params, observer ephemeris.Observer) (*Table, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := observer.Validate(); err != nil {
		return nil, err
	}

	preRoll := ephemeris.DurationToDays(p.PreRoll)
	postRoll := ephemeris.DurationToDays(p.PostRoll)

	entries := make([]Entry, 0, p.DayCount)
	for i := 0; i < p.DayCount; i++ {
		n := p.StartOffset + i*p.DayStride
		ev, err := ephemeris.SunRiseSet(float64(n), observer.Longitude, observer.Latitude)
		if err != nil {
			return nil, fmt.Errorf("day %d (offset %d): %w", i, n, err)
		}
		entries = append(entries, newEntry(ev, preRoll, postRoll, observer.Latitude))
	}

	return &Table{
		observer: observer,
		params:   p,
		entries:  entries,
	}, nil
}

// New creates a table from precomputed entries
func New(observer ephemeris.Observer, entries []Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, &ValidationError{Field: "entries", Message: "must contain at least one day"}
	}
	if err := observer.Validate(); err != nil {
		return nil, err
	}

	entriesCopy := make([]Entry, len(entries))
	copy(entriesCopy, entries)

	return &Table{
		observer: observer,
		params:   Params{DayCount: len(entries), DayStride: 1},
		entries:  entriesCopy,
	}, nil
}

func newEntry(ev ephemeris.SolarEvent, preRoll, postRoll, latitude float64) Entry {
	riseAz, _ := ephemeris.EquatorialToHorizontal(-ev.HourAngle, ev.Declination, latitude)
	setAz, _ := ephemeris.EquatorialToHorizontal(ev.HourAngle, ev.Declination, latitude)

	return Entry{
		SolarEvent:  ev,
		Rise:        ev.Rise(),
		Set:         ev.Set(),
		Start:       ev.Rise() - preRoll,
		Stop:        ev.Set() + postRoll,
		Total:       2*ev.HourAngle + preRoll + postRoll,
		RiseAzimuth: riseAz,
		SetAzimuth:  setAz,
	}
}

// Validate checks the table parameters
func (p Params) Validate() error {
	if p.DayCount < 1 {
		return &ValidationError{Field: "day_count", Message: fmt.Sprintf("must be at least 1, got: %d", p.DayCount)}
	}
	if p.DayStride < 1 {
		return &ValidationError{Field: "day_stride", Message: fmt.Sprintf("must be at least 1, got: %d", p.DayStride)}
	}
	if p.PreRoll < 0 {
		return &ValidationError{Field: "pre_roll", Message: fmt.Sprintf("must be non-negative, got: %s", p.PreRoll)}
	}
	if p.PostRoll < 0 {
		return &ValidationError{Field: "post_roll", Message: fmt.Sprintf("must be non-negative, got: %s", p.PostRoll)}
	}
	return nil
}

// Len returns the number of entries
func (t *Table) Len() int {
	return len(t.entries)
}

// Entry returns entry i; i is taken modulo the table length
func (t *Table) Entry(i int) Entry {
	n := len(t.entries)
	return t.entries[((i%n)+n)%n]
}

// Entries returns a copy of all entries
func (t *Table) Entries() []Entry {
	entriesCopy := make([]Entry, len(t.entries))
	copy(entriesCopy, t.entries)
	return entriesCopy
}

// Observer returns the location the table was built for
func (t *Table) Observer() ephemeris.Observer {
	return t.observer
}

// Params returns the parameters the table was built from
func (t *Table) Params() Params {
	return t.params
}
