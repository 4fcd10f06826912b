// Package console draws the simulated clock on an ANSI terminal.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/devskill-org/sunclock/ephemeris"
	"github.com/devskill-org/sunclock/simclock"
	"github.com/devskill-org/sunclock/utils"
)

// ANSI control sequences
const (
	hideCursor   = "\033[?25l"
	showCursor   = "\033[?25h"
	resetAttrs   = "\033[0m"
	reverseVideo = "\033[7m"
)

// Terminal redraws the same block of lines on every tick. Lines are shown in
// reverse video while the Sun is up.
type Terminal struct {
	out      io.Writer
	location *time.Location
	lines    int
	mu       sync.Mutex
}

// NewTerminal creates a terminal display writing to out. Times are shown in
// loc, or UTC when loc is nil.
func NewTerminal(out io.Writer, loc *time.Location) *Terminal {
	if loc == nil {
		loc = time.UTC
	}
	return &Terminal{out: out, location: loc}
}

// Acquire hides the cursor and returns a function that restores the
// terminal, leaving the cursor below the last frame.
func (t *Terminal) Acquire() (restore func()) {
	t.mu.Lock()
	fmt.Fprint(t.out, hideCursor)
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			fmt.Fprint(t.out, resetAttrs)
			if t.lines > 0 {
				fmt.Fprintf(t.out, "\033[%dB", t.lines)
			}
			fmt.Fprintln(t.out, showCursor)
		})
	}
}

// Render draws snap and moves the cursor back to the top of the frame
func (t *Terminal) Render(snap simclock.Snapshot) error {
	lines := t.Frame(snap)

	var b strings.Builder
	if snap.Daylight {
		b.WriteString(reverseVideo)
	} else {
		b.WriteString(resetAttrs)
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("    \n")
	}
	fmt.Fprintf(&b, "\033[%dA", len(lines))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = len(lines)
	_, err := io.WriteString(t.out, b.String())
	return err
}

// Frame returns the text lines drawn for snap, without control sequences
func (t *Terminal) Frame(snap simclock.Snapshot) []string {
	return []string{
		fmt.Sprintf("      Current time: %s", t.clock(snap.JulianDay)),
		fmt.Sprintf("      Next sunrise: %s (%s)", t.clock(snap.NextRise.JulianDay), snap.NextRise.Label),
		fmt.Sprintf(" Sunrise countdown: %s", utils.FormatCountdown(snap.NextRise.Countdown)),
		fmt.Sprintf("       Next sunset: %s (%s)", t.clock(snap.NextSet.JulianDay), snap.NextSet.Label),
		fmt.Sprintf("  Sunset countdown: %s", utils.FormatCountdown(snap.NextSet.Countdown)),
		fmt.Sprintf("      Sun position: azimuth %6.1f, altitude %5.1f", snap.Azimuth, snap.Altitude),
	}
}

func (t *Terminal) clock(jd float64) string {
	return utils.FormatClock(ephemeris.JulianDayToTime(jd, t.location).Round(time.Second), t.location)
}
