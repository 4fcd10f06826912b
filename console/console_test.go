package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/devskill-org/sunclock/ephemeris"
	"github.com/devskill-org/sunclock/simclock"
)

func testSnapshot(daylight bool) simclock.Snapshot {
	now := ephemeris.TimeToJulianDay(time.Date(2020, 3, 10, 14, 0, 0, 0, time.UTC))
	return simclock.Snapshot{
		JulianDay: now,
		Daylight:  daylight,
		NextRise: simclock.Event{
			Label:     simclock.Tomorrow,
			JulianDay: now + 0.5,
			Countdown: 12 * time.Hour,
		},
		NextSet: simclock.Event{
			Label:     simclock.Today,
			JulianDay: now + 0.25,
			Countdown: 6 * time.Hour,
		},
		Azimuth:  123.45,
		Altitude: 10,
	}
}

func TestTerminal_Frame(t *testing.T) {
	term := NewTerminal(&bytes.Buffer{}, nil)

	lines := term.Frame(testSnapshot(true))
	if len(lines) != 6 {
		t.Fatalf("Expected 6 lines, got %d", len(lines))
	}

	expected := []string{
		"Current time: 2020-03-10 14:00:00 UTC",
		"Next sunrise: 2020-03-11 02:00:00 UTC (tomorrow)",
		"Sunrise countdown: 12:00:00",
		"Next sunset: 2020-03-10 20:00:00 UTC (today)",
		"Sunset countdown: 06:00:00",
		"azimuth  123.5",
	}
	for i, want := range expected {
		if !strings.Contains(lines[i], want) {
			t.Errorf("Line %d: expected %q in %q", i, want, lines[i])
		}
	}
}

func TestTerminal_RenderDaylight(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, time.UTC)

	if err := term.Render(testSnapshot(true)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, reverseVideo) {
		t.Error("Expected reverse video while the Sun is up")
	}
	if !strings.HasSuffix(out, "\033[6A") {
		t.Error("Expected the cursor to move back up six lines")
	}
}

func TestTerminal_RenderNight(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, time.UTC)

	if err := term.Render(testSnapshot(false)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), resetAttrs) {
		t.Error("Expected plain attributes at night")
	}
}

func TestTerminal_AcquireRestore(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, time.UTC)

	restore := term.Acquire()
	if buf.String() != hideCursor {
		t.Errorf("Expected hidden cursor, got %q", buf.String())
	}

	if err := term.Render(testSnapshot(false)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	buf.Reset()

	restore()
	restore()

	expected := resetAttrs + "\033[6B" + showCursor + "\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}
