// Package utils provides formatting helpers shared by the clock displays.
package utils //nolint:revive // utils is a common and acceptable package name

import (
	"fmt"
	"math"
	"time"
)

// ClockLayout is the layout used to show simulated wall clock times
const ClockLayout = "2006-01-02 15:04:05 MST"

// FormatCountdown formats d as HH:MM:SS, rounded to the second. Negative
// durations get a leading minus sign.
func FormatCountdown(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, s)
}

// FormatClock formats t in loc using ClockLayout
func FormatClock(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(ClockLayout)
}

// SouthAzimuth converts an azimuth measured from north, positive eastward,
// to one measured from south, positive westward, in [-180, 180).
func SouthAzimuth(az float64) float64 {
	s := math.Mod(az-180, 360)
	if s < -180 {
		s += 360
	} else if s >= 180 {
		s -= 360
	}
	return s
}
