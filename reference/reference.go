// Package reference cross-checks the ephemeris against independent
// sunrise implementations.
package reference

import (
	"fmt"
	"math"
	"time"

	"github.com/devskill-org/sunclock/ephemeris"
	"github.com/nathan-osman/go-sunrise"
	"github.com/sixdouglas/suncalc"
	"github.com/soniakeys/meeus/v3/solar"
)

// Source names an implementation in a comparison
type Source string

const (
	Engine    Source = "engine"
	SunCalc   Source = "suncalc"
	GoSunrise Source = "go-sunrise"
)

// Estimate is the sunrise and sunset of one day according to one source.
// Times are UTC.
type Estimate struct {
	Source Source    `json:"source"`
	Rise   time.Time `json:"rise"`
	Set    time.Time `json:"set"`
}

// Comparison holds the engine's estimate of a day next to the references
type Comparison struct {
	Offset     int        `json:"offset"`
	Engine     Estimate   `json:"engine"`
	References []Estimate `json:"references"`
}

// MaxDeviation returns the largest absolute difference between the engine
// and any reference, over both sunrise and sunset.
func (c Comparison) MaxDeviation() time.Duration {
	var worst time.Duration
	for _, ref := range c.References {
		for _, d := range []time.Duration{ref.Rise.Sub(c.Engine.Rise), ref.Set.Sub(c.Engine.Set)} {
			if d < 0 {
				d = -d
			}
			if d > worst {
				worst = d
			}
		}
	}
	return worst
}

// Compare evaluates day offset n with the engine and the reference
// libraries. Days the engine cannot solve return its error.
func Compare(n int, observer ephemeris.Observer) (Comparison, error) {
	ev, err := ephemeris.SunRiseSet(float64(n), observer.Longitude, observer.Latitude)
	if err != nil {
		return Comparison{}, err
	}

	// local solar noon, whose UTC date is the observer's date
	noon := ephemeris.JulianDayToTime(ephemeris.J2000+float64(n)-observer.Longitude/360, nil)

	cmp := Comparison{
		Offset: n,
		Engine: Estimate{
			Source: Engine,
			Rise:   ephemeris.JulianDayToTime(ev.Rise(), nil),
			Set:    ephemeris.JulianDayToTime(ev.Set(), nil),
		},
	}

	times := suncalc.GetTimes(noon, observer.Latitude, observer.Longitude)
	cmp.References = append(cmp.References, Estimate{
		Source: SunCalc,
		Rise:   times["sunrise"].Value.UTC(),
		Set:    times["sunset"].Value.UTC(),
	})

	rise, set := sunrise.SunriseSunset(observer.Latitude, observer.Longitude, noon.Year(), noon.Month(), noon.Day())
	if rise.IsZero() || set.IsZero() {
		return cmp, fmt.Errorf("go-sunrise found no sunrise on %s", noon.Format("2006-01-02"))
	}
	cmp.References = append(cmp.References, Estimate{
		Source: GoSunrise,
		Rise:   rise.UTC(),
		Set:    set.UTC(),
	})

	return cmp, nil
}

// Position returns the Sun's azimuth (degrees from north, positive to the
// east) and altitude (degrees) at t according to suncalc.
func Position(t time.Time, observer ephemeris.Observer) (azimuth, altitude float64) {
	pos := suncalc.GetPosition(t, observer.Latitude, observer.Longitude)

	// suncalc measures azimuth from south, positive to the west
	azimuth = math.Mod(pos.Azimuth*180/math.Pi+180, 360)
	if azimuth < 0 {
		azimuth += 360
	}
	return azimuth, pos.Altitude * 180 / math.Pi
}

// Declination returns the Sun's apparent declination in degrees at Julian
// day jd, from the full Meeus solar theory.
func Declination(jd float64) float64 {
	_, dec := solar.ApparentEquatorial(jd)
	return dec.Deg()
}
