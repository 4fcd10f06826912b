// Package main prints the Sun's track across one day, computed by the
// ephemeris and by suncalc side by side.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/devskill-org/sunclock/daytable"
	"github.com/devskill-org/sunclock/ephemeris"
	"github.com/devskill-org/sunclock/reference"
)

func main() {
	observer := ephemeris.Observer{Latitude: 34.4, Longitude: -119.8} // UCSB
	loc := time.FixedZone("PST", -8*3600)

	n := ephemeris.NoonOffset(2020, time.March, 10, loc)
	table, err := daytable.Build(daytable.Params{StartOffset: n, DayCount: 1, DayStride: 1}, observer)
	if err != nil {
		log.Fatalf("Failed to build table: %v", err)
	}
	e := table.Entry(0)

	fmt.Printf("Sunrise: %s, azimuth %.2f°\n", ephemeris.JulianDayToTime(e.Rise, loc).Format(time.TimeOnly), e.RiseAzimuth)
	fmt.Printf("Sunset:  %s, azimuth %.2f°\n", ephemeris.JulianDayToTime(e.Set, loc).Format(time.TimeOnly), e.SetAzimuth)

	for _, p := range e.Track(12, observer.Latitude) {
		t := ephemeris.JulianDayToTime(p.JulianDay, loc)
		az, alt := reference.Position(t, observer)
		fmt.Printf("%s  Azimuth: %6.2f° (%6.2f°), Altitude: %5.2f° (%5.2f°)\n",
			t.Format(time.TimeOnly), p.Azimuth, az, p.Altitude, alt)
	}
}
