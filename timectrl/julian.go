package timectrl

import (
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// TTMinusUTC is the offset between Terrestrial Time and UTC used for
// ephemeris lookups (32.184 s + 37 leap seconds, valid since 2017).
const TTMinusUTC = 69.184 * float64(time.Second)

const secondsPerDay = 86400.0

// JulianDate returns the UTC Julian date of t, including the sub-second part
// that satellite.JDay drops.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	return jd + float64(t.Nanosecond())/1e9/secondsPerDay
}

// TerrestrialJDE returns the Julian Ephemeris Date (TT, which JPL DE files
// treat as TDB to within 2 ms) for t.
func TerrestrialJDE(t time.Time) float64 {
	return JulianDate(t) + TTMinusUTC/float64(time.Second)/secondsPerDay
}
