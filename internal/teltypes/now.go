package teltypes

import "time"

// Epoch selects the reference frame a celestial position is expressed
// in: EOD (equinox of date / apparent place) or a fixed epoch like J2000.
type Epoch int

const (
	EpochEOD Epoch = iota
	EpochJ2000
)

// Now carries the site and time context the coordinate kernel needs for
// every transform: epoch, site geodesy, and the atmosphere model used for
// refraction.
type Now struct {
	JD float64 // Julian date, UTC

	Epoch Epoch

	Longitude float64 // +East, radians
	Latitude  float64 // +North, radians
	Elevation float64 // meters above MSL

	Temperature float64 // degrees C
	Pressure    float64 // millibars

	UTCToTT float64 // seconds, leap-second + TT-UTC correction
}

// NowFromTime builds a Now at the given wall-clock instant and site.
func NowFromTime(t time.Time, lng, lat, elev, temp, pressure float64) Now {
	return Now{
		JD:          JulianDate(t),
		Epoch:       EpochEOD,
		Longitude:   lng,
		Latitude:    lat,
		Elevation:   elev,
		Temperature: temp,
		Pressure:    pressure,
	}
}

// JulianDate converts a Go time.Time (any location) to a Julian Date.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Year(), int(t.Month()), t.Day()
	hour, min, sec := t.Hour(), t.Minute(), t.Second()

	decimalDay := float64(day) +
		float64(hour)/24.0 +
		float64(min)/(24.0*60.0) +
		float64(sec)/(24.0*60.0*60.0)

	if month <= 2 {
		year--
		month += 12
	}

	a := year / 100
	b := 2 - a + a/4

	return float64(int(365.25*float64(year+4716))) +
		float64(int(30.6001*float64(month+1))) +
		decimalDay + float64(b) - 1524.5
}
