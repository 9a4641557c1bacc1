// Package domegeom implements the closed-form dome geometry: the
// intercept of the telescope's optical ray with the dome sphere, given
// the mount's offsets from the dome center. The solution follows the
// ASCOMDome project's Dsync.bas, re-expressed in radians throughout.
package domegeom

import (
	"fmt"
	"math"
)

// Geometry holds the dome offsets set once via SetGeometry and consumed
// by every subsequent AltAz call. Callers hold their own Geometry
// value; there is no shared mutable state.
type Geometry struct {
	OffsetNorth   float64 // +North of dome center
	OffsetEast    float64 // +East of dome center
	OffsetHeight  float64 // +above dome equator
	OpticalOffset float64 // mount RA/Dec intersection to optical-axis intersection
	Radius        float64
}

// GeometryError reports an invalid dome radius.
type GeometryError struct {
	Radius float64
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("dome radius must be larger than 0, got %g", e.Radius)
}

// SetGeometry validates and returns a Geometry, the Go analog of the
// original's `setDomeGeometry`.
func SetGeometry(offsetNorth, offsetEast, offsetHeight, opticalOffset, radius float64) (Geometry, error) {
	if radius <= 0 {
		return Geometry{}, &GeometryError{Radius: radius}
	}
	return Geometry{
		OffsetNorth:   offsetNorth,
		OffsetEast:    offsetEast,
		OffsetHeight:  offsetHeight,
		OpticalOffset: opticalOffset,
		Radius:        radius,
	}, nil
}

// Intercept is the computed intersection point of the telescope's
// optical ray with the dome sphere, in the same distance units as the
// Geometry offsets.
type Intercept struct {
	X, Y, Z float64
}

// AltAz solves for the dome-wall intercept: given the telescope's hour
// angle, declination, and the site latitude (all radians), returns the
// Alt/Az of the intercept and the intercept point itself so callers can
// verify it lies on the sphere.
func (g Geometry) AltAz(ha, dec, lat float64) (alt, az float64, pt Intercept) {
	colat := lat - math.Pi/2

	A := -g.OffsetNorth + g.OpticalOffset*math.Cos(colat)*math.Sin(ha-math.Pi)
	B := g.OffsetEast + g.OpticalOffset*math.Cos(ha-math.Pi)
	C := g.OffsetHeight - g.OpticalOffset*math.Sin(colat)*math.Sin(ha-math.Pi)

	D := math.Cos(colat)*math.Cos(dec)*math.Cos(-ha) + math.Sin(colat)*math.Sin(dec)
	E := math.Cos(dec) * math.Sin(-ha)
	F := -math.Sin(colat)*math.Cos(dec)*math.Cos(-ha) + math.Cos(colat)*math.Sin(dec)

	adbecf := A*D + B*E + C*F
	denom := D*D + E*E + F*F
	k := (-adbecf + math.Sqrt(adbecf*adbecf+denom*(g.Radius*g.Radius-A*A-B*B-C*C))) / denom

	pt = Intercept{X: A + D*k, Y: B + E*k, Z: C + F*k}

	alt = math.Asin(pt.Z / g.Radius)
	az = mod2pi(-math.Atan2(pt.Y, pt.X) + math.Pi)
	return alt, az, pt
}

func mod2pi(v float64) float64 {
	v = math.Mod(v, 2*math.Pi)
	if v < 0 {
		v += 2 * math.Pi
	}
	return v
}
