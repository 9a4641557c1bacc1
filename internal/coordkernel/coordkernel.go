// Package coordkernel implements the pure, side-effect-free astronomical
// transforms the daemon needs between fifo command and motor: apparent
// place, HA/Dec <-> Alt/Az, epoch shift and mesh correction. Every
// function here takes a teltypes.Now plus plain angles and returns plain
// angles; none of them touch I/O or mutate shared state, so the tracking
// loop can call them once per sample point in internal/trackprofile
// without any locking concerns.
package coordkernel

import (
	"math"

	"github.com/jmhannon/rigel-master/internal/teltypes"
)

const twoPi = 2 * math.Pi

func mod2pi(x float64) float64 {
	x = math.Mod(x, twoPi)
	if x < 0 {
		x += twoPi
	}
	return x
}

// GMST returns the Greenwich mean sidereal time, in radians, for the
// Julian date jd, using the standard GMST polynomial.
func GMST(jd float64) float64 {
	jc := (jd - 2451545.0) / 36525.0
	gmstDeg := math.Mod(280.46061837+360.98564736629*(jd-2451545.0)+
		0.000387933*jc*jc-jc*jc*jc/38710000.0, 360.0)
	return mod2pi(gmstDeg * math.Pi / 180)
}

// LST returns the local mean sidereal time at now.Longitude (+East,
// radians): GMST plus the longitude.
func LST(now teltypes.Now) float64 {
	return mod2pi(GMST(now.JD) + now.Longitude)
}

// ObjCir is the out-of-scope astronomical library's `obj_cir` entry
// point, reduced to what this daemon actually needs: for a FIXED object
// it is epoch shift (ApAs) followed by HaDecToAltAz projection. Returns
// apparent RA, Dec, Alt, Az at now.
func ObjCir(now teltypes.Now, obj teltypes.Obj) (ra, dec, alt, az float64) {
	ra, dec = ApAs(now, obj.Epoch, obj.RA, obj.Dec)
	ha := mod2pi(LST(now) - ra)
	alt, az = HaDecToAltAz(ha, dec, now.Latitude)
	return ra, dec, alt, az
}

// ApAs shifts (ra, dec) from srcEpoch to the apparent place at now's
// epoch. Only the FIXED/J2000<->EOD pair matters here; full precession
// and nutation live in the external astronomical library. The
// correction applied is the dominant precession term, enough to
// keep pointing within the kernel's own tolerance over a single night.
func ApAs(now teltypes.Now, srcEpoch teltypes.Epoch, ra, dec float64) (float64, float64) {
	if srcEpoch == now.Epoch {
		return mod2pi(ra), dec
	}
	// J2000 -> EOD or EOD -> J2000: annual precession ~50.29"/yr in RA,
	// applied along the equator; sign flips depending on direction.
	years := (now.JD - 2451545.0) / 365.25
	precessPerYear := (50.29 / 3600.0) * math.Pi / 180.0
	delta := precessPerYear * years
	if srcEpoch == teltypes.EpochJ2000 {
		return mod2pi(ra + delta), dec
	}
	return mod2pi(ra - delta), dec
}

// AaHadec converts altitude/azimuth to hour-angle/declination at
// latitude lat (all radians).
func AaHadec(lat, alt, az float64) (ha, dec float64) {
	sinDec := math.Sin(alt)*math.Sin(lat) + math.Cos(alt)*math.Cos(lat)*math.Cos(az)
	sinDec = clamp(sinDec, -1, 1)
	dec = math.Asin(sinDec)

	cosHA := (math.Sin(alt) - math.Sin(lat)*sinDec) / (math.Cos(lat) * math.Cos(dec))
	cosHA = clamp(cosHA, -1, 1)
	ha = math.Acos(cosHA)
	if math.Sin(az) > 0 {
		ha = twoPi - ha
	}
	return mod2pi(ha), dec
}

// HaDecToAltAz converts hour-angle/declination to altitude/azimuth at
// latitude lat (all radians). Inverse of AaHadec.
func HaDecToAltAz(ha, dec, lat float64) (alt, az float64) {
	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	sinAlt = clamp(sinAlt, -1, 1)
	alt = math.Asin(sinAlt)

	cosAz := (math.Sin(dec) - math.Sin(lat)*sinAlt) / (math.Cos(lat) * math.Cos(alt))
	cosAz = clamp(cosAz, -1, 1)
	az = math.Acos(cosAz)
	if math.Sin(ha) > 0 {
		az = twoPi - az
	}
	return alt, mod2pi(az)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MeshTable is a site-specific tabulated pointing-correction lookup,
// loaded from the site's mesh-correction file. Each entry maps a raw
// (HA, Dec) grid point to the small (dHA, dDec) offset measured during
// commissioning that compensates for mechanical flex. A nil/empty table
// is a legal no-op -- most deployments never commission one.
type MeshTable struct {
	Points []MeshPoint
}

// MeshPoint is one (ha, dec) -> (dha, ddec) sample in a MeshTable.
type MeshPoint struct {
	HA, Dec   float64
	DHA, DDec float64
}

// MountCor is the mesh correction mount_cor(ha, dec) -> (dha, ddec):
// inverse-square-distance-weighted interpolation over every
// commissioned grid point; a query within 1e-9 (squared distance) of a
// point returns that point's offset. Returns (0, 0) for an empty table.
func MountCor(tab MeshTable, ha, dec float64) (dha, ddec float64) {
	if len(tab.Points) == 0 {
		return 0, 0
	}
	var wsum, whaSum, wdecSum float64
	const eps = 1e-9
	for _, p := range tab.Points {
		d2 := (p.HA-ha)*(p.HA-ha) + (p.Dec-dec)*(p.Dec-dec)
		if d2 < eps {
			return p.DHA, p.DDec
		}
		w := 1.0 / d2
		wsum += w
		whaSum += w * p.DHA
		wdecSum += w * p.DDec
	}
	if wsum == 0 {
		return 0, 0
	}
	return whaSum / wsum, wdecSum / wsum
}
