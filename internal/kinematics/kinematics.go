// Package kinematics implements the axis-space primitives: converting
// HA/Dec targets to German-equatorial mount-axis coordinates and back,
// wrapping/clamping against configured limits, and the two tolerance
// checks (AtTarget with a debounce, OnTarget without) that drive the
// mount state machine's HUNTING/TRACKING boundary.
package kinematics

import (
	"math"
	"time"

	"github.com/jmhannon/rigel-master/internal/coordkernel"
	"github.com/jmhannon/rigel-master/internal/teltypes"
	"github.com/jmhannon/rigel-master/internal/telerr"
)

const twoPi = 2 * math.Pi

// Hd2xyr converts a target to axis space: apply mesh correction, project
// HA/Dec into the mount's own (x, y) axis frame accounting for
// non-ideal pointing-model terms, and derive the rotator angle r from
// the parallactic angle plus the rotator zero point.
func Hd2xyr(now teltypes.Now, axes teltypes.TelAxes, mesh coordkernel.MeshTable, ha, dec float64, haveRotator bool, rsign float64) (x, y, r float64) {
	dha, ddec := coordkernel.MountCor(mesh, ha, dec)
	ha += dha
	dec += ddec

	x, y = idealToReal(axes, ha, dec)

	if haveRotator {
		pa := parallacticAngle(ha, dec, now.Latitude)
		r = pa + axes.R0*rsign
	}
	return x, y, r
}

// idealToReal applies the non-perpendicularity / cross-axis pointing
// model corrections from TelAxes to an ideal (ha, dec) pair, producing
// the axis-frame coordinates actually commanded to the motors.
func idealToReal(axes teltypes.TelAxes, ha, dec float64) (x, y float64) {
	x = ha + axes.HT*math.Sin(dec) + axes.NP*math.Tan(dec)
	y = dec + axes.DT

	if axes.GermEq && axes.GermEqFlip {
		x += math.Pi
		y = -y
	}
	if axes.XP != 0 || axes.YC != 0 {
		x += axes.XP
		y += axes.YC
	}
	return x, y
}

// realToIdeal is the inverse of idealToReal, used by MkCook to recover
// apparent HA/Dec from the axis-frame cooked positions.
func realToIdeal(axes teltypes.TelAxes, x, y float64) (ha, dec float64) {
	xx, yy := x, y
	if axes.XP != 0 || axes.YC != 0 {
		xx -= axes.XP
		yy -= axes.YC
	}
	if axes.GermEq && axes.GermEqFlip {
		xx -= math.Pi
		yy = -yy
	}
	dec = yy - axes.DT
	ha = xx - axes.HT*math.Sin(dec) - axes.NP*math.Tan(dec)
	return ha, dec
}

// parallacticAngle computes the angle between the great circle through
// the target and the zenith, and the great circle through the target
// and the celestial pole, used to derive the rotator's commanded angle.
func parallacticAngle(ha, dec, lat float64) float64 {
	y := math.Sin(ha)
	x := math.Cos(dec)*math.Tan(lat) - math.Sin(dec)*math.Cos(ha)
	return math.Atan2(y, x)
}

// CookedCoords is the set of published coordinate triples MkCook
// derives from raw encoder positions: apparent, J2000, and Alt/Az.
type CookedCoords struct {
	CAHA, CADec     float64
	CJ2kRA, CJ2kDec float64
	CAlt, CAz       float64
	CPA             float64
}

// MkCook recovers the astronomical frame: from the axis-frame cooked
// positions (x, y, r) compute apparent HA/Dec and every published
// coordinate triple, undoing mesh corrections. The inverse of Hd2xyr.
func MkCook(now teltypes.Now, axes teltypes.TelAxes, mesh coordkernel.MeshTable, x, y, r float64) CookedCoords {
	ha, dec := realToIdeal(axes, x, y)
	dha, ddec := coordkernel.MountCor(mesh, ha, dec)
	ha -= dha
	dec -= ddec

	alt, az := coordkernel.HaDecToAltAz(ha, dec, now.Latitude)

	ra := mod2pi(coordkernel.LST(now) - ha)
	j2kRA, j2kDec := coordkernel.ApAs(now, teltypes.EpochJ2000, ra, dec)

	return CookedCoords{
		CAHA: ha, CADec: dec,
		CJ2kRA: j2kRA, CJ2kDec: j2kDec,
		CAlt: alt, CAz: az,
		CPA: parallacticAngle(ha, dec, now.Latitude),
	}
}

func mod2pi(v float64) float64 {
	v = math.Mod(v, twoPi)
	if v < 0 {
		v += twoPi
	}
	return v
}

// ChkLimits wraps a commanded axis value into range: while the value is
// at or below NegLim add 2*pi (only if wrapok), and while it is at or
// above PosLim subtract 2*pi; if still out of range after wrapping,
// fail with a *telerr.LimitViolation naming the offending axis. Pure
// and idempotent: re-running it on an already-legal value is a no-op.
func ChkLimits(wrapok bool, mi *teltypes.MotorInfo, v float64) (float64, error) {
	for wrapok && v <= mi.NegLim {
		v += twoPi
	}
	for wrapok && v >= mi.PosLim {
		v -= twoPi
	}
	if v <= mi.NegLim {
		return v, &telerr.LimitViolation{Axis: mi.Axis, Value: v, Which: "negative"}
	}
	if v >= mi.PosLim {
		return v, &telerr.LimitViolation{Axis: mi.Axis, Value: v, Which: "positive"}
	}
	return v, nil
}

// DefaultTrackAcc returns the default tracking tolerance,
// 1.5 * 2*pi / steps-per-rev.
func DefaultTrackAcc(stepsPerRev int32) float64 {
	if stepsPerRev == 0 {
		return 0
	}
	return 1.5 * twoPi / float64(stepsPerRev)
}

// Target tracks, per axis, whether the axis has been continuously
// within tolerance since a recorded instant -- the debounce state
// AtTarget needs across successive poll calls.
type Target struct {
	withinSince map[teltypes.Axis]time.Time
}

// NewTarget returns an empty debounce tracker.
func NewTarget() *Target {
	return &Target{withinSince: make(map[teltypes.Axis]time.Time)}
}

// AtTarget reports arrival with a debounce: every have-axis in motors
// must be within trackAcc of its DPos, and must have remained so for at
// least one second of wall time. now is the wall-clock instant of this
// poll.
func (tg *Target) AtTarget(now time.Time, motors []*teltypes.MotorInfo, trackAcc float64) bool {
	const debounce = time.Second
	allWithin := true
	for _, mi := range motors {
		if !mi.Have {
			continue
		}
		within := math.Abs(mi.CPos-mi.DPos) <= trackAcc
		if !within {
			allWithin = false
			delete(tg.withinSince, mi.Axis)
			continue
		}
		if _, ok := tg.withinSince[mi.Axis]; !ok {
			tg.withinSince[mi.Axis] = now
		}
	}
	if !allWithin {
		return false
	}
	for _, mi := range motors {
		if !mi.Have {
			continue
		}
		since, ok := tg.withinSince[mi.Axis]
		if !ok || now.Sub(since) < debounce {
			return false
		}
	}
	return true
}

// OnTarget applies the same tolerance as AtTarget but without the
// debounce. Returns the first offending axis
// (for fault reporting) and whether all axes are on target.
func OnTarget(motors []*teltypes.MotorInfo, trackAcc float64) (ok bool, offending *teltypes.MotorInfo) {
	for _, mi := range motors {
		if !mi.Have {
			continue
		}
		if math.Abs(mi.CPos-mi.DPos) > trackAcc {
			return false, mi
		}
	}
	return true, nil
}
