// Package trackprofile implements the tracking-profile engine: building
// the PPTrack-point future-position table for a target, converting it
// into each axis's upload format, and the host-vs-controller clock
// jitter check.
package trackprofile

import (
	"time"

	"github.com/jmhannon/rigel-master/internal/coordkernel"
	"github.com/jmhannon/rigel-master/internal/kinematics"
	"github.com/jmhannon/rigel-master/internal/motortransport"
	"github.com/jmhannon/rigel-master/internal/telerr"
	"github.com/jmhannon/rigel-master/internal/teltypes"
)

// PPTrack is the number of sample points per tracking profile.
const PPTrack = 60

// SPD is seconds-per-day, for converting fractional-day MJD deltas into
// seconds.
const SPD = 86400.0

// MaxJitter is the maximum host-vs-controller clock difference allowed
// during a tracking cycle before aborting.
const MaxJitter = 10 * time.Second

// AxisSample is one axis's target value at one of the PPTrack sample
// instants of a profile.
type AxisSample struct {
	X, Y, R float64
}

// Profile is a built (but not yet uploaded) tracking profile: PPTrack
// samples spaced TrackInt/PPTrack seconds apart, plus the host-time
// origin used later to detect clock jitter.
type Profile struct {
	Origin  time.Time
	StepMS  int64
	Samples []AxisSample
}

// Build evaluates the target at PPTrack evenly spaced future instants:
// for i = 0..N-1, shift the object by the ra/dec offset, project through
// the coordinate kernel and axis kinematics at now+i*dt, and wrap
// against each axis's limits. trackInt is the profile span in seconds.
func Build(now teltypes.Now, obj teltypes.Obj, raOffset, decOffset float64, axes teltypes.TelAxes, mesh coordkernel.MeshTable, haveRotator bool, rsign float64, motors map[teltypes.Axis]*teltypes.MotorInfo, trackInt float64) (Profile, error) {
	dt := trackInt / float64(PPTrack)
	stepMS := int64(1000 * trackInt / float64(PPTrack))

	samples := make([]AxisSample, PPTrack)
	for i := 0; i < PPTrack; i++ {
		sampleJD := now.JD + (float64(i)*dt)/SPD
		sampleNow := now
		sampleNow.JD = sampleJD

		// Apply the tracking offset by shifting the object's apparent
		// (EOD) place at this instant by the deltas.
		offsetObj := obj
		if obj.Kind == teltypes.ObjFixed {
			ra, dec := coordkernel.ApAs(sampleNow, obj.Epoch, obj.RA, obj.Dec)
			offsetObj = teltypes.Obj{Kind: teltypes.ObjFixed, RA: ra + raOffset, Dec: dec + decOffset, Epoch: teltypes.EpochEOD}
		}

		_, _, alt, az := coordkernel.ObjCir(sampleNow, offsetObj)
		ha, dec := coordkernel.AaHadec(sampleNow.Latitude, alt, az)

		x, y, r := kinematics.Hd2xyr(sampleNow, axes, mesh, ha, dec, haveRotator, rsign)

		if mi, ok := motors[teltypes.AxisHA]; ok {
			wrapped, err := kinematics.ChkLimits(true, mi, x)
			if err != nil {
				return Profile{}, err
			}
			x = wrapped
		}
		if mi, ok := motors[teltypes.AxisDec]; ok {
			wrapped, err := kinematics.ChkLimits(true, mi, y)
			if err != nil {
				return Profile{}, err
			}
			y = wrapped
		}
		samples[i] = AxisSample{X: x, Y: y, R: r}
	}

	return Profile{Origin: time.Now(), StepMS: stepMS, Samples: samples}, nil
}

// ToTrackSamples converts a Profile's per-axis X/Y/R triples into the
// motortransport.TrackSample list one axis's etrack/mtrack upload needs.
func ToTrackSamples(p Profile, axisOf func(AxisSample) float64) []motortransport.TrackSample {
	out := make([]motortransport.TrackSample, len(p.Samples))
	for i, s := range p.Samples {
		out[i] = motortransport.TrackSample{OffsetMS: int64(i) * p.StepMS, Target: axisOf(s)}
	}
	return out
}

// Clock tracks the bookkeeping a single axis's tracking cycle needs
// across successive profile uploads: the mjd the profile was started
// (strack), and the jitter check.
type Clock struct {
	Strack float64 // mjd at which this tracking run started
}

// CheckJitter returns a *telerr.ClockDriftError when the per-axis clock
// jitter -- the difference between the host mjd and the reconstructed
// strack + controllerClockMS/1000/SPD -- exceeds MaxJitter. The mount
// runs it once per tracking cycle, after that cycle's profile upload,
// so it does not hold back the upload it follows.
func (c Clock) CheckJitter(hostMJD float64, controllerClockMS int64) error {
	reconstructed := c.Strack + float64(controllerClockMS)/1000.0/SPD
	driftDays := hostMJD - reconstructed
	driftSeconds := driftDays * SPD
	if driftSeconds < 0 {
		driftSeconds = -driftSeconds
	}
	if time.Duration(driftSeconds*float64(time.Second)) > MaxJitter {
		return &telerr.ClockDriftError{DriftSeconds: driftSeconds, MaxSeconds: MaxJitter.Seconds()}
	}
	return nil
}

// NeedsRebuild reports whether the current profile has expired: the
// host mjd has moved past strack + trackInt/SPD.
func (c Clock) NeedsRebuild(hostMJD, trackInt float64) bool {
	return hostMJD > c.Strack+trackInt/SPD
}
