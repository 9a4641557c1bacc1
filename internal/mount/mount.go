// Package mount implements the mount state machine: the HA/Dec
// (+ optional rotator) axes, their homing/limit-discovery/slewing/
// hunting/tracking/jogging phases, and the tracking-profile upload
// cycle that keeps TRACKING axes following a target.
package mount

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jmhannon/rigel-master/internal/coordkernel"
	"github.com/jmhannon/rigel-master/internal/cover"
	"github.com/jmhannon/rigel-master/internal/fifocmd"
	"github.com/jmhannon/rigel-master/internal/fifoproto"
	"github.com/jmhannon/rigel-master/internal/kinematics"
	"github.com/jmhannon/rigel-master/internal/motortransport"
	"github.com/jmhannon/rigel-master/internal/telerr"
	"github.com/jmhannon/rigel-master/internal/teltypes"
	"github.com/jmhannon/rigel-master/internal/trackprofile"
)

// Phase is the mount's own sub-state while an active function is
// running -- e.g. which homing/limiting axes are still outstanding, or
// which stop sub-state is in flight -- kept private to Mount rather
// than published.
type Phase int

const (
	phaseIdle Phase = iota
	phaseHoming
	phaseLimiting
	phaseSlewing
	phaseStopping
)

// Mount is the mount device. It owns the HA/Dec(+R) MotorInfo entries,
// their transport Ports, the pointing model, and the in-flight function
// bookkeeping. Only Mount's own methods mutate its MotorInfo entries;
// everything else holds a read-only view.
type Mount struct {
	Now  teltypes.Now
	Axes teltypes.TelAxes
	Mesh coordkernel.MeshTable

	Motors       map[teltypes.Axis]*teltypes.MotorInfo
	Ports        map[teltypes.Axis]motortransport.Port
	HaveRotator  bool
	RSign        float64

	TrackAcc  float64
	TrackInt  float64
	FGuideVel float64
	CGuideVel float64

	StowAlt float64 // radians
	StowAz  float64 // radians

	State teltypes.TelState

	target *Target // current object + offsets, nil when STOPPED
	phase  Phase
	wantAxes map[teltypes.Axis]bool

	trackClock trackprofile.Clock
	atTarget   *kinematics.Target

	jogAxis          teltypes.Axis
	jogRate          float64 // signed guide rate, rad/s, while paddling in TRACKING
	lastJogTick      time.Time
	lastOffsetUpload time.Time

	paddleActive          bool
	trackingOffsetApplied bool

	Cover *cover.Cover
	IsSafeForCover func() bool

	// Optional observation hooks, called synchronously from the state
	// machine; implementations must hand off to their own goroutine if
	// they do anything slower than a channel send.
	OnTrackingStarted func(obj teltypes.Obj)
	OnProfileUpload   func(origin time.Time, samples int, stepMS int64)
	OnLimitsFound     func(axis teltypes.Axis, negLim, posLim float64)
}

// Target is the currently commanded object plus any paddle/tracking
// offsets applied on top of it.
type Target struct {
	Obj       teltypes.Obj
	RAOffset  float64
	DecOffset float64

	// Accumulated tracking offset in encoder counts, fed into every
	// profile upload. Written by Offset() and by a guide jog.
	OffsetDHA, OffsetDDec float64
}

// arcsecPerRev is the number of arc-seconds in one revolution.
const arcsecPerRev = 1296000.0

// velMax is the full-scale paddle velocity value.
const velMax = 32768.0

// countsPerRad returns the axis's encoder (or step) counts per radian
// with its sign convention applied, zero when no resolution is
// configured.
func countsPerRad(mi *teltypes.MotorInfo) float64 {
	if mi.HaveEncoder && mi.EncStepsPerRev != 0 {
		return float64(mi.ESign) * float64(mi.EncStepsPerRev) / (2 * math.Pi)
	}
	if mi.StepsPerRev != 0 {
		return float64(mi.Sign) * float64(mi.StepsPerRev) / (2 * math.Pi)
	}
	return 0
}

// offsetCounts converts a paddle offset in arc-seconds to encoder
// counts: estep*esign*arcsec/1296000. An axis with no configured
// resolution carries the offset in radians instead so a bare virtual
// bring-up still moves.
func offsetCounts(mi *teltypes.MotorInfo, arcsec float64) float64 {
	rad := arcsec * 2 * math.Pi / arcsecPerRev
	if cpr := countsPerRad(mi); cpr != 0 {
		return rad * cpr
	}
	return rad
}

// radToCounts converts an axis-frame angle to encoder counts, the
// inverse of countsToRad.
func radToCounts(mi *teltypes.MotorInfo, rad float64) float64 {
	if cpr := countsPerRad(mi); cpr != 0 {
		return rad * cpr
	}
	return rad
}

// countsToRad converts accumulated offset counts back to axis radians
// for the profile shift and for publication.
func countsToRad(mi *teltypes.MotorInfo, counts float64) float64 {
	if cpr := countsPerRad(mi); cpr != 0 {
		return counts / cpr
	}
	return counts
}

// New returns an idle Mount ready to accept commands.
func New(now teltypes.Now, axes teltypes.TelAxes, motors map[teltypes.Axis]*teltypes.MotorInfo, ports map[teltypes.Axis]motortransport.Port, trackAcc, trackInt, fGuide, cGuide float64) *Mount {
	return &Mount{
		Now: now, Axes: axes,
		Motors: motors, Ports: ports,
		TrackAcc: trackAcc, TrackInt: trackInt,
		FGuideVel: fGuide, CGuideVel: cGuide,
		State:    teltypes.TelStopped,
		wantAxes: map[teltypes.Axis]bool{},
		atTarget: kinematics.NewTarget(),
	}
}

// Dispatch routes a parsed Tel command to the matching method: the
// fifo-message -> dispatcher -> state-machine step path.
func (m *Mount) Dispatch(cmd fifocmd.TelCmd) fifoproto.Response {
	switch cmd.Kind {
	case fifocmd.TelReset:
		return m.Reset()
	case fifocmd.TelHome:
		return m.Home(axesFromString(cmd.Axes))
	case fifocmd.TelLimits:
		return m.Limits(axesFromString(cmd.Axes))
	case fifocmd.TelStow:
		return m.Stow()
	case fifocmd.TelRaDecEpoch:
		return m.GotoRaDec(cmd.RA, cmd.Dec, teltypes.EpochJ2000)
	case fifocmd.TelRaDecEOD:
		return m.GotoRaDec(cmd.RA, cmd.Dec, teltypes.EpochEOD)
	case fifocmd.TelObjOffset:
		return m.GotoObjectOffset(cmd.DRA, cmd.DDec)
	case fifocmd.TelAltAz:
		return m.GotoAltAz(cmd.Alt, cmd.Az)
	case fifocmd.TelHADec:
		return m.GotoHADec(cmd.HA, cmd.Dec)
	case fifocmd.TelOffset:
		return m.Offset(cmd.OffsetDHA, cmd.OffsetDDec)
	case fifocmd.TelJog:
		return m.Jog(cmd.JogDir, cmd.JogVel)
	case fifocmd.TelOpenCover:
		return m.OpenCover()
	case fifocmd.TelCloseCover:
		return m.CloseCover()
	case fifocmd.TelGetState:
		return fifoproto.Success(m.State.String())
	case fifocmd.TelGetAltAz:
		c := m.Cooked()
		return fifoproto.Success(fmt.Sprintf("Alt:%g Az:%g", c.CAlt, c.CAz))
	case fifocmd.TelGetRaDec:
		c := m.Cooked()
		return fifoproto.Success(fmt.Sprintf("RA:%g Dec:%g", c.CJ2kRA, c.CJ2kDec))
	case fifocmd.TelGetMJD:
		return fifoproto.Success(fmt.Sprintf("%g", m.Now.JD-2400000.5))
	default:
		return m.Stop()
	}
}

// Cooked projects the current encoder positions back into every
// published coordinate frame.
func (m *Mount) Cooked() kinematics.CookedCoords {
	var x, y, r float64
	if mi, ok := m.Motors[teltypes.AxisHA]; ok {
		x = mi.CPos
	}
	if mi, ok := m.Motors[teltypes.AxisDec]; ok {
		y = mi.CPos
	}
	if mi, ok := m.Motors[teltypes.AxisRot]; ok {
		r = mi.CPos
	}
	return kinematics.MkCook(m.Now, m.Axes, m.Mesh, x, y, r)
}

func axesFromString(s string) map[teltypes.Axis]bool {
	want := map[teltypes.Axis]bool{}
	for _, c := range s {
		switch c {
		case 'H':
			want[teltypes.AxisHA] = true
		case 'D':
			want[teltypes.AxisDec] = true
		case 'R':
			want[teltypes.AxisRot] = true
		}
	}
	if len(want) == 0 {
		want[teltypes.AxisHA] = true
		want[teltypes.AxisDec] = true
	}
	return want
}

// Reset cancels any active function and returns to STOPPED, clearing
// homed flags: a fresh start requires re-homing.
func (m *Mount) Reset() fifoproto.Response {
	m.stopAll(context.Background(), true)
	for _, mi := range m.Motors {
		mi.IsHomed = false
	}
	m.State = teltypes.TelStopped
	return fifoproto.Success("Reset complete")
}

// Stop implements the universal "any -> STOPPED" transition: interrupt
// every controller, zero velocities, clear homing/limiting flags, and
// set STOPPED at once; it does not wait for the axes to report zero
// velocity before answering.
func (m *Mount) Stop() fifoproto.Response {
	m.stopAll(context.Background(), true)
	m.State = teltypes.TelStopped
	return fifoproto.Success("Stopped")
}

func (m *Mount) stopAll(ctx context.Context, fast bool) {
	for axis, port := range m.Ports {
		if port == nil {
			continue
		}
		_ = port.Interrupt(ctx)
		_ = port.SetVel(ctx, 0)
		if mi, ok := m.Motors[axis]; ok {
			mi.CVel = 0
			mi.Homing = false
			mi.Limiting = false
		}
	}
	m.target = nil
	m.phase = phaseIdle
	m.jogRate = 0
	m.paddleActive = false
	m.trackingOffsetApplied = false
	_ = fast
}

// Home starts homing the requested axes: homing
// proceeds cooperatively per axis, aborting all on any axis failure, and
// the command succeeds only once every requested axis reports homed.
func (m *Mount) Home(want map[teltypes.Axis]bool) fifoproto.Response {
	m.phase = phaseHoming
	m.wantAxes = want
	m.State = teltypes.TelHoming
	for axis := range want {
		if mi, ok := m.Motors[axis]; ok {
			mi.Homing = true
		}
		if port, ok := m.Ports[axis]; ok {
			_ = port.RunProgram(context.Background(), "findhome();")
		}
	}
	return fifoproto.Progress(1, "homing started")
}

// Limits runs the controller's findlimits() script on the requested
// axes and reports each axis's success through OnLimitsFound.
// NegLim/PosLim are not read back from the script's output, so
// OnLimitsFound receives the limits already held in m.Motors; Limits
// itself does not write home.cfg.
func (m *Mount) Limits(want map[teltypes.Axis]bool) fifoproto.Response {
	m.phase = phaseLimiting
	m.wantAxes = want
	m.State = teltypes.TelLimiting
	for axis := range want {
		if mi, ok := m.Motors[axis]; ok {
			mi.Limiting = true
		}
		if port, ok := m.Ports[axis]; ok {
			_ = port.RunProgram(context.Background(), "findlimits();")
		}
	}
	return fifoproto.Progress(1, "limit search started")
}

// Stow slews to the configured stow Alt/Az, reusing GotoAltAz.
func (m *Mount) Stow() fifoproto.Response {
	return m.GotoAltAz(m.StowAlt, m.StowAz)
}

// GotoRaDec begins a HUNTING slew toward (ra, dec) at the given epoch.
func (m *Mount) GotoRaDec(ra, dec float64, epoch teltypes.Epoch) fifoproto.Response {
	if !m.allHomed(teltypes.AxisHA, teltypes.AxisDec) {
		return fifoproto.Fail(-2, (&telerr.NotHomedError{Axis: teltypes.AxisHA}).Error())
	}
	// A fresh tracking target zeroes any prior tracking offset.
	m.target = &Target{Obj: teltypes.Obj{Kind: teltypes.ObjFixed, RA: ra, Dec: dec, Epoch: epoch}}
	m.trackClock = trackprofile.Clock{}
	m.trackingOffsetApplied = false
	m.State = teltypes.TelHunting
	m.phase = phaseIdle
	if m.OnTrackingStarted != nil {
		m.OnTrackingStarted(m.target.Obj)
	}
	return fifoproto.Progress(1, "slewing")
}

// GotoObjectOffset begins a HUNTING slew toward the last commanded
// object shifted by (dra, ddec), the "dRA:/dDec: # db-line" grammar.
func (m *Mount) GotoObjectOffset(dra, ddec float64) fifoproto.Response {
	if m.target == nil {
		return fifoproto.Fail(-3, "no current object to offset")
	}
	m.target.RAOffset = dra
	m.target.DecOffset = ddec
	m.State = teltypes.TelHunting
	return fifoproto.Progress(1, "slewing to offset object")
}

// GotoAltAz begins a SLEWING move toward a fixed Alt/Az, converted to
// HA/Dec at the current site latitude.
func (m *Mount) GotoAltAz(alt, az float64) fifoproto.Response {
	ha, dec := coordkernel.AaHadec(m.Now.Latitude, alt, az)
	return m.GotoHADec(ha, dec)
}

// GotoHADec begins a SLEWING move toward a fixed apparent HA/Dec.
func (m *Mount) GotoHADec(ha, dec float64) fifoproto.Response {
	if !m.allHomed(teltypes.AxisHA, teltypes.AxisDec) {
		return fifoproto.Fail(-2, (&telerr.NotHomedError{Axis: teltypes.AxisHA}).Error())
	}
	x, y, r := kinematics.Hd2xyr(m.Now, m.Axes, m.Mesh, ha, dec, m.HaveRotator, m.RSign)
	if mi, ok := m.Motors[teltypes.AxisHA]; ok {
		v, err := kinematics.ChkLimits(true, mi, x)
		if err != nil {
			m.Stop()
			return fifoproto.Fail(-4, err.Error())
		}
		mi.DPos = v
	}
	if mi, ok := m.Motors[teltypes.AxisDec]; ok {
		v, err := kinematics.ChkLimits(true, mi, y)
		if err != nil {
			m.Stop()
			return fifoproto.Fail(-4, err.Error())
		}
		mi.DPos = v
	}
	if mi, ok := m.Motors[teltypes.AxisRot]; ok && m.HaveRotator {
		mi.DPos = r
	}
	for axis, port := range m.Ports {
		if mi, ok := m.Motors[axis]; ok {
			_ = port.SetPos(context.Background(), mi.DPos)
		}
	}
	m.State = teltypes.TelSlewing
	m.phase = phaseSlewing
	m.target = nil
	return fifoproto.Progress(1, "slewing")
}

// Offset applies a fine paddle offset while TRACKING: arc-seconds are
// converted to encoder counts per axis (estep*esign/1296000), the
// counts are folded into the tracking offset, and the profile is
// re-uploaded immediately so the shift takes effect this cycle. Only
// valid in TRACKING.
func (m *Mount) Offset(dhaArcsec, ddecArcsec float64) fifoproto.Response {
	if m.State != teltypes.TelTracking {
		return fifoproto.Fail(-5, "Offset is only valid while TRACKING")
	}
	if m.target == nil {
		return fifoproto.Fail(-5, "no tracking target to offset")
	}
	ha, okH := m.Motors[teltypes.AxisHA]
	dec, okD := m.Motors[teltypes.AxisDec]
	if !okH || !okD {
		return fifoproto.Fail(-6, "offset needs both HA and Dec axes")
	}

	m.target.OffsetDHA += offsetCounts(ha, dhaArcsec)
	m.target.OffsetDDec += offsetCounts(dec, ddecArcsec)
	m.trackingOffsetApplied = true

	m.trackClock.Strack = m.Now.JD - 2400000.5
	m.lastOffsetUpload = time.Now()
	if err := m.uploadProfile(); err != nil {
		m.Stop()
		return fifoproto.Fail(-9, err.Error())
	}
	return fifoproto.Success("offset applied")
}

// Jog: in TRACKING it is an additive tracking-offset velocity at the
// fine/coarse guide rate; otherwise a direct velocity command on the
// named axis.
func (m *Mount) Jog(dir string, vel int) fifoproto.Response {
	if dir == "0" || dir == "" {
		if m.State != teltypes.TelTracking {
			for _, port := range m.Ports {
				_ = port.SetVel(context.Background(), 0)
			}
		}
		m.jogRate = 0
		m.paddleActive = false
		return fifoproto.Success("jog stopped")
	}

	axis, sign := jogAxis(dir)
	if vel < 0 {
		vel = 0
	}
	if float64(vel) > velMax {
		vel = int(velMax)
	}

	if m.State == teltypes.TelTracking {
		// Additive guide velocity on top of the running profile: the
		// upper half of the paddle range selects the coarse rate.
		rate := m.FGuideVel
		if float64(vel) > velMax/2 {
			rate = m.CGuideVel
		}
		m.jogAxis = axis
		m.jogRate = rate * sign
		m.lastJogTick = time.Now()
		m.paddleActive = true
		return fifoproto.Success("guide jog started")
	}

	mi, ok := m.Motors[axis]
	if !ok {
		return fifoproto.Fail(-6, "no such axis")
	}
	speed := mi.MaxVel * float64(vel) / velMax * sign
	if port, ok := m.Ports[axis]; ok {
		_ = port.SetVel(context.Background(), speed)
	}
	m.jogAxis = axis
	m.paddleActive = true
	return fifoproto.Success("jogging")
}

func jogAxis(dir string) (teltypes.Axis, float64) {
	switch dir {
	case "N", "n":
		return teltypes.AxisDec, 1
	case "S", "s":
		return teltypes.AxisDec, -1
	case "E", "e":
		return teltypes.AxisHA, -1
	case "W", "w":
		return teltypes.AxisHA, 1
	default:
		return teltypes.AxisHA, 0
	}
}

// OpenCover and CloseCover delegate to the shared mirror-cover
// primitive (internal/cover), which owns the 30s timeout and
// progress-code protocol; Mount only supplies the safety veto.
func (m *Mount) OpenCover() fifoproto.Response {
	if m.Cover == nil {
		return fifoproto.Fail(-1, "cover primitive not configured")
	}
	return m.Cover.Open(cover.SafetyCheck(m.IsSafeForCover))
}

func (m *Mount) CloseCover() fifoproto.Response {
	if m.Cover == nil {
		return fifoproto.Fail(-1, "cover primitive not configured")
	}
	return m.Cover.Close()
}

func (m *Mount) allHomed(axes ...teltypes.Axis) bool {
	for _, a := range axes {
		mi, ok := m.Motors[a]
		if !ok || !mi.Have {
			continue
		}
		if !mi.IsHomed {
			return false
		}
	}
	return true
}

// Step advances the mount's active function by one poll tick. It never
// blocks: every Port call it makes is a non-blocking availability check
// or a short bounded read.
func (m *Mount) Step(now teltypes.Now) []fifoproto.Response {
	m.Now = now
	ctx := context.Background()
	var out []fifoproto.Response

	m.refreshCooked(ctx)

	switch m.phase {
	case phaseHoming:
		out = append(out, m.stepHoming(ctx)...)
	case phaseLimiting:
		out = append(out, m.stepLimiting(ctx)...)
	case phaseSlewing:
		if m.allOnTarget() {
			m.State = teltypes.TelStopped
			m.phase = phaseIdle
			out = append(out, fifoproto.Success("slew complete"))
		}
	}

	if m.Cover != nil {
		out = append(out, m.Cover.Step()...)
	}

	if m.target != nil {
		out = append(out, m.stepTracking(ctx)...)
	}

	return out
}

func (m *Mount) refreshCooked(ctx context.Context) {
	for axis, port := range m.Ports {
		mi, ok := m.Motors[axis]
		if !ok || port == nil {
			continue
		}
		if pos, err := port.ReadPos(ctx); err == nil {
			mi.CPos = pos
		}
		if vel, err := port.ReadVel(ctx); err == nil {
			mi.CVel = vel
		}
	}
}

func (m *Mount) allOnTarget() bool {
	var motors []*teltypes.MotorInfo
	for _, mi := range m.Motors {
		motors = append(motors, mi)
	}
	ok, _ := kinematics.OnTarget(motors, m.TrackAcc)
	return ok
}

func (m *Mount) stepHoming(ctx context.Context) []fifoproto.Response {
	allDone := true
	for axis := range m.wantAxes {
		if mi, ok := m.Motors[axis]; ok && !mi.Homing {
			continue
		}
		port, ok := m.Ports[axis]
		if !ok {
			continue
		}
		ready, err := port.IsReady(ctx)
		if err != nil {
			m.Stop()
			return []fifoproto.Response{fifoproto.Fail(-7, err.Error())}
		}
		if !ready {
			allDone = false
			continue
		}
		line, _, err := port.ReadLine(ctx)
		if err != nil {
			continue
		}
		p := motortransport.ParseProgress(line)
		if p.Kind == motortransport.ProgressError {
			m.Stop()
			return []fifoproto.Response{fifoproto.Fail(p.Code, "homing failed: "+p.Text)}
		}
		if p.Kind == motortransport.ProgressSuccess {
			if mi, ok := m.Motors[axis]; ok {
				mi.IsHomed = true
				mi.Homing = false
			}
		} else {
			allDone = false
		}
	}
	if allDone {
		m.State = teltypes.TelStopped
		m.phase = phaseIdle
		return []fifoproto.Response{fifoproto.Success("Scope homing complete")}
	}
	return nil
}

func (m *Mount) stepLimiting(ctx context.Context) []fifoproto.Response {
	allDone := true
	for axis := range m.wantAxes {
		if mi, ok := m.Motors[axis]; ok && !mi.Limiting {
			continue
		}
		port, ok := m.Ports[axis]
		if !ok {
			continue
		}
		ready, err := port.IsReady(ctx)
		if err != nil || !ready {
			if err != nil {
				m.Stop()
				return []fifoproto.Response{fifoproto.Fail(-7, err.Error())}
			}
			allDone = false
			continue
		}
		line, _, _ := port.ReadLine(ctx)
		p := motortransport.ParseProgress(line)
		if p.Kind == motortransport.ProgressError {
			m.Stop()
			return []fifoproto.Response{fifoproto.Fail(p.Code, "limit search failed: "+p.Text)}
		}
		if p.Kind == motortransport.ProgressSuccess {
			if mi, ok := m.Motors[axis]; ok {
				mi.IsHomed = true
				mi.Limiting = false
				if m.OnLimitsFound != nil {
					m.OnLimitsFound(axis, mi.NegLim, mi.PosLim)
				}
			}
		} else {
			allDone = false
		}
	}
	if allDone {
		m.State = teltypes.TelStopped
		m.phase = phaseIdle
		return []fifoproto.Response{fifoproto.Success("limits discovered")}
	}
	return nil
}

// stepTracking runs the tracking-target flow: build a fresh profile on
// first use, rebuild when the profile span expires, and verify clock
// jitter on every cycle.
func (m *Mount) stepTracking(ctx context.Context) []fifoproto.Response {
	hostMJD := m.Now.JD - 2400000.5

	if m.trackClock.Strack == 0 {
		m.trackClock.Strack = hostMJD
		if err := m.uploadProfile(); err != nil {
			m.Stop()
			return []fifoproto.Response{fifoproto.Fail(-9, err.Error())}
		}
	} else if m.trackClock.NeedsRebuild(hostMJD, m.TrackInt) {
		m.trackClock.Strack = hostMJD
		if err := m.uploadProfile(); err != nil {
			m.Stop()
			return []fifoproto.Response{fifoproto.Fail(-9, err.Error())}
		}
	}

	// An active guide jog accumulates its rate into the tracking
	// offset; the profile is refreshed at most once a second so a held
	// paddle button does not flood the controllers.
	if m.paddleActive && m.jogRate != 0 && m.target != nil {
		nowT := time.Now()
		dt := nowT.Sub(m.lastJogTick).Seconds()
		m.lastJogTick = nowT
		if dt > 0 {
			if mi, ok := m.Motors[m.jogAxis]; ok {
				counts := radToCounts(mi, m.jogRate*dt)
				switch m.jogAxis {
				case teltypes.AxisHA:
					m.target.OffsetDHA += counts
				case teltypes.AxisDec:
					m.target.OffsetDDec += counts
				}
				m.trackingOffsetApplied = true
			}
			if nowT.Sub(m.lastOffsetUpload) >= time.Second {
				m.lastOffsetUpload = nowT
				if err := m.uploadProfile(); err != nil {
					m.Stop()
					return []fifoproto.Response{fifoproto.Fail(-9, err.Error())}
				}
			}
		}
	}

	// Jitter check needs the controller's own clock; a transport without
	// one (bare serial bring-up) skips the check rather than guessing.
	if port, ok := m.Ports[teltypes.AxisHA]; ok {
		if cr, ok := port.(motortransport.ClockReader); ok {
			if err := m.trackClock.CheckJitter(hostMJD, cr.ClockMS()); err != nil {
				m.Stop()
				return []fifoproto.Response{fifoproto.Fail(-5, err.Error())}
			}
		}
	}

	if m.atTarget.AtTarget(time.Now(), motorSlice(m.Motors), m.TrackAcc) {
		if m.State != teltypes.TelTracking {
			m.State = teltypes.TelTracking
		}
	} else {
		ok, _ := kinematics.OnTarget(motorSlice(m.Motors), m.TrackAcc)
		if !ok && !m.paddleActive {
			m.State = teltypes.TelHunting
		}
	}
	return nil
}

func (m *Mount) uploadProfile() error {
	motors := map[teltypes.Axis]*teltypes.MotorInfo{}
	for axis, mi := range m.Motors {
		motors[axis] = mi
	}
	var raOff, decOff float64
	if m.target != nil {
		raOff, decOff = m.target.RAOffset, m.target.DecOffset
	}
	profile, err := trackprofile.Build(m.Now, m.target.Obj, raOff, decOff, m.Axes, m.Mesh, m.HaveRotator, m.RSign, motors, m.TrackInt)
	if err != nil {
		return err
	}

	// Fold the accumulated paddle/guide offset (held in encoder counts)
	// into every sample before the upload.
	if m.target.OffsetDHA != 0 || m.target.OffsetDDec != 0 {
		var offX, offY float64
		if mi, ok := m.Motors[teltypes.AxisHA]; ok {
			offX = countsToRad(mi, m.target.OffsetDHA)
		}
		if mi, ok := m.Motors[teltypes.AxisDec]; ok {
			offY = countsToRad(mi, m.target.OffsetDDec)
		}
		for i := range profile.Samples {
			profile.Samples[i].X += offX
			profile.Samples[i].Y += offY
		}
	}

	if m.OnProfileUpload != nil {
		m.OnProfileUpload(profile.Origin, len(profile.Samples), profile.StepMS)
	}
	if port, ok := m.Ports[teltypes.AxisHA]; ok {
		if vm, ok := port.(*motortransport.VirtualMotor); ok {
			vm.UploadTrack(profile.Origin, trackprofile.ToTrackSamples(profile, func(s trackprofile.AxisSample) float64 { return s.X }))
		}
	}
	if port, ok := m.Ports[teltypes.AxisDec]; ok {
		if vm, ok := port.(*motortransport.VirtualMotor); ok {
			vm.UploadTrack(profile.Origin, trackprofile.ToTrackSamples(profile, func(s trackprofile.AxisSample) float64 { return s.Y }))
		}
	}
	return nil
}

// TrackingOffsetApplied reports whether a paddle Offset or guide jog
// has shifted the uploaded profile away from the catalog position.
func (m *Mount) TrackingOffsetApplied() bool { return m.trackingOffsetApplied }

// PaddleActive reports whether a jog is currently commanded, in any
// state.
func (m *Mount) PaddleActive() bool { return m.paddleActive }

// TrackingOffsets returns the accumulated tracking offset in axis
// radians, for the published record's JdHA/JdDec fields.
func (m *Mount) TrackingOffsets() (dha, ddec float64) {
	if m.target == nil {
		return 0, 0
	}
	if mi, ok := m.Motors[teltypes.AxisHA]; ok {
		dha = countsToRad(mi, m.target.OffsetDHA)
	}
	if mi, ok := m.Motors[teltypes.AxisDec]; ok {
		ddec = countsToRad(mi, m.target.OffsetDDec)
	}
	return dha, ddec
}

func motorSlice(m map[teltypes.Axis]*teltypes.MotorInfo) []*teltypes.MotorInfo {
	out := make([]*teltypes.MotorInfo, 0, len(m))
	for _, mi := range m {
		out = append(out, mi)
	}
	return out
}
