// Package dome implements the dome and shutter state machine:
// auto-follow slaving to the telescope's dome-wall
// intercept, manual Az/jog control, shutter open/close with the
// power-azimuth gating rule, and weather-alert preemption that forces
// the shutter to CLOSING regardless of what else is happening.
package dome

import (
	"context"
	"time"

	"github.com/jmhannon/rigel-master/internal/config"
	"github.com/jmhannon/rigel-master/internal/domegeom"
	"github.com/jmhannon/rigel-master/internal/fifocmd"
	"github.com/jmhannon/rigel-master/internal/fifoproto"
	"github.com/jmhannon/rigel-master/internal/motortransport"
	"github.com/jmhannon/rigel-master/internal/teltypes"
)

// Dome owns the dome-rotator and shutter axes plus the auto-follow mode
// that keeps the dome slit aligned with the telescope's optical path.
type Dome struct {
	Cfg      config.DomeConfig
	Geometry domegeom.Geometry

	Port        motortransport.Port // dome rotator
	ShutterPort motortransport.Port // shutter motor, may be nil if absent

	State        teltypes.DomeState
	ShutterState teltypes.ShutterState

	CurrentAz float64
	TargetAz  float64

	Auto bool // auto-follow mode

	// TelState mirrors the mount's state, set by the poll loop before
	// Step so auto-follow can lead the target during a slew.
	TelState teltypes.TelState

	homing         bool
	rotating       bool
	shutterMoving  bool
	shutterWant    bool // true=opening
	pendingShutter bool // a shutter move is waiting on power-azimuth alignment

	deadline time.Time

	wxAlert bool
}

// holdAltitude is the elevation above which auto-follow freezes the
// dome azimuth; near the zenith tiny pointing changes whirl the dome a
// full turn for no optical benefit.
const holdAltitude = 85 * 3.14159265358979323846 / 180

// autoSlewLead is the hour-angle lead applied while the mount is still
// slewing or hunting, three minutes of sidereal motion, so the dome
// arrives at the slit position about when the mount does.
const autoSlewLead = 2 * 3.14159265358979323846 * 3 / (24 * 60)

// New returns a Dome absent any hardware (callers wire ports after
// construction, or leave them nil to run headless).
func New(cfg config.DomeConfig, geom domegeom.Geometry) *Dome {
	state := teltypes.DomeAbsent
	shState := teltypes.ShutterAbsent
	if cfg.DomeHave {
		state = teltypes.DomeStopped
	}
	if cfg.ShutterHave {
		shState = teltypes.ShutterIdle
	}
	return &Dome{Cfg: cfg, Geometry: geom, State: state, ShutterState: shState}
}

// Dispatch routes a parsed Dome command. A weather alert in progress
// refuses every command except Close and Stop.
func (d *Dome) Dispatch(cmd fifocmd.DomeCmd) fifoproto.Response {
	if d.wxAlert && cmd.Kind != fifocmd.DomeClose && cmd.Kind != fifocmd.DomeStop {
		return fifoproto.Fail(-fifoproto.WxAlertCode, "weather alert: shutter closing, command refused")
	}
	switch cmd.Kind {
	case fifocmd.DomeReset:
		return d.Reset()
	case fifocmd.DomeStop:
		return d.Stop()
	case fifocmd.DomeOpen:
		return d.OpenShutter()
	case fifocmd.DomeClose:
		return d.CloseShutter()
	case fifocmd.DomeAuto:
		return d.SetAuto(true)
	case fifocmd.DomeAutoOff:
		return d.SetAuto(false)
	case fifocmd.DomeHome:
		return d.Home()
	case fifocmd.DomeSetAz:
		return d.SetAz(cmd.Az)
	case fifocmd.DomeJog:
		return d.Jog(cmd.JogDir)
	default:
		return d.Stop()
	}
}

func (d *Dome) Reset() fifoproto.Response {
	d.Stop()
	d.Auto = false
	return fifoproto.Success("dome reset")
}

func (d *Dome) Stop() fifoproto.Response {
	if d.Port != nil {
		_ = d.Port.Interrupt(context.Background())
		_ = d.Port.SetVel(context.Background(), 0)
	}
	d.rotating = false
	d.homing = false
	if d.Cfg.DomeHave {
		d.State = teltypes.DomeStopped
	}
	return fifoproto.Success("dome stopped")
}

// SetAuto toggles dome-follow mode, which slaves TargetAz to the
// telescope's dome-wall intercept every poll.
func (d *Dome) SetAuto(on bool) fifoproto.Response {
	if !d.Cfg.DomeHave {
		return fifoproto.Fail(-1, "dome not present")
	}
	d.Auto = on
	if on {
		return fifoproto.Success("auto-follow enabled")
	}
	return fifoproto.Success("auto-follow disabled")
}

// Home starts the dome homing sequence.
func (d *Dome) Home() fifoproto.Response {
	if !d.Cfg.DomeHave || d.Port == nil {
		return fifoproto.Fail(-1, "dome not present")
	}
	d.homing = true
	d.State = teltypes.DomeHoming
	_ = d.Port.RunProgram(context.Background(), "domehome();")
	return fifoproto.Progress(1, "dome homing")
}

// SetAz commands the dome rotator to a fixed azimuth, disabling
// auto-follow for the duration of the move.
func (d *Dome) SetAz(az float64) fifoproto.Response {
	if !d.Cfg.DomeHave || d.Port == nil {
		return fifoproto.Fail(-1, "dome not present")
	}
	d.Auto = false
	return d.seek(az)
}

// seek normalizes the azimuth, converts it through the dome-zero offset
// into controller encoder space, and starts the rotation.
func (d *Dome) seek(az float64) fifoproto.Response {
	d.TargetAz = mod2pi(az)
	d.rotating = true
	d.State = teltypes.DomeRotating
	if err := d.Port.SetPos(context.Background(), d.azToEnc(d.TargetAz)); err != nil {
		d.rotating = false
		d.State = teltypes.DomeStopped
		return fifoproto.Fail(-2, "dome seek failed: "+err.Error())
	}
	return fifoproto.Progress(1, "dome rotating")
}

// azToEnc maps a sky azimuth to controller encoder counts:
// sign * step * (az - zero)/2pi. With step unset (virtual bring-up) the
// controller speaks radians directly.
func (d *Dome) azToEnc(az float64) float64 {
	if d.Cfg.Step == 0 {
		return az
	}
	taz := mod2pi(az - d.Cfg.Zero)
	return float64(d.Cfg.Sign) * float64(d.Cfg.Step) * taz / (2 * 3.14159265358979323846)
}

// encToAz is the inverse of azToEnc, applied to every raw position read.
func (d *Dome) encToAz(enc float64) float64 {
	if d.Cfg.Step == 0 {
		return enc
	}
	taz := enc * (2 * 3.14159265358979323846) / (float64(d.Cfg.Sign) * float64(d.Cfg.Step))
	return mod2pi(taz + d.Cfg.Zero)
}

func mod2pi(v float64) float64 {
	const twoPi = 2 * 3.14159265358979323846
	for v < 0 {
		v += twoPi
	}
	for v >= twoPi {
		v -= twoPi
	}
	return v
}

// Jog applies a direct rotator velocity, disabling auto-follow.
func (d *Dome) Jog(dir string) fifoproto.Response {
	if !d.Cfg.DomeHave || d.Port == nil {
		return fifoproto.Fail(-1, "dome not present")
	}
	d.Auto = false
	var sign float64
	switch dir {
	case "+":
		sign = 1
	case "-":
		sign = -1
	default:
		sign = 0
	}
	_ = d.Port.SetVel(context.Background(), sign*0.2)
	if sign == 0 {
		d.rotating = false
		d.State = teltypes.DomeStopped
	} else {
		d.rotating = true
		d.State = teltypes.DomeRotating
	}
	return fifoproto.Success("dome jogging")
}

// OpenShutter and CloseShutter honor the power-azimuth
// gate: when GatesShutter is enabled, the dome must be parked within
// ShutterAzTol of ShutterAz -- where the shutter's power contacts line
// up -- before the shutter is allowed to move.
func (d *Dome) OpenShutter() fifoproto.Response  { return d.moveShutter(true) }
func (d *Dome) CloseShutter() fifoproto.Response { return d.moveShutter(false) }

func (d *Dome) moveShutter(open bool) fifoproto.Response {
	if !d.Cfg.ShutterHave || d.ShutterPort == nil {
		return fifoproto.Fail(-1, "shutter not present")
	}
	if d.Cfg.GatesShutter() && !d.atShutterPowerAz() {
		// Rotate to the power contacts first; the shutter move stays
		// pending and fires when the rotation completes.
		if !d.Cfg.DomeHave || d.Port == nil {
			return fifoproto.Fail(-2, "dome not aligned with shutter power contacts and no rotator to fix it")
		}
		d.pendingShutter = true
		d.shutterWant = open
		if r := d.seek(d.Cfg.ShutterAz); r.Code < 0 {
			d.pendingShutter = false
			return r
		}
		return fifoproto.Progress(2, "rotating dome to shutter power azimuth")
	}
	return d.startShutter(open)
}

func (d *Dome) startShutter(open bool) fifoproto.Response {
	arg := 0
	if open {
		arg = 1
		d.ShutterState = teltypes.ShutterOpening
	} else {
		d.ShutterState = teltypes.ShutterClosing
	}
	d.shutterMoving = true
	d.shutterWant = open
	d.deadline = time.Now().Add(time.Duration(d.Cfg.ShutterTo) * time.Second)
	_ = d.ShutterPort.RunProgram(context.Background(), shutterProgram(arg))
	return fifoproto.Progress(1, "shutter moving")
}

func shutterProgram(arg int) string {
	if arg == 1 {
		return "shutter(1);"
	}
	return "shutter(0);"
}

func (d *Dome) atShutterPowerAz() bool {
	diff := d.CurrentAz - d.Cfg.ShutterAz
	for diff > 3.14159265 {
		diff -= 2 * 3.14159265
	}
	for diff < -3.14159265 {
		diff += 2 * 3.14159265
	}
	if diff < 0 {
		diff = -diff
	}
	return diff <= d.Cfg.ShutterAzTol
}

// WxAlert preempts any in-progress dome function and forces the shutter
// into CLOSING. A weather alert always wins.
func (d *Dome) WxAlert() fifoproto.Response {
	d.wxAlert = true
	d.Auto = false
	d.pendingShutter = false
	if d.rotating || d.homing {
		d.Stop()
	}
	if d.Cfg.ShutterHave && d.ShutterPort != nil && d.ShutterState != teltypes.ShutterClosed && d.ShutterState != teltypes.ShutterClosing {
		d.startShutter(false)
	}
	return fifoproto.Progress(fifoproto.WxAlertCode, "weather alert: closing shutter")
}

// ClearWxAlert ends the weather-alert preemption once conditions clear.
func (d *Dome) ClearWxAlert() {
	d.wxAlert = false
}

// Step advances the dome's active function by one poll tick.
func (d *Dome) Step(now teltypes.Now, ha, dec float64) []fifoproto.Response {
	var out []fifoproto.Response
	ctx := context.Background()

	if d.Port != nil {
		if pos, err := d.Port.ReadPos(ctx); err == nil {
			d.CurrentAz = d.encToAz(pos)
		}
	}

	if d.Auto && d.Cfg.DomeHave && d.Port != nil && !d.shutterMoving && !d.pendingShutter {
		if d.Cfg.ShutterHave && d.ShutterPort != nil && d.ShutterState != teltypes.ShutterOpen {
			// First auto cycle opens the shutter before any following.
			out = append(out, d.OpenShutter())
		} else {
			haEff := ha
			if d.TelState == teltypes.TelSlewing || d.TelState == teltypes.TelHunting {
				haEff += autoSlewLead
			}
			alt, az, _ := d.Geometry.AltAz(haEff, dec, now.Latitude)
			if alt <= holdAltitude {
				if angDiff(d.CurrentAz, az) > d.Cfg.Tol && !d.rotating {
					if r := d.seek(az); r.Code < 0 {
						out = append(out, r)
					}
				}
			}
		}
	}

	if d.homing {
		out = append(out, d.stepHoming(ctx)...)
	}
	if d.rotating && !d.homing {
		if angDiff(d.CurrentAz, d.TargetAz) <= d.Cfg.Tol {
			d.rotating = false
			d.State = teltypes.DomeStopped
			out = append(out, fifoproto.Success("dome rotation complete"))
			if d.pendingShutter {
				d.pendingShutter = false
				out = append(out, d.startShutter(d.shutterWant))
			}
		}
	}
	if d.shutterMoving {
		out = append(out, d.stepShutter(ctx)...)
	}
	return out
}

func (d *Dome) stepHoming(ctx context.Context) []fifoproto.Response {
	ready, err := d.Port.IsReady(ctx)
	if err != nil {
		d.Stop()
		d.homing = false
		return []fifoproto.Response{fifoproto.Fail(-3, err.Error())}
	}
	if !ready {
		return nil
	}
	line, _, _ := d.Port.ReadLine(ctx)
	p := motortransport.ParseProgress(line)
	switch p.Kind {
	case motortransport.ProgressSuccess:
		d.homing = false
		d.State = teltypes.DomeStopped
		return []fifoproto.Response{fifoproto.Success("dome homed")}
	case motortransport.ProgressError:
		d.homing = false
		d.State = teltypes.DomeStopped
		return []fifoproto.Response{fifoproto.Fail(p.Code, "dome home failed: "+p.Text)}
	default:
		return []fifoproto.Response{fifoproto.Progress(p.Code, p.Text)}
	}
}

func (d *Dome) stepShutter(ctx context.Context) []fifoproto.Response {
	if time.Now().After(d.deadline) {
		d.shutterMoving = false
		d.ShutterState = teltypes.ShutterIdle
		return []fifoproto.Response{fifoproto.Fail(-4, "shutter timed out")}
	}
	ready, err := d.ShutterPort.IsReady(ctx)
	if err != nil || !ready {
		if err != nil {
			d.shutterMoving = false
			return []fifoproto.Response{fifoproto.Fail(-3, err.Error())}
		}
		return nil
	}
	line, _, _ := d.ShutterPort.ReadLine(ctx)
	p := motortransport.ParseProgress(line)
	switch p.Kind {
	case motortransport.ProgressSuccess:
		d.shutterMoving = false
		if d.shutterWant {
			d.ShutterState = teltypes.ShutterOpen
		} else {
			d.ShutterState = teltypes.ShutterClosed
		}
		return []fifoproto.Response{fifoproto.Success("shutter complete")}
	case motortransport.ProgressError:
		d.shutterMoving = false
		d.ShutterState = teltypes.ShutterIdle
		return []fifoproto.Response{fifoproto.Fail(p.Code, "shutter failed: "+p.Text)}
	default:
		return []fifoproto.Response{fifoproto.Progress(p.Code, p.Text)}
	}
}

func angDiff(a, b float64) float64 {
	const twoPi = 2 * 3.14159265358979323846
	d := a - b
	for d > twoPi/2 {
		d -= twoPi
	}
	for d < -twoPi/2 {
		d += twoPi
	}
	if d < 0 {
		d = -d
	}
	return d
}
