// Package focus implements the focuser state machine:
// Reset/Home/Limits/Stop/Jog/Offset manual control plus the auto-focus
// algorithm that interpolates a target position from the active
// filter's per-temperature focus table and reissues a goto whenever
// temperature or filter drifts enough to matter.
//
// The focuser is driven through a motortransport.Port, so any Port
// backend can serve; homing runs a controller script whose "N: text"
// progress lines are read back with motortransport.ParseProgress.
// There is no focuser driver type of its own: Home and Offset call the
// Port directly and report only through fifo responses, with no
// InProgress/Done/Error result.
package focus

import (
	"context"
	"math"

	"github.com/jmhannon/rigel-master/internal/config"
	"github.com/jmhannon/rigel-master/internal/fifocmd"
	"github.com/jmhannon/rigel-master/internal/fifoproto"
	"github.com/jmhannon/rigel-master/internal/motortransport"
	"github.com/jmhannon/rigel-master/internal/teltypes"
)

// FLIJumpCounts is the FLI driver's maximum single-move distance. This
// package does not apply it: every move is issued as one SetPos to the
// Port, whatever its length.
const FLIJumpCounts = 4095

// TempSensor reads the currently selected focus-temperature source: the
// highest-priority aux sensor if one is defined, else ambient. Some
// implementations refresh this every 5s from an external driver thread;
// here it is polled once per Step.
type TempSensor func() (celsius float64, ok bool)

// Focus owns the focuser axis, its port, and the auto-focus
// bookkeeping.
type Focus struct {
	Cfg       config.FocusConfig
	Motor     *teltypes.MotorInfo
	Port      motortransport.Port
	Temp      TempSensor
	Filter    config.FilterConfig
	TempTable config.FocusTempTable

	auto            bool
	autoFocusOffset float64
	lastTemp        float64
	lastFilter      string
	lastOffset      float64
	haveLastTemp    bool

	CurrentFilter func() string // reads the filter wheel's selected slot name

	moving   bool
	homing   bool
}

// New returns an idle Focus.
func New(cfg config.FocusConfig, motor *teltypes.MotorInfo, port motortransport.Port, filterCfg config.FilterConfig) *Focus {
	return &Focus{Cfg: cfg, Motor: motor, Port: port, Filter: filterCfg}
}

// IsAuto reports whether the auto-focus loop is currently enabled.
func (f *Focus) IsAuto() bool { return f.auto }

// Dispatch routes a parsed Focus command.
func (f *Focus) Dispatch(cmd fifocmd.FocusCmd) fifoproto.Response {
	switch cmd.Kind {
	case fifocmd.FocusReset:
		return f.Reset()
	case fifocmd.FocusHome:
		return f.Home()
	case fifocmd.FocusStop:
		return f.Stop()
	case fifocmd.FocusLimits:
		return f.Limits()
	case fifocmd.FocusAuto:
		return f.SetAuto(true)
	case fifocmd.FocusAutoOffsetReset:
		f.autoFocusOffset = 0
		return fifoproto.Success("auto-focus offset reset")
	case fifocmd.FocusAutoOffset:
		f.autoFocusOffset = micronsToRadians(f.Cfg.Scale, cmd.AutoOffsetUM)
		return fifoproto.Success("auto-focus offset set")
	case fifocmd.FocusJog:
		return f.Jog(cmd.JogDir)
	case fifocmd.FocusOffset:
		return f.Offset(cmd.OffsetUM)
	default:
		return f.Stop()
	}
}

func micronsToRadians(scale, um float64) float64 {
	if scale == 0 {
		return 0
	}
	return um / scale
}

func (f *Focus) Reset() fifoproto.Response {
	f.Stop()
	f.auto = false
	f.autoFocusOffset = 0
	return fifoproto.Success("focus reset")
}

// SetAuto enables/disables the auto-focus loop; any explicit manual
// command or an error disables it.
func (f *Focus) SetAuto(on bool) fifoproto.Response {
	if !f.Cfg.Have {
		return fifoproto.Fail(-1, "focuser not present")
	}
	f.auto = on
	if !on {
		return fifoproto.Success("auto-focus disabled")
	}
	return fifoproto.Success("auto-focus enabled")
}

func (f *Focus) Stop() fifoproto.Response {
	if f.Port != nil {
		_ = f.Port.Interrupt(context.Background())
		_ = f.Port.SetVel(context.Background(), 0)
	}
	f.moving = false
	f.homing = false
	f.auto = false
	return fifoproto.Success("focus stopped")
}

func (f *Focus) Home() fifoproto.Response {
	if !f.Cfg.Have || f.Port == nil {
		return fifoproto.Fail(-1, "focuser not present")
	}
	f.homing = true
	f.auto = false
	_ = f.Port.RunProgram(context.Background(), "focushome();")
	return fifoproto.Progress(1, "focus homing")
}

func (f *Focus) Limits() fifoproto.Response {
	if !f.Cfg.Have || f.Port == nil {
		return fifoproto.Fail(-1, "focuser not present")
	}
	f.auto = false
	_ = f.Port.RunProgram(context.Background(), "findlimits();")
	return fifoproto.Progress(1, "focus limit search started")
}

// Jog applies a direct velocity at the config's JogF fraction of
// MaxVel, disabling auto-focus.
func (f *Focus) Jog(dir string) fifoproto.Response {
	if !f.Cfg.Have || f.Port == nil {
		return fifoproto.Fail(-1, "focuser not present")
	}
	f.auto = false
	var sign float64
	switch dir {
	case "+":
		sign = 1
	case "-":
		sign = -1
	}
	speed := f.Motor.MaxVel * f.Cfg.JogF * sign
	_ = f.Port.SetVel(context.Background(), speed)
	f.moving = sign != 0
	return fifoproto.Success("focus jogging")
}

// Offset commands a relative move of dum micrometers, range-checked
// against the axis limits before issuance.
func (f *Focus) Offset(dum float64) fifoproto.Response {
	if !f.Cfg.Have || f.Port == nil {
		return fifoproto.Fail(-1, "focuser not present")
	}
	f.auto = false
	target := f.Motor.DPos + micronsToRadians(f.Cfg.Scale, dum)
	return f.gotoClamped(target)
}

func (f *Focus) gotoClamped(target float64) fifoproto.Response {
	if target < f.Motor.NegLim {
		target = f.Motor.NegLim
	}
	if target > f.Motor.PosLim {
		target = f.Motor.PosLim
	}
	f.Motor.DPos = target
	_ = f.Port.SetPos(context.Background(), target)
	f.moving = true
	return fifoproto.Progress(1, "focus moving")
}

// Step advances the focus state machine by one poll tick: services an
// in-flight home/move, then (if auto-focus is on) reconsiders whether a
// new target position is warranted.
func (f *Focus) Step(now teltypes.Now, filter string) []fifoproto.Response {
	var out []fifoproto.Response
	ctx := context.Background()

	if f.Port != nil {
		if pos, err := f.Port.ReadPos(ctx); err == nil {
			f.Motor.CPos = pos
		}
	}

	if f.homing {
		ready, err := f.Port.IsReady(ctx)
		if err == nil && ready {
			line, _, _ := f.Port.ReadLine(ctx)
			p := motortransport.ParseProgress(line)
			switch p.Kind {
			case motortransport.ProgressSuccess:
				f.homing = false
				f.Motor.IsHomed = true
				out = append(out, fifoproto.Success("focus homed"))
			case motortransport.ProgressError:
				f.homing = false
				out = append(out, fifoproto.Fail(p.Code, "focus home failed: "+p.Text))
			default:
				out = append(out, fifoproto.Progress(p.Code, p.Text))
			}
		}
	}

	if f.moving && math.Abs(f.Motor.CPos-f.Motor.DPos) < 1e-6 {
		f.moving = false
		out = append(out, fifoproto.Success("focus move complete"))
	}

	if f.auto && !f.homing && !f.moving {
		out = append(out, f.stepAutoFocus(now, filter)...)
	}

	return out
}

// stepAutoFocus runs one pass of the auto-focus algorithm: find the
// active filter, pick a focus temperature, interpolate the target
// position, skip when nothing changed, then clamp and issue the move.
func (f *Focus) stepAutoFocus(now teltypes.Now, filter string) []fifoproto.Response {
	if f.Temp == nil {
		return nil
	}
	t, ok := f.Temp()
	if !ok {
		return nil
	}

	sameTemp := f.haveLastTemp && math.Abs(t-f.lastTemp) <= f.Cfg.MinAFDT
	sameFilter := filter == f.lastFilter
	sameOffset := f.autoFocusOffset == f.lastOffset
	if sameTemp && sameFilter && sameOffset {
		return nil
	}

	var targetUM float64
	if um, ok := f.tableTarget(filter, t); ok {
		targetUM = um
	} else {
		slot, err := f.Filter.ByName(filter)
		if err != nil {
			return nil
		}
		targetUM = slot.Interp(t)
	}
	targetRad := micronsToRadians(f.Cfg.Scale, targetUM) + f.autoFocusOffset

	if math.Abs(targetRad-f.Motor.DPos)*f.Cfg.Scale > f.Cfg.MaxInterp {
		f.auto = false
		return []fifoproto.Response{fifoproto.Fail(-2, "auto-focus interpolation exceeds max_interp, disabling auto")}
	}

	f.lastTemp = t
	f.haveLastTemp = true
	f.lastFilter = filter
	f.lastOffset = f.autoFocusOffset

	return []fifoproto.Response{f.gotoClamped(targetRad)}
}

// tableTarget consults the tabulated per-filter focus positions. The
// two-point filter.cfg form stays authoritative when the operator has
// forced it on or the table has no entry for this filter.
func (f *Focus) tableTarget(filter string, t float64) (float64, bool) {
	if f.Cfg.OnOFocusTempDat {
		return 0, false
	}
	return f.TempTable.Interp(filter, t)
}
