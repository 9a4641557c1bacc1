package focus

import (
	"context"
	"testing"

	"github.com/jmhannon/rigel-master/internal/config"
	"github.com/jmhannon/rigel-master/internal/fifocmd"
	"github.com/jmhannon/rigel-master/internal/motortransport"
	"github.com/jmhannon/rigel-master/internal/teltypes"
)

func newTestFocus(t *testing.T) (*Focus, *motortransport.VirtualMotor) {
	t.Helper()
	cfg := config.DefaultFocusConfig()
	cfg.Have = true
	cfg.Scale = 1000 // 1000 um/rad
	motor := teltypes.NewMotorInfo(teltypes.AxisFocus)
	motor.Have = true
	motor.NegLim = -10
	motor.PosLim = 10
	motor.MaxVel = 0.5

	vm := motortransport.NewVirtualMotor(5)
	_ = vm.Open(context.Background())

	filterCfg := config.FilterConfig{Slots: []config.FilterPoint{
		{Name: "V", F0: 100, T0: 0, F1: 200, T1: 20},
	}}

	f := New(cfg, motor, vm, filterCfg)
	return f, vm
}

func TestOffsetClampsToLimits(t *testing.T) {
	f, _ := newTestFocus(t)
	f.Motor.DPos = 9.999

	resp := f.Offset(1000000) // huge offset in microns
	if resp.Code <= 0 {
		t.Fatalf("Offset = %+v, want progress", resp)
	}
	if f.Motor.DPos != f.Motor.PosLim {
		t.Errorf("DPos = %g, want clamped to PosLim %g", f.Motor.DPos, f.Motor.PosLim)
	}
}

func TestJogDisablesAuto(t *testing.T) {
	f, _ := newTestFocus(t)
	f.auto = true

	f.Jog("+")
	if f.auto {
		t.Errorf("Jog did not disable auto-focus")
	}
}

func TestDispatchAutoOffsetReset(t *testing.T) {
	f, _ := newTestFocus(t)
	f.autoFocusOffset = 5

	f.Dispatch(fifocmd.FocusCmd{Kind: fifocmd.FocusAutoOffsetReset})
	if f.autoFocusOffset != 0 {
		t.Errorf("autoFocusOffset = %g, want 0 after reset", f.autoFocusOffset)
	}
}

func TestAutoFocusSkipsWhenTempAndFilterUnchanged(t *testing.T) {
	f, _ := newTestFocus(t)
	f.auto = true
	f.haveLastTemp = true
	f.lastTemp = 10
	f.lastFilter = "V"
	f.Cfg.MinAFDT = 0.5
	f.Temp = func() (float64, bool) { return 10.1, true }

	out := f.stepAutoFocus(teltypes.Now{}, "V")
	if out != nil {
		t.Fatalf("expected no auto-focus move, got %+v", out)
	}
}

func TestAutoFocusMovesWhenTempDrifts(t *testing.T) {
	f, _ := newTestFocus(t)
	f.auto = true
	f.haveLastTemp = true
	f.lastTemp = 0
	f.lastFilter = "V"
	f.Cfg.MinAFDT = 0.5
	f.Temp = func() (float64, bool) { return 10, true }

	out := f.stepAutoFocus(teltypes.Now{}, "V")
	if len(out) != 1 || out[0].Code <= 0 {
		t.Fatalf("expected an auto-focus move, got %+v", out)
	}
}
