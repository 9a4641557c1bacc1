package dome

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jmhannon/rigel-master/internal/config"
	"github.com/jmhannon/rigel-master/internal/domegeom"
	"github.com/jmhannon/rigel-master/internal/fifocmd"
	"github.com/jmhannon/rigel-master/internal/fifoproto"
	"github.com/jmhannon/rigel-master/internal/motortransport"
	"github.com/jmhannon/rigel-master/internal/teltypes"
)

func newTestDome(t *testing.T, gates bool) *Dome {
	t.Helper()
	cfg := config.DefaultDomeConfig()
	cfg.DomeHave = true
	cfg.ShutterHave = true
	cfg.ShutterTo = 1
	if gates {
		cfg.ShutterAz = 1.0
		cfg.ShutterAzTol = 0.05
	}
	geom, err := domegeom.SetGeometry(0, 0, 0, 0.1, 5)
	if err != nil {
		t.Fatalf("SetGeometry: %v", err)
	}
	d := New(cfg, geom)
	d.Port = motortransport.NewVirtualMotor(10)
	d.ShutterPort = motortransport.NewVirtualMotor(10)
	_ = d.Port.Open(context.Background())
	_ = d.ShutterPort.Open(context.Background())
	return d
}

func TestOpenShutterGatedByAzimuth(t *testing.T) {
	d := newTestDome(t, true)
	d.CurrentAz = 0 // far from ShutterAz=1.0

	resp := d.Dispatch(fifocmd.DomeCmd{Kind: fifocmd.DomeOpen})
	if resp.Code <= 0 {
		t.Fatalf("OpenShutter while misaligned = %+v, want a pending-rotation progress code", resp)
	}
	if d.State != teltypes.DomeRotating {
		t.Fatalf("State = %v, want ROTATING toward the power azimuth", d.State)
	}
	if d.ShutterState == teltypes.ShutterOpening {
		t.Fatal("shutter must not start moving before the dome is aligned")
	}
}

func TestShutterPowerGatingSequence(t *testing.T) {
	d := newTestDome(t, true)
	d.CurrentAz = 0

	resp := d.Dispatch(fifocmd.DomeCmd{Kind: fifocmd.DomeOpen})
	if resp.Code <= 0 {
		t.Fatalf("gated open = %+v, want progress", resp)
	}

	sawRotationDone := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		out := d.Step(teltypes.Now{}, 0, 0)
		for _, r := range out {
			if r.Code == 0 && r.Text == "dome rotation complete" {
				sawRotationDone = true
			}
			if r.Code == 0 && r.Text == "shutter complete" {
				if !sawRotationDone {
					t.Fatal("shutter completed before dome rotation finished")
				}
				if d.ShutterState != teltypes.ShutterOpen {
					t.Fatalf("ShutterState = %v, want OPEN", d.ShutterState)
				}
				return
			}
		}
	}
	t.Fatal("gated open never completed")
}

func TestAutoOpensShutterFirst(t *testing.T) {
	d := newTestDome(t, false)
	d.SetAuto(true)

	out := d.Step(teltypes.Now{Latitude: 0.7}, 0.2, 0.3)
	if d.ShutterState != teltypes.ShutterOpening {
		t.Fatalf("ShutterState = %v, want OPENING on the first auto cycle (responses: %v)", d.ShutterState, out)
	}
}

func TestOpenShutterSucceedsWhenAligned(t *testing.T) {
	d := newTestDome(t, true)
	d.CurrentAz = 1.0

	resp := d.Dispatch(fifocmd.DomeCmd{Kind: fifocmd.DomeOpen})
	if resp.Code <= 0 {
		t.Fatalf("OpenShutter while aligned = %+v, want progress", resp)
	}
}

func TestOpenShutterUngatedWhenDisabled(t *testing.T) {
	d := newTestDome(t, false)
	d.CurrentAz = 0

	resp := d.Dispatch(fifocmd.DomeCmd{Kind: fifocmd.DomeOpen})
	if resp.Code <= 0 {
		t.Fatalf("OpenShutter ungated = %+v, want progress", resp)
	}
}

func TestWxAlertForcesShutterClosing(t *testing.T) {
	d := newTestDome(t, false)
	d.ShutterState = teltypes.ShutterOpen

	resp := d.WxAlert()
	if resp.Code != fifoproto.WxAlertCode {
		t.Fatalf("WxAlert response code = %d, want %d", resp.Code, fifoproto.WxAlertCode)
	}
	if d.ShutterState != teltypes.ShutterClosing {
		t.Fatalf("ShutterState = %v, want CLOSING", d.ShutterState)
	}
}

func TestWxAlertRefusesSubsequentCommands(t *testing.T) {
	d := newTestDome(t, false)
	d.WxAlert()

	resp := d.Dispatch(fifocmd.DomeCmd{Kind: fifocmd.DomeAuto})
	if resp.Code >= 0 {
		t.Fatalf("Dispatch during wx alert = %+v, want failure", resp)
	}
}

func TestAutoFollowSlavesTargetAz(t *testing.T) {
	d := newTestDome(t, false)
	d.SetAuto(true)
	d.ShutterState = teltypes.ShutterOpen // skip the first-cycle shutter open

	now := teltypes.Now{Latitude: 0.7}
	d.Step(now, 0.2, 0.3)
	_, wantAz, _ := d.Geometry.AltAz(0.2, 0.3, now.Latitude)
	if math.Abs(d.TargetAz-wantAz) > 1e-9 {
		t.Fatalf("TargetAz = %g, want the dome-wall intercept azimuth %g", d.TargetAz, wantAz)
	}
}

func TestShutterStepReportsSuccess(t *testing.T) {
	d := newTestDome(t, false)
	d.Dispatch(fifocmd.DomeCmd{Kind: fifocmd.DomeOpen})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		out := d.Step(teltypes.Now{}, 0, 0)
		for _, r := range out {
			if r.Terminal() {
				if r.Code != 0 {
					t.Fatalf("shutter open failed: %+v", r)
				}
				if d.ShutterState != teltypes.ShutterOpen {
					t.Fatalf("ShutterState = %v, want OPEN", d.ShutterState)
				}
				return
			}
		}
	}
	t.Fatalf("shutter never completed")
}
