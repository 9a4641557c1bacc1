package mount

import (
	"context"
	"testing"
	"time"

	"github.com/jmhannon/rigel-master/internal/cover"
	"github.com/jmhannon/rigel-master/internal/motortransport"
	"github.com/jmhannon/rigel-master/internal/teltypes"
)

func newTestMotors() (map[teltypes.Axis]*teltypes.MotorInfo, map[teltypes.Axis]motortransport.Port) {
	ha := teltypes.NewMotorInfo(teltypes.AxisHA)
	ha.Have = true
	ha.NegLim = -3.2
	ha.PosLim = 3.2
	ha.MaxVel = 1.0
	ha.IsHomed = true

	dec := teltypes.NewMotorInfo(teltypes.AxisDec)
	dec.Have = true
	dec.NegLim = -1.6
	dec.PosLim = 1.6
	dec.MaxVel = 1.0
	dec.IsHomed = true

	motors := map[teltypes.Axis]*teltypes.MotorInfo{
		teltypes.AxisHA:  ha,
		teltypes.AxisDec: dec,
	}
	ports := map[teltypes.Axis]motortransport.Port{
		teltypes.AxisHA:  motortransport.NewVirtualMotor(10),
		teltypes.AxisDec: motortransport.NewVirtualMotor(10),
	}
	for _, p := range ports {
		_ = p.Open(context.Background())
	}
	return motors, ports
}

func TestResetClearsHomedFlags(t *testing.T) {
	motors, ports := newTestMotors()
	m := New(teltypes.Now{}, teltypes.TelAxes{}, motors, ports, 0.01, 60, 0.1, 0.5)

	resp := m.Reset()
	if resp.Code != 0 {
		t.Fatalf("Reset() = %+v, want success", resp)
	}
	for _, mi := range motors {
		if mi.IsHomed {
			t.Errorf("axis %s still marked homed after Reset", mi.Axis)
		}
	}
	if m.State != teltypes.TelStopped {
		t.Errorf("State = %v, want STOPPED", m.State)
	}
}

func TestGotoHADecRejectsUnhomedAxis(t *testing.T) {
	motors, ports := newTestMotors()
	motors[teltypes.AxisHA].IsHomed = false
	m := New(teltypes.Now{}, teltypes.TelAxes{}, motors, ports, 0.01, 60, 0.1, 0.5)

	resp := m.GotoHADec(0, 0)
	if resp.Code >= 0 {
		t.Fatalf("GotoHADec with unhomed axis = %+v, want a fatal code", resp)
	}
}

func TestGotoHADecStartsSlew(t *testing.T) {
	motors, ports := newTestMotors()
	m := New(teltypes.Now{Latitude: 0.6}, teltypes.TelAxes{}, motors, ports, 0.01, 60, 0.1, 0.5)

	resp := m.GotoHADec(0.1, 0.2)
	if resp.Code <= 0 {
		t.Fatalf("GotoHADec = %+v, want progress", resp)
	}
	if m.State != teltypes.TelSlewing {
		t.Fatalf("State = %v, want SLEWING", m.State)
	}
}

func TestJogOutsideTrackingSetsVelocity(t *testing.T) {
	motors, ports := newTestMotors()
	m := New(teltypes.Now{}, teltypes.TelAxes{}, motors, ports, 0.01, 60, 0.1, 0.5)

	resp := m.Jog("W", 16384)
	if resp.Code != 0 {
		t.Fatalf("Jog() = %+v, want success", resp)
	}
	vel, err := ports[teltypes.AxisHA].ReadVel(context.Background())
	if err != nil {
		t.Fatalf("ReadVel: %v", err)
	}
	if vel == 0 {
		t.Errorf("expected nonzero jog velocity, got 0")
	}
}

func TestOffsetRefusedOutsideTracking(t *testing.T) {
	motors, ports := newTestMotors()
	m := New(teltypes.Now{}, teltypes.TelAxes{}, motors, ports, 0.01, 60, 0.1, 0.5)

	resp := m.Offset(1, 1)
	if resp.Code >= 0 {
		t.Fatalf("Offset outside TRACKING = %+v, want failure", resp)
	}
}

// startTracking puts m into TRACKING on a fixed target. The
// hunting->tracking debounce is a timing concern, not what these tests
// exercise, so the state is forced directly.
func startTracking(t *testing.T, m *Mount) {
	t.Helper()
	resp := m.GotoRaDec(1.0, 0.3, teltypes.EpochEOD)
	if resp.Code < 0 {
		t.Fatalf("GotoRaDec = %+v, want accepted", resp)
	}
	m.State = teltypes.TelTracking
}

func TestOffsetWhileTrackingConvertsArcsecToCounts(t *testing.T) {
	motors, ports := newTestMotors()
	// One encoder count per arc-second, so the estep*esign/1296000
	// conversion is directly visible in the resulting offset.
	for _, axis := range []teltypes.Axis{teltypes.AxisHA, teltypes.AxisDec} {
		motors[axis].HaveEncoder = true
		motors[axis].EncStepsPerRev = 1296000
	}
	m := New(teltypes.Now{Latitude: 0.6}, teltypes.TelAxes{}, motors, ports, 0.01, 60, 0.1, 0.5)
	startTracking(t, m)

	resp := m.Offset(3600, -1800) // +1 degree HA, -0.5 degree Dec
	if resp.Code != 0 {
		t.Fatalf("Offset = %+v, want success", resp)
	}
	if !m.TrackingOffsetApplied() {
		t.Fatal("expected TrackingOffsetApplied after Offset")
	}

	const degRad = 2 * 3.14159265358979323846 / 360
	dha, ddec := m.TrackingOffsets()
	if diff := dha - degRad; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("HA offset = %g rad, want %g", dha, degRad)
	}
	if diff := ddec + degRad/2; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Dec offset = %g rad, want %g", ddec, -degRad/2)
	}
}

func TestOffsetsAccumulate(t *testing.T) {
	motors, ports := newTestMotors()
	m := New(teltypes.Now{Latitude: 0.6}, teltypes.TelAxes{}, motors, ports, 0.01, 60, 0.1, 0.5)
	startTracking(t, m)

	m.Offset(10, 0)
	m.Offset(10, 0)
	dha1, _ := m.TrackingOffsets()

	m.Offset(10, 0)
	dha2, _ := m.TrackingOffsets()
	if dha2 <= dha1 || dha1 <= 0 {
		t.Errorf("offsets did not accumulate: %g then %g", dha1, dha2)
	}
}

func TestGuideJogAccumulatesTrackingOffset(t *testing.T) {
	motors, ports := newTestMotors()
	m := New(teltypes.Now{Latitude: 0.6}, teltypes.TelAxes{}, motors, ports, 0.01, 60, 0.1, 0.5)
	startTracking(t, m)

	resp := m.Jog("N", 1000) // lower half of the paddle range: fine rate
	if resp.Code != 0 {
		t.Fatalf("Jog while TRACKING = %+v, want success", resp)
	}
	if !m.PaddleActive() {
		t.Fatal("expected PaddleActive during a guide jog")
	}

	time.Sleep(30 * time.Millisecond)
	m.Step(teltypes.Now{Latitude: 0.6})

	_, ddec := m.TrackingOffsets()
	if ddec <= 0 {
		t.Fatalf("Dec tracking offset = %g, want > 0 after a north guide jog", ddec)
	}
	if !m.TrackingOffsetApplied() {
		t.Fatal("expected TrackingOffsetApplied after a guide jog step")
	}

	m.Jog("0", 0)
	if m.PaddleActive() {
		t.Fatal("expected PaddleActive cleared by j0")
	}
}

func TestNewTrackingTargetZeroesOffset(t *testing.T) {
	motors, ports := newTestMotors()
	m := New(teltypes.Now{Latitude: 0.6}, teltypes.TelAxes{}, motors, ports, 0.01, 60, 0.1, 0.5)
	startTracking(t, m)
	m.Offset(100, 100)
	if !m.TrackingOffsetApplied() {
		t.Fatal("expected an applied offset before retargeting")
	}

	startTracking(t, m)
	if m.TrackingOffsetApplied() {
		t.Error("expected a fresh target to zero the tracking offset")
	}
	if dha, ddec := m.TrackingOffsets(); dha != 0 || ddec != 0 {
		t.Errorf("offsets = (%g, %g), want (0, 0) on a fresh target", dha, ddec)
	}
}

func TestOpenCoverDelegatesToCoverPrimitive(t *testing.T) {
	motors, ports := newTestMotors()
	m := New(teltypes.Now{}, teltypes.TelAxes{}, motors, ports, 0.01, 60, 0.1, 0.5)
	vm := motortransport.NewVirtualMotor(10)
	_ = vm.Open(context.Background())
	m.Cover = cover.New(vm)

	resp := m.OpenCover()
	if resp.Code <= 0 {
		t.Fatalf("OpenCover = %+v, want progress", resp)
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		out := m.Cover.Step()
		for _, r := range out {
			if r.Terminal() {
				if r.Code != 0 {
					t.Fatalf("cover open failed: %+v", r)
				}
				if m.Cover.State != cover.Open {
					t.Fatalf("Cover.State = %v, want Open", m.Cover.State)
				}
				return
			}
		}
	}
	t.Fatalf("cover never completed")
}

func TestOpenCoverWithoutCoverPrimitiveFails(t *testing.T) {
	motors, ports := newTestMotors()
	m := New(teltypes.Now{}, teltypes.TelAxes{}, motors, ports, 0.01, 60, 0.1, 0.5)

	resp := m.OpenCover()
	if resp.Code >= 0 {
		t.Fatalf("OpenCover without Cover = %+v, want failure", resp)
	}
}
