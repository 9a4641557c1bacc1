package kinematics

import (
	"math"
	"testing"
	"time"

	"github.com/jmhannon/rigel-master/internal/coordkernel"
	"github.com/jmhannon/rigel-master/internal/teltypes"
)

func TestHd2xyrMkCookInverse(t *testing.T) {
	now := teltypes.Now{JD: 2460123.5, Latitude: 0.55, Longitude: -1.8}
	axes := teltypes.TelAxes{}
	mesh := coordkernel.MeshTable{}

	tests := []struct {
		name     string
		ha, dec  float64
	}{
		{"near meridian", 0.02, 0.4},
		{"east of meridian", -0.8, 0.1},
		{"west of meridian", 0.8, -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, _ := Hd2xyr(now, axes, mesh, tt.ha, tt.dec, false, 1)
			cooked := MkCook(now, axes, mesh, x, y, 0)

			if diff := math.Abs(cooked.CAHA - tt.ha); diff > 1e-9 {
				t.Errorf("CAHA round-trip: got %g want %g (diff %g)", cooked.CAHA, tt.ha, diff)
			}
			if diff := math.Abs(cooked.CADec - tt.dec); diff > 1e-9 {
				t.Errorf("CADec round-trip: got %g want %g (diff %g)", cooked.CADec, tt.dec, diff)
			}
		})
	}
}

func TestChkLimitsWrapsIntoRange(t *testing.T) {
	mi := &teltypes.MotorInfo{Axis: teltypes.AxisHA, NegLim: -math.Pi, PosLim: math.Pi}

	v, err := ChkLimits(true, mi, -math.Pi-0.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v <= mi.NegLim || v >= mi.PosLim {
		t.Fatalf("wrapped value %g still out of range", v)
	}
}

func TestChkLimitsIdempotent(t *testing.T) {
	mi := &teltypes.MotorInfo{Axis: teltypes.AxisHA, NegLim: -math.Pi, PosLim: math.Pi}

	v1, err := ChkLimits(true, mi, -math.Pi-0.1)
	if err != nil {
		t.Fatalf("first wrap failed: %v", err)
	}
	v2, err := ChkLimits(true, mi, v1)
	if err != nil {
		t.Fatalf("second wrap failed: %v", err)
	}
	if v1 != v2 {
		t.Errorf("ChkLimits not idempotent: %g != %g", v1, v2)
	}
}

func TestChkLimitsFailsWithoutWrap(t *testing.T) {
	mi := &teltypes.MotorInfo{Axis: teltypes.AxisDec, NegLim: -1, PosLim: 1}

	_, err := ChkLimits(false, mi, 1.5)
	if err == nil {
		t.Fatal("expected a LimitViolation")
	}
}

func TestAtTargetDebounce(t *testing.T) {
	tg := NewTarget()
	mi := &teltypes.MotorInfo{Axis: teltypes.AxisHA, Have: true, CPos: 0, DPos: 0}
	motors := []*teltypes.MotorInfo{mi}

	t0 := time.Now()
	if tg.AtTarget(t0, motors, 0.01) {
		t.Fatal("should not be at target before debounce window elapses")
	}
	if !tg.AtTarget(t0.Add(1100*time.Millisecond), motors, 0.01) {
		t.Fatal("should be at target once debounce window elapses")
	}
}

func TestOnTargetReportsOffendingAxis(t *testing.T) {
	good := &teltypes.MotorInfo{Axis: teltypes.AxisHA, Have: true, CPos: 0, DPos: 0}
	bad := &teltypes.MotorInfo{Axis: teltypes.AxisDec, Have: true, CPos: 1, DPos: 0}

	ok, offending := OnTarget([]*teltypes.MotorInfo{good, bad}, 0.01)
	if ok {
		t.Fatal("expected OnTarget to fail")
	}
	if offending == nil || offending.Axis != teltypes.AxisDec {
		t.Fatalf("expected Dec to be reported, got %v", offending)
	}
}
