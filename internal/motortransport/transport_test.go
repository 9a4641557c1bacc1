package motortransport

import (
	"context"
	"testing"
	"time"
)

func TestParseProgress(t *testing.T) {
	tests := []struct {
		name string
		line string
		kind ProgressKind
		code int
	}{
		{"progress", "42: halfway there", ProgressInProgress, 42},
		{"success", "0: Open complete", ProgressSuccess, 0},
		{"error", "-16: cancelled", ProgressError, -16},
		{"invalid", "garbage line", ProgressInvalid, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseProgress(tt.line)
			if p.Kind != tt.kind {
				t.Errorf("kind: got %v want %v", p.Kind, tt.kind)
			}
			if p.Kind != ProgressInvalid && p.Code != tt.code {
				t.Errorf("code: got %d want %d", p.Code, tt.code)
			}
		})
	}
}

func TestVirtualMotorSetPosReadPos(t *testing.T) {
	ctx := context.Background()
	v := NewVirtualMotor(1.0)
	if err := v.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := v.SetPos(ctx, 1.5); err != nil {
		t.Fatalf("set pos: %v", err)
	}
	pos, err := v.ReadPos(ctx)
	if err != nil {
		t.Fatalf("read pos: %v", err)
	}
	if pos != 1.5 {
		t.Fatalf("got %g want 1.5", pos)
	}
}

func TestVirtualMotorVelocityIntegration(t *testing.T) {
	ctx := context.Background()
	v := NewVirtualMotor(100.0) // high accel so velocity snaps to target quickly
	_ = v.Open(ctx)
	_ = v.SetPos(ctx, 0)
	_ = v.SetVel(ctx, 1.0)

	time.Sleep(20 * time.Millisecond)
	pos, _ := v.ReadPos(ctx)
	if pos <= 0 {
		t.Fatalf("expected positive movement after setting velocity, got %g", pos)
	}
}

func TestVirtualMotorRunProgramYieldsProgressThenSuccess(t *testing.T) {
	ctx := context.Background()
	v := NewVirtualMotor(1.0)
	_ = v.Open(ctx)
	if err := v.RunProgram(ctx, "cover(1);"); err != nil {
		t.Fatalf("run program: %v", err)
	}

	var lines []string
	for {
		ready, err := v.IsReady(ctx)
		if err != nil {
			t.Fatalf("is ready: %v", err)
		}
		if !ready {
			break
		}
		line, ok, err := v.ReadLine(ctx)
		if err != nil || !ok {
			t.Fatalf("read line: ok=%v err=%v", ok, err)
		}
		lines = append(lines, line)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 progress lines, got %d: %v", len(lines), lines)
	}
	final := ParseProgress(lines[len(lines)-1])
	if final.Kind != ProgressSuccess {
		t.Fatalf("expected final line to report success, got %v", final.Kind)
	}
}
