package motortransport

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// VirtualMotor is the deterministic in-process simulation variant:
// no hardware, no serial port, a simple
// kinematic integrator driven by the same poll cadence the real
// controllers are driven by. Used in tests, in dry-run deployments, and
// wherever a device is configured absent but the state machine still
// needs a Port to satisfy its interface.
type VirtualMotor struct {
	mu sync.Mutex

	pos, vel     float64
	targetVel    float64
	maxAcc       float64
	lastTick     time.Time

	program      []string // queued progress lines from the last RunProgram
	programIndex int

	// track holds the sample list uploaded by a VirtualMotor-backed
	// etrack/mtrack call; the virtual backend receives the sample list
	// directly rather than a wire encoding.
	track     []TrackSample
	trackOrig time.Time

	open bool
}

// TrackSample is one future-position sample of an uploaded tracking
// profile.
type TrackSample struct {
	OffsetMS int64 // milliseconds since the profile's t0
	Target   float64
}

// NewVirtualMotor returns an unopened VirtualMotor with the given
// acceleration limit.
func NewVirtualMotor(maxAcc float64) *VirtualMotor {
	return &VirtualMotor{maxAcc: maxAcc}
}

func (v *VirtualMotor) Open(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.open = true
	v.lastTick = time.Now()
	return nil
}

func (v *VirtualMotor) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.open = false
	return nil
}

func (v *VirtualMotor) checkOpen() error {
	if !v.open {
		return fmt.Errorf("virtual motor: not open")
	}
	return nil
}

// tick integrates the simple velocity-only kinematic model up to now,
// called lazily by every read/write so the simulation advances in
// lockstep with the poll loop rather than needing its own goroutine.
func (v *VirtualMotor) tick() {
	now := time.Now()
	dt := now.Sub(v.lastTick).Seconds()
	v.lastTick = now
	if dt <= 0 {
		return
	}
	// Move velocity toward targetVel bounded by maxAcc, then integrate position.
	dv := v.targetVel - v.vel
	maxDelta := v.maxAcc * dt
	if dv > maxDelta {
		dv = maxDelta
	} else if dv < -maxDelta {
		dv = -maxDelta
	}
	v.vel += dv
	v.pos += v.vel * dt
}

func (v *VirtualMotor) SetPos(ctx context.Context, pos float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkOpen(); err != nil {
		return err
	}
	v.tick()
	v.pos = pos
	v.vel = 0
	v.targetVel = 0
	return nil
}

func (v *VirtualMotor) SetVel(ctx context.Context, vel float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkOpen(); err != nil {
		return err
	}
	v.tick()
	v.targetVel = vel
	return nil
}

func (v *VirtualMotor) Stop(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tick()
	v.targetVel = 0
	v.vel = 0
	return nil
}

func (v *VirtualMotor) Interrupt(ctx context.Context) error {
	return v.Stop(ctx)
}

func (v *VirtualMotor) ReadPos(ctx context.Context) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkOpen(); err != nil {
		return 0, err
	}
	v.tick()
	return v.pos, nil
}

func (v *VirtualMotor) ReadVel(ctx context.Context) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkOpen(); err != nil {
		return 0, err
	}
	v.tick()
	return v.vel, nil
}

// RunProgram on a VirtualMotor accepts the same textual scripts the real
// transports do (e.g. "cover(1);", "roofseek(1);") purely to drive a
// scripted progress sequence: success is queued immediately, there is no
// real hardware to wait on.
func (v *VirtualMotor) RunProgram(ctx context.Context, program string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.program = []string{"50: running", "0: done"}
	v.programIndex = 0
	return nil
}

func (v *VirtualMotor) IsReady(ctx context.Context) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.programIndex < len(v.program), nil
}

func (v *VirtualMotor) ReadLine(ctx context.Context) (string, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.programIndex >= len(v.program) {
		return "", false, nil
	}
	line := v.program[v.programIndex]
	v.programIndex++
	return line, true, nil
}

// UploadTrack receives the sample list directly rather than an encoded
// etrack/mtrack wire command.
func (v *VirtualMotor) UploadTrack(origin time.Time, samples []TrackSample) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.trackOrig = origin
	v.track = samples
}

// ClockMS returns the controller-local clock in milliseconds since the
// last tracking-profile origin, the virtual analogue of reading the
// controller's free-running clock register during a tracking cycle.
func (v *VirtualMotor) ClockMS() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.trackOrig.IsZero() {
		return 0
	}
	return time.Since(v.trackOrig).Milliseconds()
}
