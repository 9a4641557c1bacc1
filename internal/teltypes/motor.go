// Package teltypes holds the data model shared by every device state
// machine and published through the shared-state record: per-motor
// info, the pointing-model parameters, the site/time context, and the
// target description.
package teltypes

import (
	"fmt"
	"math"
)

// Axis identifies a controllable axis.
type Axis int

const (
	AxisHA Axis = iota // hour angle / RA axis
	AxisDec
	AxisRot // field rotator, optional
	AxisFocus
	AxisDome
	AxisNAxes
)

func (a Axis) String() string {
	switch a {
	case AxisHA:
		return "H"
	case AxisDec:
		return "D"
	case AxisRot:
		return "R"
	case AxisFocus:
		return "O"
	case AxisDome:
		return "Dome"
	default:
		return "?"
	}
}

// MotorInfo describes one controllable motor: its raw encoder state, its
// cooked position in the axis's own radian frame, its commanded targets,
// and the limits/flags the state machines consult before every motion.
//
// Invariants; Validate below checks the first two, and nothing
// enforces them when fields are assigned:
//
//	|Sign| = |ESign| = 1
//	NegLim < PosLim
//	IsHomed ⇒ CPos is meaningful in the axis frame
type MotorInfo struct {
	Axis Axis

	Have        bool // this motor is physically present
	HaveEncoder bool

	StepsPerRev  int32 // step-count per revolution (non-encoded axes)
	EncStepsPerRev int32 // encoder step-count per revolution

	Sign  int8 // ±1: step-space to radian-space sign
	ESign int8 // ±1: encoder-space to radian-space sign

	NegLim float64 // radians from home, lower bound
	PosLim float64 // radians from home, upper bound

	MaxVel  float64 // rad/s
	MaxAcc  float64 // rad/s^2
	SlimAcc float64 // acceleration used while searching for a limit

	RawEnc int32   // current raw encoder count
	CPos   float64 // current cooked position, radians
	DPos   float64 // desired position, radians
	CVel   float64 // current velocity, rad/s

	HomeLow bool // home switch trips approaching from the negative side
	PosSide bool // homing moves toward the positive limit first

	IsHomed  bool
	Homing   bool
	Limiting bool

	Damping    float64
	OptScale   float64 // micrometers per radian, focus axis only
}

// NewMotorInfo returns a MotorInfo with signs defaulted to +1 and both
// limits left at zero for the caller's config to set.
func NewMotorInfo(axis Axis) *MotorInfo {
	return &MotorInfo{
		Axis:  axis,
		Sign:  1,
		ESign: 1,
	}
}

// Validate checks the struct invariants.
func (m *MotorInfo) Validate() error {
	if m.Sign != 1 && m.Sign != -1 {
		return fmt.Errorf("motor %s: sign must be ±1, got %d", m.Axis, m.Sign)
	}
	if m.ESign != 1 && m.ESign != -1 {
		return fmt.Errorf("motor %s: esign must be ±1, got %d", m.Axis, m.ESign)
	}
	if m.NegLim >= m.PosLim {
		return fmt.Errorf("motor %s: neglim (%g) must be < poslim (%g)", m.Axis, m.NegLim, m.PosLim)
	}
	return nil
}

// CookFromRaw recomputes CPos from the raw encoder or step count:
// 2π·esign·raw/estep when encoded, else via step/sign.
func (m *MotorInfo) CookFromRaw() {
	if m.HaveEncoder && m.EncStepsPerRev != 0 {
		m.CPos = 2 * math.Pi * float64(m.ESign) * float64(m.RawEnc) / float64(m.EncStepsPerRev)
	} else if m.StepsPerRev != 0 {
		m.CPos = 2 * math.Pi * float64(m.Sign) * float64(m.RawEnc) / float64(m.StepsPerRev)
	}
}

// InLimits reports whether pos lies within [NegLim, PosLim].
func (m *MotorInfo) InLimits(pos float64) bool {
	return pos >= m.NegLim && pos <= m.PosLim
}
