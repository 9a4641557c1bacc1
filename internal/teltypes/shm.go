package teltypes

import "time"

// WxStats mirrors the auxiliary weather feed's published alert: a flag
// plus the timestamp it was last updated. The feed itself is an external
// process; this is just the part of its output the dome and mount state
// machines read.
type WxStats struct {
	Alert   bool
	UpdTime time.Time

	AmbientTempC float64
	WindSpeedMPS float64

	AuxSensors map[string]float64 // named focus-temperature sensors, highest priority first by key order in config
}

// TelStatShm is the single aggregate publication record: the process-wide
// status that the daemon exclusively writes and that observers (UI, queue
// processes) read. Field additions must stay append-only; see
// internal/telshm for the versioned-header wrapper that makes torn
// reads detectable.
type TelStatShm struct {
	Now Now
	Obj Obj

	Motors [AxisNAxes]MotorInfo
	Axes   TelAxes
	Scan   Scan
	Wx     WxStats

	TelState     TelState
	DomeState    DomeState
	ShutterState ShutterState
	CamState     CamState
	FilterState  FilterState

	// Cooked (actual, current) coordinates.
	CAlt, CAz     float64
	CARA, CADec   float64
	CAHA          float64
	CJ2kRA, CJ2kDec float64
	CPA           float64 // parallactic angle

	// Desired (target) coordinates, same frame layout as the cooked set.
	DAlt, DAz       float64
	DARA, DADec     float64
	DAHA            float64
	DJ2kRA, DJ2kDec float64
	DPA             float64

	// Tracking/jog offsets, in radians.
	MdHA, MdDec float64 // manual (paddle) offset
	JdHA, JdDec float64 // tracking-profile offset

	AutoDome  bool
	AutoFocus bool

	// The legacy jogging_ison flag conflated "tracking offset applied"
	// with "user is paddling"; these are the two real flags, with
	// JoggingIsOn kept as the derived compatibility view.
	TrackingOffsetApplied bool
	PaddleActive          bool

	DomeAz float64 // current dome azimuth, radians

	Seq uint64 // monotonically increasing publish sequence, see internal/telshm
}

// JoggingIsOn is the derived compatibility flag kept for readers that
// still expect the combined view.
func (s *TelStatShm) JoggingIsOn() bool {
	return s.TrackingOffsetApplied || s.PaddleActive
}
