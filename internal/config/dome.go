package config

// DomeConfig corresponds to dome.cfg: dome/shutter presence, timing,
// geometry offsets and the shutter-power-azimuth gating parameters.
type DomeConfig struct {
	DomeHave bool    `json:"dome_have"`
	Axis     int     `json:"axis"`
	To       float64 `json:"to"`   // DOMETO, seconds
	Tol      float64 `json:"tol"`  // DOMETOL, radians
	Zero     float64 `json:"zero"` // DOMEZERO, radians
	Step     int32   `json:"step"` // counts/rev
	Sign     int8    `json:"sign"` // ±1

	ShutterHave   bool    `json:"shutter_have"`
	ShutterTo     float64 `json:"shutter_to"`      // seconds
	ShutterAz     float64 `json:"shutter_az"`      // radians; 0 disables gating
	ShutterAzTol  float64 `json:"shutter_az_tol"`  // radians; 0 disables gating

	MotorOnly bool `json:"motor_only"` // use mpos/msteps instead of epos/esteps

	OffsetNorth    float64 `json:"offset_north"`
	OffsetEast     float64 `json:"offset_east"`
	OffsetHeight   float64 `json:"offset_height"`
	OffsetOptical  float64 `json:"offset_optical"`
	Radius         float64 `json:"radius"`
}

// DefaultDomeConfig returns defaults with no shutter-azimuth gating.
func DefaultDomeConfig() DomeConfig {
	return DomeConfig{
		Sign: 1,
		To:   120,
		Tol:  0.02,
	}
}

// LoadDomeConfig reads dome.cfg-equivalent JSON from path.
func LoadDomeConfig(path string) (DomeConfig, error) {
	cfg := DefaultDomeConfig()
	if err := loadJSON(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// GatesShutter reports whether shutter-power-azimuth gating is enabled;
// zero for both values disables alignment-gating of the shutter.
func (c DomeConfig) GatesShutter() bool {
	return c.ShutterAz != 0 || c.ShutterAzTol != 0
}
