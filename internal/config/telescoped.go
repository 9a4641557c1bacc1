package config

// AxisCfg is the per-axis block repeated for H(our angle), D(eclination)
// and R(otator) in telescoped.cfg.
type AxisCfg struct {
	Have     bool    `json:"have"`
	Axis     int     `json:"axis"`
	HomeLow  bool    `json:"home_low"`
	PosSide  bool    `json:"pos_side"`
	EStep    int32   `json:"estep"`
	ESign    int8    `json:"esign"`
	MaxVel   float64 `json:"max_vel"`
	MaxAcc   float64 `json:"max_acc"`
	SlimAcc  float64 `json:"slim_acc"`
}

// TelescopedConfig corresponds to telescoped.cfg: per-axis motion limits
// plus the tracking/guiding constants shared by every mount command.
type TelescopedConfig struct {
	H AxisCfg `json:"h"`
	D AxisCfg `json:"d"`
	R AxisCfg `json:"r"`

	TrackInt  float64 `json:"track_int"`  // seconds covered by one tracking profile (TRACKINT)
	TrackAcc  float64 `json:"track_acc"`  // radians; HUNTING/TRACKING boundary
	FGuideVel float64 `json:"fguide_vel"` // fine-guide velocity, rad/s
	CGuideVel float64 `json:"cguide_vel"` // coarse-guide velocity, rad/s

	GermEq  bool `json:"germ_eq"`
	ZenFlip bool `json:"zen_flip"`
}

// DefaultTelescopedConfig returns the conservative defaults used when a
// deployment hasn't yet been commissioned.
func DefaultTelescopedConfig() TelescopedConfig {
	return TelescopedConfig{
		H: AxisCfg{Have: true, Axis: 0, EStep: 8000000, ESign: 1, MaxVel: 0.035, MaxAcc: 0.01, SlimAcc: 0.005},
		D: AxisCfg{Have: true, Axis: 1, EStep: 8000000, ESign: 1, MaxVel: 0.035, MaxAcc: 0.01, SlimAcc: 0.005},
		R: AxisCfg{Have: false, Axis: 2, EStep: 4000000, ESign: 1, MaxVel: 0.2, MaxAcc: 0.05, SlimAcc: 0.02},

		TrackInt:  60,
		TrackAcc:  1.5 * (2 * 3.141592653589793 / 8000000),
		FGuideVel: 2.0e-5,
		CGuideVel: 2.0e-4,
	}
}

// LoadTelescopedConfig reads telescoped.cfg-equivalent JSON from path.
func LoadTelescopedConfig(path string) (TelescopedConfig, error) {
	cfg := DefaultTelescopedConfig()
	if err := loadJSON(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
