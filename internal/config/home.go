package config

// HomeAxisLimits holds the discovered (not configured) position limits
// and step/sign persisted across runs once Limits completes for an axis.
type HomeAxisLimits struct {
	PosLim float64 `json:"pos_lim"`
	NegLim float64 `json:"neg_lim"`
}

// HomeConfig corresponds to home.cfg: discovered limits, motor
// step/sign, and the pointing model. Written back by the mount state
// machine's Limits command and read at every startup.
type HomeConfig struct {
	H HomeAxisLimits `json:"h"`
	D HomeAxisLimits `json:"d"`
	R HomeAxisLimits `json:"r"`

	HStep int32 `json:"h_step"`
	HSign int8  `json:"h_sign"`
	DStep int32 `json:"d_step"`
	DSign int8  `json:"d_sign"`

	// Pointing model, persisted across runs: sign
	// conventions here must never change independently of the mesh
	// correction math that consumes them.
	HT float64 `json:"ht"`
	DT float64 `json:"dt"`
	XP float64 `json:"xp"`
	YC float64 `json:"yc"`
	NP float64 `json:"np"`
	R0 float64 `json:"r0"`

	LargeXP bool `json:"large_xp"`
}

// DefaultHomeConfig returns a config with no discovered limits; every
// axis is effectively un-homed until Limits/Home run once.
func DefaultHomeConfig() HomeConfig {
	return HomeConfig{
		HSign: 1,
		DSign: 1,
	}
}

// LoadHomeConfig reads home.cfg-equivalent JSON from path.
func LoadHomeConfig(path string) (HomeConfig, error) {
	cfg := DefaultHomeConfig()
	if err := loadJSON(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save persists the (possibly just-discovered) limits and pointing model
// back to path; the file is rewritten after every successful Limits
// command.
func (c HomeConfig) Save(path string) error {
	return saveJSON(path, c)
}
