package config

// FocusConfig corresponds to focus.cfg: the focuser axis parameters plus
// the auto-focus tuning constants consumed by internal/focus.
type FocusConfig struct {
	Have    bool    `json:"have"`
	Axis    int     `json:"axis"`
	Step    int32   `json:"step"`
	Sign    int8    `json:"sign"`
	MaxVel  float64 `json:"max_vel"`
	MaxAcc  float64 `json:"max_acc"`
	SlimAcc float64 `json:"slim_acc"`
	Scale   float64 `json:"scale"` // micrometers per radian (OSCALE)
	JogF    float64 `json:"jog_f"` // jog velocity fraction of MaxVel

	HaveEnc bool  `json:"have_enc"`
	EStep   int32 `json:"estep"`
	ESign   int8  `json:"esign"`

	UseTempFoc bool `json:"use_temp_foc"`
	SharedNode bool `json:"shared_node"` // OSHAREDNODE: focuser shares the dome's controller node
	FliFocus   bool `json:"fli_focus"`   // drive the focuser through the FLI vendor SDK instead of CSI

	OnOFocusTempDat bool `json:"on_o_focus_temp_dat"` // use filter.cfg's two-point linear form, ignoring the FocusTemp.dat table

	MaxInterp float64 `json:"max_interp"` // micrometers; reject interpolations larger than this as bogus
	MinAFDT   float64 `json:"min_afdt"`   // degrees C; skip refocus if |ΔT| below this and filter/offset unchanged
}

// DefaultFocusConfig returns conservative defaults.
func DefaultFocusConfig() FocusConfig {
	return FocusConfig{
		Sign:      1,
		ESign:     1,
		JogF:      0.25,
		MaxInterp: 5000,
		MinAFDT:   0.5,
	}
}

// LoadFocusConfig reads focus.cfg-equivalent JSON from path.
func LoadFocusConfig(path string) (FocusConfig, error) {
	cfg := DefaultFocusConfig()
	if err := loadJSON(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
