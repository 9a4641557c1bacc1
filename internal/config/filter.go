package config

import "fmt"

// FilterPoint is one entry of a filter's temperature-focus table
// (filter.cfg): a two-point linear model used when OnOFocusTempDat is
// set, interpolated as f0 + (T-T0)*(f1-f0)/(T1-T0).
type FilterPoint struct {
	Name string  `json:"name"`
	F0   float64 `json:"f0"`
	T0   float64 `json:"t0"`
	F1   float64 `json:"f1"`
	T1   float64 `json:"t1"`
}

// Interp returns the focus position in micrometers for temperature t.
func (p FilterPoint) Interp(t float64) float64 {
	if p.T1 == p.T0 {
		return p.F0
	}
	return p.F0 + (t-p.T0)*(p.F1-p.F0)/(p.T1-p.T0)
}

// FilterConfig corresponds to filter.cfg: the filter wheel's slot table,
// each slot carrying the per-temperature focus model consumed by
// internal/focus's auto-focus algorithm.
type FilterConfig struct {
	Slots []FilterPoint `json:"slots"`
}

// DefaultFilterConfig returns an empty slot table.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{}
}

// LoadFilterConfig reads filter.cfg-equivalent JSON from path.
func LoadFilterConfig(path string) (FilterConfig, error) {
	cfg := DefaultFilterConfig()
	if err := loadJSON(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ByName returns the slot for a filter name.
func (c FilterConfig) ByName(name string) (FilterPoint, error) {
	for _, s := range c.Slots {
		if s.Name == name {
			return s, nil
		}
	}
	return FilterPoint{}, fmt.Errorf("filter %q not found in filter.cfg", name)
}
