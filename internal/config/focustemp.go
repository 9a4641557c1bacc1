package config

import (
	"sort"

	"gonum.org/v1/gonum/interp"
)

// FocusTempPoint is one commissioned (temperature, focus) sample for a
// filter.
type FocusTempPoint struct {
	TempC   float64 `json:"temp_c"`
	FocusUM float64 `json:"focus_um"`
}

// FocusTempTable corresponds to FocusTemp.dat: optional tabulated focus
// positions per filter and temperature. When present it supersedes the
// two-point linear model in filter.cfg; the focuser falls back to the
// two-point form for any filter the table does not cover.
type FocusTempTable struct {
	Filters map[string][]FocusTempPoint `json:"filters"`
}

// DefaultFocusTempTable returns an empty table.
func DefaultFocusTempTable() FocusTempTable {
	return FocusTempTable{}
}

// LoadFocusTempTable reads the FocusTemp.dat-equivalent JSON from path.
func LoadFocusTempTable(path string) (FocusTempTable, error) {
	tab := DefaultFocusTempTable()
	if err := loadJSON(path, &tab); err != nil {
		return tab, err
	}
	return tab, nil
}

// Interp returns the piecewise-linear focus position in micrometers for
// the filter at temperature t, clamped to the commissioned temperature
// range. ok is false when the table has no usable entry for the filter.
func (tab FocusTempTable) Interp(filter string, t float64) (um float64, ok bool) {
	points := append([]FocusTempPoint(nil), tab.Filters[filter]...)
	if len(points) == 0 {
		return 0, false
	}
	if len(points) == 1 {
		return points[0].FocusUM, true
	}

	sort.Slice(points, func(i, j int) bool { return points[i].TempC < points[j].TempC })

	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		// Fit requires strictly increasing xs; a duplicated commissioning
		// temperature keeps only the last sample.
		if n := len(xs); n > 0 && p.TempC == xs[n-1] {
			ys[n-1] = p.FocusUM
			continue
		}
		xs = append(xs, p.TempC)
		ys = append(ys, p.FocusUM)
	}
	if len(xs) == 1 {
		return ys[0], true
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return 0, false
	}

	if t < xs[0] {
		t = xs[0]
	}
	if t > xs[len(xs)-1] {
		t = xs[len(xs)-1]
	}
	return pl.Predict(t), true
}
