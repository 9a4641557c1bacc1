package teltypes

// TelAxes holds the pointing-model parameters persisted across runs in
// home.cfg: polar misalignment, non-perpendicularity, cross-axis offsets,
// rotator zero, and mount topology flags. Sign conventions here must be
// preserved exactly between runs; pointing models are persisted.
type TelAxes struct {
	HT float64 // polar-axis misalignment, hour-angle component (rad)
	DT float64 // polar-axis misalignment, declination component (rad)

	NP float64 // non-perpendicularity of the HA/Dec axes (rad)
	XP float64 // cross-axis offset (rad)
	YC float64 // cross-axis offset (rad)

	R0 float64 // field-rotator zero point (rad)

	GermEq     bool // German equatorial mount (meridian flip applies)
	GermEqFlip bool // currently on the "flipped" pier side
	ZenFlip    bool // flip tube orientation near zenith

	HANegLim float64 // HA axis limits, persisted alongside the mount limits
	HAPosLim float64

	LargeXP bool // XP correction large enough to need the extended model
}
