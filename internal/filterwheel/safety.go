package filterwheel

// SafetyCheck reports whether it is currently safe to open the mirror
// cover given the wheel's state -- e.g. refusing while a selection is
// in flight. The camera's own dark-field interlock lives with the
// exposure pipeline in another process; this predicate is the only
// wheel-side check the cover path needs.
type SafetyCheck func() bool

// IsSafeForCover is the wheel side of the camera shutter-safety
// interlock: refuse OpenCover while the wheel is
// mid-selection, since an indeterminate filter position during cover
// opening risks light leaking past an unseated filter.
func (w *Wheel) IsSafeForCover() bool {
	return !w.selecting && !w.homing
}
