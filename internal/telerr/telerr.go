// Package telerr defines the daemon's error taxonomy: typed error
// kinds, each documented as recoverable-by-retry, fatal-at-startup, or
// cancelling the active function with a negative fifo response code.
// The mount path (kinematics, trackprofile, mount) constructs
// LimitViolation, NotHomedError and ClockDriftError; the other kinds
// are not produced by any package in this module.
package telerr

import "fmt"

// ConfigError marks a missing/invalid config entry or an out-of-range
// value detected at startup. Fatal: the caller should log and exit(1).
type ConfigError struct {
	File  string
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s: %s", e.File, e.Field, e.Msg)
}

// IsConfigError reports whether err is a *ConfigError.
func IsConfigError(err error) (*ConfigError, bool) {
	ce, ok := err.(*ConfigError)
	return ce, ok
}

// TransportError marks a read/write failure on a motor-controller
// channel. Recoverable: retried at the next poll up to the operation's
// timeout.
type TransportError struct {
	Device string
	Op     string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport %s: %v", e.Device, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError marks an operation (DOMETO, SHUTTERTO, a motion) that
// exceeded its allotted time. The active function aborts, emits a
// progress code <= 0, and returns to idle.
type TimeoutError struct {
	Device string
	Op     string
	After  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s timed out after %s", e.Device, e.Op, e.After)
}

// LimitViolation marks a computed or commanded position outside
// [NegLim, PosLim] after optional wrap.
type LimitViolation struct {
	Axis  fmt.Stringer
	Value float64
	Which string // "positive" or "negative"
}

func (e *LimitViolation) Error() string {
	return fmt.Sprintf("axis %s hits %s limit at %g", e.Axis, e.Which, e.Value)
}

// NotHomedError marks motion requested on an axis that has not completed
// homing.
type NotHomedError struct {
	Axis fmt.Stringer
}

func (e *NotHomedError) Error() string {
	return fmt.Sprintf("axis %s is not homed", e.Axis)
}

// ClockDriftError marks a host-vs-controller clock jitter beyond
// MAXJITTER during a tracking cycle.
type ClockDriftError struct {
	DriftSeconds float64
	MaxSeconds   float64
}

func (e *ClockDriftError) Error() string {
	return fmt.Sprintf("controller clock drift %.2fs exceeds max %.2fs", e.DriftSeconds, e.MaxSeconds)
}

// ScriptError marks a controller-returned negative progress code.
type ScriptError struct {
	Device string
	Code   int
	Text   string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s script error %d: %s", e.Device, e.Code, e.Text)
}

// WxAlert is not an error in the strict sense but pre-empts motion with
// fifo progress code 9 and initiates a shutter close.
type WxAlert struct {
	Message string
}

func (e *WxAlert) Error() string {
	return fmt.Sprintf("weather alert: %s", e.Message)
}

// ProgressCode is the fifo response code convention: negative
// is fatal, zero is completion, positive is intermediate progress.
const (
	ProgressWxAlert = 9
)
