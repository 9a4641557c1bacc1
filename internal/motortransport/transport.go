// Package motortransport models the polymorphic operation set every
// motor-controller variant shares: {open, close, set_pos,
// set_vel, stop, read_pos, read_vel, run_program, read_line, interrupt}.
// Three concrete variants implement Port: CsiNode (a real CSI-protocol
// controller node, reached over the serial transport), TtyDome (the
// vendor-specific dome TTY protocol), and VirtualMotor (a deterministic
// in-process simulation used in tests and in virtual-mode deployments).
//
// The wire bytes of the real CSI/TTY protocols belong to the vendor
// libraries; this package models the abstraction and its
// line-oriented progress-code framing, not a specific vendor's byte
// layout. The Port interface is the seam tests use to substitute
// VirtualMotor for real hardware.
package motortransport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Port is the uniform operation set every motor-controller variant
// implements. Every call is non-blocking beyond a short bounded I/O
// wait: all backend reads are non-destructive availability checks
// followed by a short bounded read.
type Port interface {
	Open(ctx context.Context) error
	Close() error

	SetPos(ctx context.Context, pos float64) error
	SetVel(ctx context.Context, vel float64) error
	Stop(ctx context.Context) error
	Interrupt(ctx context.Context) error

	ReadPos(ctx context.Context) (float64, error)
	ReadVel(ctx context.Context) (float64, error)

	// RunProgram submits a controller-side script (a CSI program line,
	// or the TTY dome protocol's textual command) and returns
	// immediately; progress is polled with ReadLine.
	RunProgram(ctx context.Context, program string) error

	// ReadLine performs one non-destructive availability check followed
	// by a short bounded read, returning "", false if nothing is ready
	// yet.
	ReadLine(ctx context.Context) (line string, ready bool, err error)

	// IsReady reports whether the controller has a response pending
	// without consuming it.
	IsReady(ctx context.Context) (bool, error)
}

// PortFactory creates a Port for a named controller node, the
// motor-transport analogue of serialmux.SerialPortFactory.
type PortFactory interface {
	Open(node string) (Port, error)
}

// Progress is the parsed form of a controller status line, the
// "N: ..." convention: N>0 is progress, N=0 is success, N<0 is error.
type Progress struct {
	Kind ProgressKind
	Code int
	Text string
}

// ProgressKind classifies a parsed Progress line.
type ProgressKind int

const (
	ProgressInvalid ProgressKind = iota
	ProgressInProgress
	ProgressSuccess
	ProgressError
)

// ParseProgress is the shared progress-code parser used by every device
// that polls controller status lines.
func ParseProgress(line string) Progress {
	line = strings.TrimSpace(line)
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return Progress{Kind: ProgressInvalid, Text: line}
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[:idx]))
	if err != nil {
		return Progress{Kind: ProgressInvalid, Text: line}
	}
	text := strings.TrimSpace(line[idx+1:])
	switch {
	case n > 0:
		return Progress{Kind: ProgressInProgress, Code: n, Text: text}
	case n == 0:
		return Progress{Kind: ProgressSuccess, Code: 0, Text: text}
	default:
		return Progress{Kind: ProgressError, Code: n, Text: text}
	}
}

// FifoResponseCode maps a Progress to the fifo response-code
// convention: negative fatal, zero completion, positive progress.
func (p Progress) FifoResponseCode() int {
	return p.Code
}

func (p Progress) String() string {
	return fmt.Sprintf("%d: %s", p.Code, p.Text)
}

// ClockReader is implemented by transports that expose the controller's
// free-running tracking clock, read during every tracking cycle to
// detect host-vs-controller drift.
type ClockReader interface {
	ClockMS() int64
}

// DefaultTimeout is the poll timeout NewTtyDome records for a TtyDome;
// no Port implementation in this package applies it to a read.
const DefaultTimeout = 1 * time.Millisecond
