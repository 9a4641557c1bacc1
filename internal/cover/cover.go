// Package cover implements the mirror-cover primitive:
// a single controller-side `cover(1|0)` command with a 30s timeout,
// using the same progress-code protocol as the dome's shutter.
package cover

import (
	"context"
	"time"

	"github.com/jmhannon/rigel-master/internal/fifoproto"
	"github.com/jmhannon/rigel-master/internal/motortransport"
)

// Timeout is the mirror-cover command's deadline.
const Timeout = 30 * time.Second

// State is the mirror cover's coarse open/closed/moving status.
type State int

const (
	Unknown State = iota
	Open
	Closed
	Moving
)

// SafetyCheck lets a caller veto OpenCover, e.g. filterwheel.Wheel's
// IsSafeForCover.
type SafetyCheck func() bool

// Cover owns the mirror-cover primitive's single axis.
type Cover struct {
	Port motortransport.Port

	State State

	moving   bool
	opening  bool
	deadline time.Time
}

// New returns a Cover in the Unknown state; the first Open/Close call
// establishes State.
func New(port motortransport.Port) *Cover {
	return &Cover{Port: port, State: Unknown}
}

// Open runs `cover(1);`, refusing if safe reports false.
func (c *Cover) Open(safe SafetyCheck) fifoproto.Response {
	if safe != nil && !safe() {
		return fifoproto.Fail(-1, "not safe to open cover")
	}
	return c.run(true)
}

// Close runs `cover(0);`.
func (c *Cover) Close() fifoproto.Response {
	return c.run(false)
}

func (c *Cover) run(open bool) fifoproto.Response {
	if c.Port == nil {
		return fifoproto.Fail(-2, "cover primitive not present")
	}
	arg := 0
	if open {
		arg = 1
	}
	c.opening = open
	c.moving = true
	c.State = Moving
	c.deadline = time.Now().Add(Timeout)
	_ = c.Port.RunProgram(context.Background(), coverProgram(arg))
	return fifoproto.Progress(1, "cover moving")
}

func coverProgram(arg int) string {
	if arg == 1 {
		return "cover(1);"
	}
	return "cover(0);"
}

// Step advances an in-flight cover move by one poll tick.
func (c *Cover) Step() []fifoproto.Response {
	if !c.moving || c.Port == nil {
		return nil
	}
	if time.Now().After(c.deadline) {
		c.moving = false
		c.State = Unknown
		verb := "close"
		if c.opening {
			verb = "open"
		}
		return []fifoproto.Response{fifoproto.Fail(-3, verb + " cover timed out")}
	}
	ctx := context.Background()
	ready, err := c.Port.IsReady(ctx)
	if err != nil {
		c.moving = false
		return []fifoproto.Response{fifoproto.Fail(-4, err.Error())}
	}
	if !ready {
		return nil
	}
	line, _, _ := c.Port.ReadLine(ctx)
	p := motortransport.ParseProgress(line)
	switch p.Kind {
	case motortransport.ProgressSuccess:
		c.moving = false
		if c.opening {
			c.State = Open
		} else {
			c.State = Closed
		}
		return []fifoproto.Response{fifoproto.Success("cover complete")}
	case motortransport.ProgressError:
		c.moving = false
		c.State = Unknown
		return []fifoproto.Response{fifoproto.Fail(p.Code, "cover failed: "+p.Text)}
	default:
		return []fifoproto.Response{fifoproto.Progress(p.Code, p.Text)}
	}
}
