// Package daemon wires the device state machines, the fifo command
// plane, and the shared-state publisher into the single cooperative
// poll loop, and provides the process-lifetime plumbing (the named-pipe
// fifos, a single-instance lock, an optional announcer hook) cmd/scoped
// needs around it. Signal handling lives in cmd/scoped, which ignores
// SIGPIPE so a reader closing a fifo early never kills the daemon.
package daemon

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmhannon/rigel-master/internal/config"
	"github.com/jmhannon/rigel-master/internal/cover"
	"github.com/jmhannon/rigel-master/internal/dome"
	"github.com/jmhannon/rigel-master/internal/fifocmd"
	"github.com/jmhannon/rigel-master/internal/fifoproto"
	"github.com/jmhannon/rigel-master/internal/filterwheel"
	"github.com/jmhannon/rigel-master/internal/focus"
	"github.com/jmhannon/rigel-master/internal/mount"
	"github.com/jmhannon/rigel-master/internal/ratelimit"
	"github.com/jmhannon/rigel-master/internal/telshm"
	"github.com/jmhannon/rigel-master/internal/teltypes"
)

// Announcer is the optional text-to-speech hook for major transitions.
// Not wired to any real speech engine; a no-op by default, pluggable by
// a deployment that wants one.
type Announcer interface {
	Announce(text string)
}

// NoopAnnouncer discards every announcement.
type NoopAnnouncer struct{}

func (NoopAnnouncer) Announce(string) {}

// CommandSource delivers one device's incoming fifo lines. Production
// wiring reads a named pipe; tests feed a channel directly.
type CommandSource interface {
	Lines() <-chan string
}

// ChanSource is the channel-backed CommandSource used by tests; the
// production fifos are *Fifo values.
type ChanSource chan string

func (c ChanSource) Lines() <-chan string { return c }

// Daemon owns every device, the fifo command sources, and the shared
// status publisher, and runs the single cooperative poll loop.
type Daemon struct {
	Cfg config.Config

	Mount  *mount.Mount
	Dome   *dome.Dome
	Focus  *focus.Focus
	Wheel  *filterwheel.Wheel
	Cover  *cover.Cover

	Publisher *telshm.Publisher
	Announcer Announcer

	TelCmds   CommandSource
	DomeCmds  CommandSource
	FocusCmds CommandSource

	// Per-device ingestion caps; nil disables limiting for that device.
	TelLimit   *ratelimit.Limiter
	DomeLimit  *ratelimit.Limiter
	FocusLimit *ratelimit.Limiter

	PollInterval time.Duration

	Wx teltypes.WxStats

	telOut   func(fifoproto.Response)
	domeOut  func(fifoproto.Response)
	focusOut func(fifoproto.Response)

	adminCh chan adminCmd
}

// adminCmd is one out-of-band command injected by the HTTP admin
// surface, dispatched on the next tick exactly like a fifo line.
type adminCmd struct {
	device string
	line   string
}

// New returns a Daemon with a default 100ms poll interval and a
// no-op Announcer; callers set TelOut/DomeOut/FocusOut via SetOutputs
// before calling Run.
func New(cfg config.Config, pub *telshm.Publisher) *Daemon {
	return &Daemon{
		Cfg:          cfg,
		Publisher:    pub,
		Announcer:    NoopAnnouncer{},
		PollInterval: 100 * time.Millisecond,
		telOut:       func(fifoproto.Response) {},
		domeOut:      func(fifoproto.Response) {},
		focusOut:     func(fifoproto.Response) {},
		adminCh:      make(chan adminCmd, 8),
	}
}

// Submit injects one command line as if it had arrived on the named
// device's fifo ("tel", "dome" or "focus"). It never blocks; a full
// admin queue is an error the caller reports upstream.
func (d *Daemon) Submit(device, line string) error {
	switch device {
	case "tel", "dome", "focus":
	default:
		return fmt.Errorf("unknown device %q", device)
	}
	select {
	case d.adminCh <- adminCmd{device: device, line: line}:
		return nil
	default:
		return fmt.Errorf("admin command queue full")
	}
}

// SetOutputs wires the per-device response sinks (e.g. a fifo writer,
// or a fifoproto.Sink in tests).
func (d *Daemon) SetOutputs(tel, dm, fc func(fifoproto.Response)) {
	d.telOut, d.domeOut, d.focusOut = tel, dm, fc
}

// Run executes the cooperative poll loop until ctx is cancelled. Each
// tick: drain any pending fifo commands (non-blocking), propagate a
// weather alert to the dome if one is active, step every device once,
// and publish a fresh status snapshot.
func (d *Daemon) Run(ctx context.Context) {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("daemon: context cancelled, stopping poll loop")
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

func (d *Daemon) tick() {
	d.drainCommands()

	now := teltypes.NowFromTime(time.Now(),
		degToRad(d.Cfg.Site.Longitude), degToRad(d.Cfg.Site.Latitude),
		d.Cfg.Site.Elevation, d.Cfg.Site.Temperature, d.Cfg.Site.Pressure)

	if d.Wx.Alert && d.Dome != nil {
		d.Dome.WxAlert()
	}

	if d.Mount != nil {
		for _, r := range d.Mount.Step(now) {
			d.telOut(r)
		}
	}
	var ha, dec float64
	if d.Mount != nil {
		if mi, ok := d.Mount.Motors[teltypes.AxisHA]; ok {
			ha = mi.CPos
		}
		if mi, ok := d.Mount.Motors[teltypes.AxisDec]; ok {
			dec = mi.CPos
		}
	}
	if d.Dome != nil {
		if d.Mount != nil {
			d.Dome.TelState = d.Mount.State
		}
		for _, r := range d.Dome.Step(now, ha, dec) {
			d.domeOut(r)
		}
	}
	if d.Focus != nil {
		filterName := ""
		if d.Wheel != nil {
			filterName = d.Wheel.Current
		}
		for _, r := range d.Focus.Step(now, filterName) {
			d.focusOut(r)
		}
	}
	if d.Wheel != nil {
		d.Wheel.Step()
	}
	if d.Cover != nil {
		d.Cover.Step()
	}

	d.publish(now)
}

func (d *Daemon) drainCommands() {
	for drained := false; !drained; {
		select {
		case cmd := <-d.adminCh:
			switch cmd.device {
			case "tel":
				if d.Mount != nil {
					d.telOut(d.Mount.Dispatch(fifocmd.ParseTel(cmd.line)))
				}
			case "dome":
				if d.Dome != nil {
					d.domeOut(d.Dome.Dispatch(fifocmd.ParseDome(cmd.line)))
				}
			case "focus":
				if d.Focus != nil {
					d.focusOut(d.Focus.Dispatch(fifocmd.ParseFocus(cmd.line)))
				}
			}
		default:
			drained = true
		}
	}

	if d.TelCmds != nil && d.Mount != nil {
		for drained := false; !drained; {
			select {
			case line, ok := <-d.TelCmds.Lines():
				if !ok {
					d.TelCmds = nil
					drained = true
					break
				}
				if d.TelLimit != nil && !d.TelLimit.Allow() {
					d.telOut(fifoproto.Fail(-8, "command rate limit exceeded"))
					break
				}
				d.telOut(d.Mount.Dispatch(fifocmd.ParseTel(line)))
			default:
				drained = true
			}
		}
	}
	if d.DomeCmds != nil && d.Dome != nil {
		for drained := false; !drained; {
			select {
			case line, ok := <-d.DomeCmds.Lines():
				if !ok {
					d.DomeCmds = nil
					drained = true
					break
				}
				if d.DomeLimit != nil && !d.DomeLimit.Allow() {
					d.domeOut(fifoproto.Fail(-8, "command rate limit exceeded"))
					break
				}
				d.domeOut(d.Dome.Dispatch(fifocmd.ParseDome(line)))
			default:
				drained = true
			}
		}
	}
	if d.FocusCmds != nil && d.Focus != nil {
		for drained := false; !drained; {
			select {
			case line, ok := <-d.FocusCmds.Lines():
				if !ok {
					d.FocusCmds = nil
					drained = true
					break
				}
				if d.FocusLimit != nil && !d.FocusLimit.Allow() {
					d.focusOut(fifoproto.Fail(-8, "command rate limit exceeded"))
					break
				}
				d.focusOut(d.Focus.Dispatch(fifocmd.ParseFocus(line)))
			default:
				drained = true
			}
		}
	}
}

// publish assembles a TelStatShm snapshot from every device's current
// state and hands it to the Publisher, the single point where the
// daemon's many small pieces of mutable state become one published
// record.
func (d *Daemon) publish(now teltypes.Now) {
	var status teltypes.TelStatShm
	status.Now = now
	status.Wx = d.Wx

	if d.Mount != nil {
		status.Axes = d.Mount.Axes
		status.TelState = d.Mount.State
		for axis, mi := range d.Mount.Motors {
			if int(axis) < len(status.Motors) {
				status.Motors[axis] = *mi
			}
		}
		c := d.Mount.Cooked()
		status.CAlt, status.CAz = c.CAlt, c.CAz
		status.CAHA, status.CADec = c.CAHA, c.CADec
		status.CJ2kRA, status.CJ2kDec = c.CJ2kRA, c.CJ2kDec
		status.CPA = c.CPA
		status.TrackingOffsetApplied = d.Mount.TrackingOffsetApplied()
		status.PaddleActive = d.Mount.PaddleActive()
		status.JdHA, status.JdDec = d.Mount.TrackingOffsets()
	}
	if d.Dome != nil {
		status.DomeState = d.Dome.State
		status.ShutterState = d.Dome.ShutterState
		status.DomeAz = d.Dome.CurrentAz
		status.AutoDome = d.Dome.Auto
	}
	if d.Focus != nil {
		status.AutoFocus = d.Focus.IsAuto()
	}
	if d.Wheel != nil {
		status.FilterState = d.Wheel.State
	}

	d.Publisher.Publish(status)
}

func degToRad(deg float64) float64 {
	const piOver180 = 3.14159265358979323846 / 180.0
	return deg * piOver180
}
