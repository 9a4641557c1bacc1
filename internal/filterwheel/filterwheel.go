// Package filterwheel implements the filter wheel state machine:
// a uniform driver interface over CsiScripted/FLI
// backends exposing {reset, shutdown, home, select(index)}, with the
// FLI backend's periodic rehome-after-N-selections anti-drift rule.
package filterwheel

import (
	"context"
	"fmt"

	"github.com/jmhannon/rigel-master/internal/config"
	"github.com/jmhannon/rigel-master/internal/fifoproto"
	"github.com/jmhannon/rigel-master/internal/motortransport"
	"github.com/jmhannon/rigel-master/internal/teltypes"
)

// FLIRehomeAfterMoves is the FLI backend's drift-prevention interval:
// rehome after this many selections.
const FLIRehomeAfterMoves = 50

// Wheel owns the filter-wheel axis and its slot table.
type Wheel struct {
	Cfg   config.FilterConfig
	Port  motortransport.Port
	IsFLI bool

	State      teltypes.FilterState
	Current    string
	movesSinceHome int

	selecting    bool
	homing       bool
	pendingIndex int
}

// New returns an idle Wheel.
func New(cfg config.FilterConfig, port motortransport.Port, isFLI bool) *Wheel {
	state := teltypes.FilterAbsent
	if port != nil {
		state = teltypes.FilterIdle
	}
	return &Wheel{Cfg: cfg, Port: port, IsFLI: isFLI, State: state}
}

// Reset clears any in-flight selection and, for FLI backends, forces a
// rehome on the next Select.
func (w *Wheel) Reset() fifoproto.Response {
	w.selecting = false
	w.homing = false
	w.movesSinceHome = FLIRehomeAfterMoves
	return fifoproto.Success("filter wheel reset")
}

func (w *Wheel) Shutdown() fifoproto.Response {
	if w.Port != nil {
		_ = w.Port.Close()
	}
	return fifoproto.Success("filter wheel shut down")
}

func (w *Wheel) Home() fifoproto.Response {
	if w.Port == nil {
		return fifoproto.Fail(-1, "filter wheel not present")
	}
	w.homing = true
	w.State = teltypes.FilterMoving
	_ = w.Port.RunProgram(context.Background(), "filterhome();")
	return fifoproto.Progress(1, "filter wheel homing")
}

// Select moves to the slot named by name, rehoming first if this is an
// FLI backend that has reached its rehome interval.
func (w *Wheel) Select(name string) fifoproto.Response {
	if w.Port == nil {
		return fifoproto.Fail(-1, "filter wheel not present")
	}
	slot, err := w.Cfg.ByName(name)
	if err != nil {
		return fifoproto.Fail(-2, err.Error())
	}
	if w.IsFLI && w.movesSinceHome >= FLIRehomeAfterMoves {
		resp := w.Home()
		w.pendingIndex = w.indexOf(slot.Name)
		w.selecting = true
		return resp
	}
	return w.doSelect(slot.Name)
}

func (w *Wheel) indexOf(name string) int {
	for i, s := range w.Cfg.Slots {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func (w *Wheel) doSelect(name string) fifoproto.Response {
	idx := w.indexOf(name)
	if idx < 0 {
		return fifoproto.Fail(-2, fmt.Sprintf("filter %q not found", name))
	}
	w.selecting = true
	w.State = teltypes.FilterMoving
	_ = w.Port.RunProgram(context.Background(), fmt.Sprintf("filtersel(%d);", idx))
	return fifoproto.Progress(1, "filter wheel moving")
}

// Step advances any in-flight home or select by one poll tick.
func (w *Wheel) Step() []fifoproto.Response {
	if w.Port == nil {
		return nil
	}
	ctx := context.Background()
	ready, err := w.Port.IsReady(ctx)
	if err != nil {
		w.selecting = false
		w.homing = false
		w.State = teltypes.FilterIdle
		return []fifoproto.Response{fifoproto.Fail(-3, err.Error())}
	}
	if !ready {
		return nil
	}
	line, _, _ := w.Port.ReadLine(ctx)
	p := motortransport.ParseProgress(line)

	switch p.Kind {
	case motortransport.ProgressSuccess:
		if w.homing {
			w.homing = false
			w.movesSinceHome = 0
			if w.selecting && w.pendingIndex >= 0 && w.pendingIndex < len(w.Cfg.Slots) {
				return []fifoproto.Response{w.doSelect(w.Cfg.Slots[w.pendingIndex].Name)}
			}
			w.State = teltypes.FilterIdle
			return []fifoproto.Response{fifoproto.Success("filter wheel homed")}
		}
		w.selecting = false
		w.State = teltypes.FilterIdle
		w.movesSinceHome++
		return []fifoproto.Response{fifoproto.Success("filter selection complete")}
	case motortransport.ProgressError:
		w.selecting = false
		w.homing = false
		w.State = teltypes.FilterIdle
		return []fifoproto.Response{fifoproto.Fail(p.Code, "filter wheel failed: "+p.Text)}
	default:
		return []fifoproto.Response{fifoproto.Progress(p.Code, p.Text)}
	}
}
