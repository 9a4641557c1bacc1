package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/jmhannon/rigel-master/internal/config"
	"github.com/jmhannon/rigel-master/internal/fifoproto"
	"github.com/jmhannon/rigel-master/internal/motortransport"
	"github.com/jmhannon/rigel-master/internal/mount"
	"github.com/jmhannon/rigel-master/internal/telshm"
	"github.com/jmhannon/rigel-master/internal/teltypes"
)

func newTestMount(t *testing.T) *mount.Mount {
	t.Helper()
	ha := teltypes.NewMotorInfo(teltypes.AxisHA)
	ha.Have, ha.IsHomed = true, true
	ha.NegLim, ha.PosLim, ha.MaxVel = -3, 3, 1
	dec := teltypes.NewMotorInfo(teltypes.AxisDec)
	dec.Have, dec.IsHomed = true, true
	dec.NegLim, dec.PosLim, dec.MaxVel = -1.5, 1.5, 1

	motors := map[teltypes.Axis]*teltypes.MotorInfo{teltypes.AxisHA: ha, teltypes.AxisDec: dec}
	ports := map[teltypes.Axis]motortransport.Port{
		teltypes.AxisHA:  motortransport.NewVirtualMotor(5),
		teltypes.AxisDec: motortransport.NewVirtualMotor(5),
	}
	for _, p := range ports {
		_ = p.Open(context.Background())
	}
	return mount.New(teltypes.Now{Latitude: 0.7}, teltypes.TelAxes{}, motors, ports, 0.02, 60, 0.1, 0.5)
}

func TestRunDispatchesTelCommandsAndPublishes(t *testing.T) {
	cfg := config.Config{Site: config.DefaultSiteConfig()}
	pub := telshm.New()
	d := New(cfg, pub)
	d.PollInterval = 10 * time.Millisecond
	d.Mount = newTestMount(t)

	var sink fifoproto.Sink
	d.SetOutputs(func(r fifoproto.Response) { _ = sink.WriteResponse(r) }, func(fifoproto.Response) {}, func(fifoproto.Response) {})

	telCmds := make(ChanSource, 4)
	d.TelCmds = telCmds
	telCmds <- "HA:0.1 Dec:0.2"

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	d.Run(ctx)

	if len(sink.Responses) == 0 {
		t.Fatalf("expected at least one response from the Tel command")
	}
	snap := pub.Snapshot()
	if snap.Header.Seq == 0 {
		t.Fatalf("expected Publish to have run at least once")
	}
}

func TestPublishSurfacesJogFlags(t *testing.T) {
	cfg := config.Config{Site: config.DefaultSiteConfig()}
	pub := telshm.New()
	d := New(cfg, pub)
	d.PollInterval = 10 * time.Millisecond
	d.Mount = newTestMount(t)

	d.Mount.State = teltypes.TelTracking
	if resp := d.Mount.Jog("N", 100); resp.Code != 0 {
		t.Fatalf("Jog = %+v, want success", resp)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	d.Run(ctx)

	status := pub.Snapshot().Status
	if !status.PaddleActive {
		t.Error("expected PaddleActive in the published record during a guide jog")
	}
	if !status.JoggingIsOn() {
		t.Error("expected the derived JoggingIsOn compatibility flag to be set")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := config.Config{Site: config.DefaultSiteConfig()}
	pub := telshm.New()
	d := New(cfg, pub)
	d.PollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after context cancellation")
	}
}
