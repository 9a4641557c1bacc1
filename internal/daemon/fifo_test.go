package daemon

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmhannon/rigel-master/internal/config"
	"github.com/jmhannon/rigel-master/internal/fifoproto"
	"github.com/jmhannon/rigel-master/internal/telshm"
)

func TestFifoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f, err := OpenFifo(dir, "Tel")
	if err != nil {
		t.Fatalf("OpenFifo failed: %v", err)
	}
	defer f.Close()

	in, err := os.OpenFile(filepath.Join(dir, "Tel.in"), os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("client open Tel.in: %v", err)
	}
	fmt.Fprintln(in, "stop")
	in.Close()

	select {
	case line := <-f.Lines():
		if line != "stop" {
			t.Errorf("expected command line %q, got %q", "stop", line)
		}
	case <-time.After(time.Second):
		t.Fatal("command line never arrived on Lines()")
	}

	f.WriteResponse(fifoproto.Success("Stopped"))

	out, err := os.OpenFile(filepath.Join(dir, "Tel.out"), os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("client open Tel.out: %v", err)
	}
	defer out.Close()

	lineCh := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(out)
		if scanner.Scan() {
			lineCh <- scanner.Text()
		}
	}()
	select {
	case line := <-lineCh:
		if line != "0 Stopped" {
			t.Errorf("expected response %q, got %q", "0 Stopped", line)
		}
	case <-time.After(time.Second):
		t.Fatal("response line never arrived on Tel.out")
	}
}

func TestSubmitDispatchesOnNextTick(t *testing.T) {
	cfg := config.Config{Site: config.DefaultSiteConfig()}
	d := New(cfg, telshm.New())
	d.PollInterval = 10 * time.Millisecond
	d.Mount = newTestMount(t)

	var sink fifoproto.Sink
	d.SetOutputs(func(r fifoproto.Response) { _ = sink.WriteResponse(r) }, func(fifoproto.Response) {}, func(fifoproto.Response) {})

	if err := d.Submit("tel", "stop"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	d.Run(ctx)

	if len(sink.Responses) == 0 {
		t.Fatal("expected the injected command to produce a response")
	}
}

func TestSubmitRejectsUnknownDevice(t *testing.T) {
	d := New(config.Config{}, telshm.New())
	if err := d.Submit("lights", "on"); err == nil {
		t.Error("expected unknown device to be rejected")
	}
}
