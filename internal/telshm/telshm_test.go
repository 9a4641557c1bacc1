package telshm

import (
	"testing"

	"github.com/jmhannon/rigel-master/internal/teltypes"
)

func TestNewClearsRegion(t *testing.T) {
	p := New()
	snap := p.Snapshot()
	if snap.Header.Seq != 0 {
		t.Fatalf("expected seq 0 on a fresh publisher, got %d", snap.Header.Seq)
	}
	if snap.Status.TelState != teltypes.TelStopped {
		t.Fatalf("expected zero-valued TelState, got %v", snap.Status.TelState)
	}
}

func TestPublishBumpsSeq(t *testing.T) {
	p := New()
	p.Publish(teltypes.TelStatShm{TelState: teltypes.TelTracking})
	s1 := p.Snapshot()
	p.Publish(teltypes.TelStatShm{TelState: teltypes.TelHunting})
	s2 := p.Snapshot()

	if s2.Header.Seq <= s1.Header.Seq {
		t.Fatalf("expected seq to increase, got %d then %d", s1.Header.Seq, s2.Header.Seq)
	}
	if s2.Status.TelState != teltypes.TelHunting {
		t.Fatalf("expected latest status, got %v", s2.Status.TelState)
	}
}

func TestSubscribeReceivesPublishes(t *testing.T) {
	p := New()
	ch, unsub := p.Subscribe(4)
	defer unsub()

	p.Publish(teltypes.TelStatShm{TelState: teltypes.TelSlewing})

	select {
	case snap := <-ch:
		if snap.Status.TelState != teltypes.TelSlewing {
			t.Fatalf("expected SLEWING, got %v", snap.Status.TelState)
		}
	default:
		t.Fatal("expected a published snapshot on the subscriber channel")
	}
}
