package coordkernel

import (
	"math"
	"testing"

	"github.com/jmhannon/rigel-master/internal/teltypes"
)

func TestHaDecAltAzRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		ha, dec  float64
		lat      float64
	}{
		{"near zenith", 0.01, 0.6, 0.7},
		{"east rising", -1.2, 0.3, 0.55},
		{"west setting", 1.2, -0.2, 0.55},
		{"near pole", 0.5, 1.4, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alt, az := HaDecToAltAz(tt.ha, tt.dec, tt.lat)
			if alt < -math.Pi/2 || alt > math.Pi/2 {
				t.Fatalf("alt %g out of range", alt)
			}
			if az < 0 || az >= 2*math.Pi {
				t.Fatalf("az %g out of [0, 2pi)", az)
			}

			ha2, dec2 := AaHadec(tt.lat, alt, az)
			wantHA := mod2pi(tt.ha)
			if diff := angDiff(ha2, wantHA); math.Abs(diff) > 1e-6 {
				t.Errorf("ha round-trip: got %g want %g (diff %g)", ha2, wantHA, diff)
			}
			if math.Abs(dec2-tt.dec) > 1e-6 {
				t.Errorf("dec round-trip: got %g want %g", dec2, tt.dec)
			}
		})
	}
}

func angDiff(a, b float64) float64 {
	d := mod2pi(a - b)
	if d > math.Pi {
		d -= 2 * math.Pi
	}
	return d
}

func TestApAsIdentityWithinEpoch(t *testing.T) {
	now := teltypes.Now{JD: 2460000.5, Epoch: teltypes.EpochEOD}
	ra, dec := ApAs(now, teltypes.EpochEOD, 1.23, 0.45)
	if math.Abs(ra-1.23) > 1e-12 || dec != 0.45 {
		t.Fatalf("same-epoch ApAs should be identity, got (%g, %g)", ra, dec)
	}
}

func TestMountCorEmptyTableIsNoop(t *testing.T) {
	dha, ddec := MountCor(MeshTable{}, 0.1, 0.2)
	if dha != 0 || ddec != 0 {
		t.Fatalf("expected zero correction for empty table, got (%g, %g)", dha, ddec)
	}
}

func TestMountCorExactGridPoint(t *testing.T) {
	tab := MeshTable{Points: []MeshPoint{
		{HA: 0.1, Dec: 0.2, DHA: 0.001, DDec: -0.0005},
		{HA: 1.0, Dec: 0.5, DHA: 0.002, DDec: 0.0010},
	}}
	dha, ddec := MountCor(tab, 0.1, 0.2)
	if dha != 0.001 || ddec != -0.0005 {
		t.Fatalf("expected exact match correction, got (%g, %g)", dha, ddec)
	}
}

func TestGMSTMonotonic(t *testing.T) {
	g1 := GMST(2451545.0)
	g2 := GMST(2451546.0)
	if g2 <= g1 {
		t.Fatalf("GMST should advance across a day")
	}
}
