package domegeom

import (
	"math"
	"testing"
)

func TestSetGeometryRejectsNonPositiveRadius(t *testing.T) {
	if _, err := SetGeometry(0, 0, 0, 0, 0); err == nil {
		t.Fatal("expected GeometryError for zero radius")
	}
	if _, err := SetGeometry(0, 0, 0, 0, -1); err == nil {
		t.Fatal("expected GeometryError for negative radius")
	}
}

func TestAltAzOnSphere(t *testing.T) {
	g, err := SetGeometry(2, -4, 3, 0, 16.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lat := 30 * math.Pi / 180

	for haDeg := -90.0; haDeg < 90; haDeg += 17 {
		for decDeg := -80.0; decDeg < 80; decDeg += 23 {
			ha := haDeg * math.Pi / 180
			dec := decDeg * math.Pi / 180

			alt, az, pt := g.AltAz(ha, dec, lat)

			if alt < -math.Pi/2 || alt > math.Pi/2 {
				t.Errorf("ha=%g dec=%g: alt %g out of range", haDeg, decDeg, alt)
			}
			if az < 0 || az >= 2*math.Pi {
				t.Errorf("ha=%g dec=%g: az %g out of [0, 2pi)", haDeg, decDeg, az)
			}

			r2 := pt.X*pt.X + pt.Y*pt.Y + pt.Z*pt.Z
			if diff := math.Abs(r2 - g.Radius*g.Radius); diff > 1e-6 {
				t.Errorf("ha=%g dec=%g: intercept off sphere, r^2=%g want %g", haDeg, decDeg, r2, g.Radius*g.Radius)
			}

			if diff := math.Abs(math.Sin(alt) - pt.Z/g.Radius); diff > 1e-9 {
				t.Errorf("ha=%g dec=%g: sin(alt) %g != Z/R %g", haDeg, decDeg, math.Sin(alt), pt.Z/g.Radius)
			}
		}
	}
}
