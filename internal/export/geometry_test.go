package export

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

func TestNormalizeGeometryNil(t *testing.T) {
	g, err := NormalizeGeometry(nil, 0)
	if err != nil {
		t.Fatalf("NormalizeGeometry(nil): %v", err)
	}
	if g != nil {
		t.Errorf("got %v, want nil", g)
	}
}

func TestNormalizeGeometryWGS84Passthrough(t *testing.T) {
	g, err := NormalizeGeometry(orb.Point{51.5, 25.3}, TargetSRID)
	if err != nil {
		t.Fatalf("NormalizeGeometry: %v", err)
	}
	if g.Type != "Point" {
		t.Errorf("type = %q, want Point", g.Type)
	}
	p, ok := g.Geometry().(orb.Point)
	if !ok {
		t.Fatalf("geometry is %T, want orb.Point", g.Geometry())
	}
	if p[0] != 51.5 || p[1] != 25.3 {
		t.Errorf("coordinates = %v, want [51.5 25.3]", p)
	}
}

func TestNormalizeGeometryWebMercator(t *testing.T) {
	// Doha-ish point, pushed into EPSG:3857 meters first.
	mercator := project.Point(orb.Point{51.5, 25.3}, project.WGS84.ToMercator)
	g, err := NormalizeGeometry(mercator, 3857)
	if err != nil {
		t.Fatalf("NormalizeGeometry: %v", err)
	}
	p := g.Geometry().(orb.Point)
	if math.Abs(p[0]-51.5) > 1e-6 || math.Abs(p[1]-25.3) > 1e-6 {
		t.Errorf("reprojected point = %v, want [51.5 25.3]", p)
	}
}

func TestNormalizeGeometryUnknownSRID(t *testing.T) {
	for _, srid := range []int{0, 2932, 27700} {
		if _, err := NormalizeGeometry(orb.Point{1, 2}, srid); err == nil {
			t.Errorf("SRID %d: expected error", srid)
		}
	}
}

func TestNormalizeGeometryLineString(t *testing.T) {
	ls := orb.LineString{{51.0, 25.0}, {51.5, 25.3}}
	g, err := NormalizeGeometry(ls, TargetSRID)
	if err != nil {
		t.Fatalf("NormalizeGeometry: %v", err)
	}
	if g.Type != "LineString" {
		t.Errorf("type = %q, want LineString", g.Type)
	}
}
