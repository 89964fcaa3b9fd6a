package ctd

import (
	"math"
	"testing"
)

func TestParseSample(t *testing.T) {
	s, err := ParseSample("# 42.914, 15.0, 0.0")
	if err != nil {
		t.Fatal(err)
	}
	if s.Conductivity != 42.914 || s.Temperature != 15 || s.Pressure != 0 {
		t.Fatalf("sample %v", s)
	}

	if _, err = ParseSample("42.914, 15.0"); err == nil {
		t.Fatal("expected an error")
	}
	if _, err = ParseSample("a, b, c"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestSalinityStandardSeawater(t *testing.T) {
	// Standard seawater: S=35 at C=C3515, t=15, p=0.
	s := Salinity(C3515, 15, 0)
	if math.Abs(s-35) > 1e-4 {
		t.Fatalf("salinity %f", s)
	}
}

func TestSalinityMonotoneInConductivity(t *testing.T) {
	lo := Salinity(30, 15, 0)
	hi := Salinity(50, 15, 0)
	if !(lo < 35 && 35 < hi) {
		t.Fatalf("lo %f hi %f", lo, hi)
	}
}

func TestL2Salinity(t *testing.T) {
	s := &Sample{Conductivity: C3515, Temperature: 15, Pressure: 0}
	if got := s.L2Salinity(); math.Abs(got-35) > 1e-4 {
		t.Fatalf("salinity %f", got)
	}
}
