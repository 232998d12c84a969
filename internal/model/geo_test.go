package model

import "testing"

func TestPracticeLocationNilWithoutCoordinates(t *testing.T) {
	p := &Provider{NPI: "1234567893"}
	if loc := p.PracticeLocation(); loc != nil {
		t.Errorf("expected nil PracticeLocation, got %v", loc)
	}
}

func TestApplyPracticeLocationWKTLeavesEmptyWithoutCoordinates(t *testing.T) {
	p := &Provider{NPI: "1234567893"}
	p.ApplyPracticeLocationWKT()
	if p.PracticeLocationWKT != "" {
		t.Errorf("PracticeLocationWKT = %q, want empty", p.PracticeLocationWKT)
	}
}

func TestApplyPracticeLocationWKTEncodesCoordinates(t *testing.T) {
	lon, lat := -87.6298, 41.8781
	p := &Provider{NPI: "1234567893", Longitude: &lon, Latitude: &lat}

	if loc := p.PracticeLocation(); loc == nil {
		t.Fatal("expected a non-nil PracticeLocation when coordinates are set")
	}

	p.ApplyPracticeLocationWKT()
	if p.PracticeLocationWKT == "" {
		t.Error("expected a non-empty WKT string when coordinates are set")
	}
}
