package model

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// PracticeLocation builds a geospatial point from a Provider's optional
// geocoded coordinates. Returns nil when the provider carries no
// coordinates, which is the common case until a geocoding enrichment
// hook populates them.
func (p *Provider) PracticeLocation() *geom.Point {
	if p.Longitude == nil || p.Latitude == nil {
		return nil
	}
	return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{*p.Longitude, *p.Latitude})
}

// ApplyPracticeLocationWKT encodes PracticeLocation() as WKT into
// PracticeLocationWKT, called once per Provider during emission
// (internal/normalize.resolveProvider) so the column is populated the
// moment a handler starts supplying coordinates, without requiring a
// schema change at that point.
func (p *Provider) ApplyPracticeLocationWKT() {
	loc := p.PracticeLocation()
	if loc == nil {
		p.PracticeLocationWKT = ""
		return
	}
	s, err := wkt.Marshal(loc)
	if err != nil {
		p.PracticeLocationWKT = ""
		return
	}
	p.PracticeLocationWKT = s
}
