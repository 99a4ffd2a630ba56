// Package geom decodes PostGIS geometry payloads returned by spatial
// checkers and builds the EWKB point values those checkers send back to
// Postgres, following the shapefile-to-EWKB conversion in
// internal/tiger/wkb.go.
package geom

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRIDWGS84 is the spatial reference used throughout this service: plain
// longitude/latitude in degrees, matching how PostGIS columns are stored.
const SRIDWGS84 = 4326

// BoundingBox is an axis-aligned box in longitude/latitude degrees.
type BoundingBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Contains reports whether the box contains the given point.
func (b BoundingBox) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// PointWKB encodes a longitude/latitude pair as EWKB bytes with SRID 4326,
// suitable for binding to a PostGIS geography parameter via
// ST_GeogFromWKB($1).
func PointWKB(lon, lat float64) ([]byte, error) {
	pt := geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(SRIDWGS84)
	data, err := ewkb.Marshal(pt, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geom: encode point")
	}
	return data, nil
}

// Decode parses EWKB bytes (as returned by ST_AsEWKB) into a go-geom value.
func Decode(data []byte) (geom.T, error) {
	if len(data) == 0 {
		return nil, eris.New("geom: empty EWKB payload")
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "geom: decode EWKB")
	}
	return g, nil
}

// Bounds computes the bounding box of any decoded geometry.
func Bounds(g geom.T) BoundingBox {
	b := g.Bounds()
	return BoundingBox{
		MinLon: b.Min(0),
		MinLat: b.Min(1),
		MaxLon: b.Max(0),
		MaxLat: b.Max(1),
	}
}
