// Package checkers implements the ~dozen concrete compliance checks
// described in spec §4.4: three document-indexed checks (labor blacklist,
// environmental embargoes, sanctions) and a set of spatial checks run
// against Postgres/PostGIS-shaped tables via the db.Pool interface.
//
// Every checker follows the same shape: a small struct holding a db.Pool
// and a model.CheckerDescriptor, a Descriptor()/AppliesTo() pair derived
// from the embedded descriptor, and an Execute() that runs one or two SQL
// queries and maps rows to a model.CheckerResult. Spatial query shapes
// (ST_DWithin, ST_Contains geography casts) are grounded on the now-deleted
// internal/geospatial/spatial.go.
package checkers

import (
	"context"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/geom"
	"github.com/verdefield/agrocheck/internal/model"
)

// base is embedded by every checker, carrying the shared dependency and
// descriptor so each concrete type only needs to add its query logic.
type base struct {
	pool       db.Pool
	descriptor model.CheckerDescriptor
}

func (b *base) Descriptor() model.CheckerDescriptor { return b.descriptor }

func (b *base) AppliesTo(t model.InputType) bool { return b.descriptor.AppliesTo(t) }

// documentInput extracts the canonical CPF/CNPJ value a document-indexed
// checker matches against.
func documentInput(input model.NormalizedInput) string {
	return input.CanonicalValue
}

// pointWKBForInput resolves the EWKB point parameter a spatial checker
// binds to ST_GeogFromWKB($1), either directly from COORDINATES or by
// resolving a CAR code's stored centroid.
func pointWKBForInput(ctx context.Context, pool db.Pool, input model.NormalizedInput) ([]byte, bool, error) {
	if input.Type == model.InputCoordinates && input.Coordinates != nil {
		data, err := geom.PointWKB(input.Coordinates.Lon, input.Coordinates.Lat)
		return data, true, err
	}

	if input.Type == model.InputCAR {
		var lon, lat float64
		row := pool.QueryRow(ctx, `
			SELECT ST_X(ST_Centroid(geom)), ST_Y(ST_Centroid(geom))
			FROM car_properties WHERE car_code = $1`, input.CanonicalValue)
		if err := row.Scan(&lon, &lat); err != nil {
			if isNoRows(err) {
				return nil, false, nil
			}
			return nil, false, err
		}
		data, err := geom.PointWKB(lon, lat)
		return data, true, err
	}

	return nil, false, nil
}

// describedDescriptor builds a checker's default descriptor, enabled, with
// the given priority, supported input types, cache TTL and timeout.
func describedDescriptor(name string, category model.Category, description string, priority int, supported []model.InputType, cacheTTLSeconds, timeoutMs int) model.CheckerDescriptor {
	return model.CheckerDescriptor{
		Name:                name,
		Category:            category,
		Description:         description,
		Priority:            priority,
		SupportedInputTypes: supported,
		CacheTTLSeconds:      cacheTTLSeconds,
		TimeoutMs:            timeoutMs,
		Enabled:              true,
	}
}
