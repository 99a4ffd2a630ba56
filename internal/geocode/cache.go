package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/verdefield/agrocheck/internal/model"
)

// cacheKey returns the SHA-256 hex digest of the normalized address, used
// as the primary key of the geocode_cache table.
func cacheKey(address string) string {
	normalized := strings.ToLower(strings.TrimSpace(address))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

func (c *CascadeClient) checkCache(ctx context.Context, key string) (Result, error) {
	var lat, lon float64
	var displayName string
	var addressPartsJSON []byte

	query := "SELECT latitude, longitude, display_name, address_parts FROM geocode_cache WHERE address_hash = $1"
	args := []any{key}

	if c.cacheTTLDays > 0 {
		query += fmt.Sprintf(" AND cached_at > now() - interval '%d days'", c.cacheTTLDays)
	}

	row := c.pool.QueryRow(ctx, query, args...)
	if err := row.Scan(&lat, &lon, &displayName, &addressPartsJSON); err != nil {
		return Result{}, err
	}

	var parts map[string]string
	if len(addressPartsJSON) > 0 {
		_ = json.Unmarshal(addressPartsJSON, &parts)
	}

	keyPrefix := key
	if len(keyPrefix) > 12 {
		keyPrefix = keyPrefix[:12]
	}
	zap.L().Debug("geocode cache hit", zap.String("key", keyPrefix))

	return Result{
		Coordinates:  model.Coordinates{Lat: lat, Lon: lon},
		DisplayName:  displayName,
		AddressParts: parts,
	}, nil
}

func (c *CascadeClient) storeCache(ctx context.Context, key string, result Result) error {
	partsJSON, err := json.Marshal(result.AddressParts)
	if err != nil {
		return eris.Wrap(err, "geocode: marshal address parts")
	}

	_, err = c.pool.Exec(ctx, `
		INSERT INTO geocode_cache (address_hash, latitude, longitude, display_name, address_parts, cached_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			display_name = EXCLUDED.display_name,
			address_parts = EXCLUDED.address_parts,
			cached_at = now()`,
		key, result.Coordinates.Lat, result.Coordinates.Lon, result.DisplayName, partsJSON,
	)
	if err != nil {
		return eris.Wrap(err, "geocode: store cache")
	}
	return nil
}
