// Package samples serves static, seeded examples of offending records
// behind GET /samples/* (spec.md §6: "reference endpoints that return
// seeded examples of offending records for integration tests"). This is
// a Non-goal's counterpart, not a data-ingestion path: the records below
// are fixtures, not live queries against the document/spatial tables.
package samples

import (
	"fmt"
	"sort"
)

// Record is a single seeded reference example for one checker.
type Record struct {
	Checker     string         `json:"checker"`
	Description string         `json:"description"`
	Input       map[string]any `json:"input"`
	Expected    map[string]any `json:"expected"`
}

// Store serves the fixed set of seeded records.
type Store struct {
	byChecker map[string][]Record
}

// New builds the samples Store with its fixed seed data.
func New() *Store {
	records := []Record{
		{
			Checker:     "labor-blacklist",
			Description: "CNPJ present in the federal labor blacklist (lista suja)",
			Input:       map[string]any{"type": "CNPJ", "value": "12345678000199"},
			Expected:    map[string]any{"status": "FAIL", "severity": "CRITICAL"},
		},
		{
			Checker:     "environmental-embargoes-document",
			Description: "CPF under an active IBAMA environmental embargo",
			Input:       map[string]any{"type": "CPF", "value": "11144477735"},
			Expected:    map[string]any{"status": "FAIL", "severity": "HIGH"},
		},
		{
			Checker:     "sanctions",
			Description: "CNPJ present on a national sanctions/debarment list",
			Input:       map[string]any{"type": "CNPJ", "value": "98765432000188"},
			Expected:    map[string]any{"status": "FAIL", "severity": "CRITICAL"},
		},
		{
			Checker:     "indigenous-land-overlap",
			Description: "coordinates falling inside a demarcated indigenous territory",
			Input:       map[string]any{"type": "COORDINATES", "value": map[string]any{"lat": -3.1, "lon": -60.0}},
			Expected:    map[string]any{"status": "FAIL", "severity": "CRITICAL"},
		},
		{
			Checker:     "conservation-unit-overlap",
			Description: "coordinates falling inside a fully-protected conservation unit",
			Input:       map[string]any{"type": "COORDINATES", "value": map[string]any{"lat": -3.0, "lon": -59.9}},
			Expected:    map[string]any{"status": "FAIL", "severity": "CRITICAL"},
		},
		{
			Checker:     "annual-deforestation",
			Description: "CAR property with deforestation detected in the current monitoring year",
			Input:       map[string]any{"type": "CAR", "value": "AM-1302603-ABCD1234EFGH5678IJKL9012MNOP3456"},
			Expected:    map[string]any{"status": "FAIL", "severity": "HIGH"},
		},
		{
			Checker:     "realtime-deforestation-alert",
			Description: "CAR property with an open near-real-time deforestation alert",
			Input:       map[string]any{"type": "CAR", "value": "PA-1501402-ZYXW8765VUTS4321RQPO0987NMLK6543"},
			Expected:    map[string]any{"status": "FAIL", "severity": "HIGH"},
		},
		{
			Checker:     "fire-hotspot-proximity",
			Description: "coordinates within the alert radius of an active fire hotspot",
			Input:       map[string]any{"type": "COORDINATES", "value": map[string]any{"lat": -9.5, "lon": -56.0}},
			Expected:    map[string]any{"status": "FAIL", "severity": "MEDIUM"},
		},
		{
			Checker:     "water-use-permit-proximity",
			Description: "property without a registered water-use permit near a regulated withdrawal point",
			Input:       map[string]any{"type": "CAR", "value": "MT-5107925-QRST1234UVWX5678YZAB9012CDEF3456"},
			Expected:    map[string]any{"status": "PASS"},
		},
		{
			Checker:     "car-status",
			Description: "CAR registration cancelled by the issuing state agency",
			Input:       map[string]any{"type": "CAR", "value": "RO-1100049-GHIJ1234KLMN5678OPQR9012STUV3456"},
			Expected:    map[string]any{"status": "FAIL", "severity": "HIGH"},
		},
		{
			Checker:     "embargo-proximity",
			Description: "coordinates within the buffer distance of an embargoed property",
			Input:       map[string]any{"type": "COORDINATES", "value": map[string]any{"lat": -10.2, "lon": -55.1}},
			Expected:    map[string]any{"status": "FAIL", "severity": "MEDIUM"},
		},
		{
			Checker:     "car-deforestation-intersection",
			Description: "CAR property whose boundary intersects several years of PRODES deforestation polygons",
			Input:       map[string]any{"type": "CAR", "value": "MA-2105302-WXYZ1234ABCD5678EFGH9012IJKL3456"},
			Expected:    map[string]any{"status": "FAIL", "severity": "CRITICAL"},
		},
		{
			Checker:     "validated-deforestation-proximity",
			Description: "property within the alert radius of a field-validated deforestation polygon",
			Input:       map[string]any{"type": "CAR", "value": "TO-1721000-MNOP1234QRST5678UVWX9012YZAB3456"},
			Expected:    map[string]any{"status": "FAIL", "severity": "MEDIUM"},
		},
	}

	byChecker := make(map[string][]Record, len(records))
	for _, r := range records {
		byChecker[r.Checker] = append(byChecker[r.Checker], r)
	}
	return &Store{byChecker: byChecker}
}

// All returns every seeded record, ordered by checker name for a stable
// response body.
func (s *Store) All() []Record {
	names := make([]string, 0, len(s.byChecker))
	for name := range s.byChecker {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Record
	for _, name := range names {
		out = append(out, s.byChecker[name]...)
	}
	return out
}

// ByChecker returns the seeded records for one checker name, or an error
// if no samples are seeded for it.
func (s *Store) ByChecker(name string) ([]Record, error) {
	recs, ok := s.byChecker[name]
	if !ok {
		return nil, fmt.Errorf("samples: no seeded records for checker %q", name)
	}
	return recs, nil
}
