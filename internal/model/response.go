package model

import "time"

// Verdict is the closed enum of terminal request classifications.
type Verdict string

const (
	VerdictCompliant    Verdict = "COMPLIANT"
	VerdictPartial      Verdict = "PARTIAL"
	VerdictNonCompliant Verdict = "NON_COMPLIANT"
	VerdictUnknown      Verdict = "UNKNOWN"
)

// Summary is a count of each status across sources[].
type Summary struct {
	Pass          int `json:"pass"`
	Fail          int `json:"fail"`
	Warning       int `json:"warning"`
	Error         int `json:"error"`
	NotApplicable int `json:"notApplicable"`
}

// ResponseMetadata carries request-level timing and cache stats.
type ResponseMetadata struct {
	ProcessingTimeMs int64   `json:"processingTimeMs"`
	CacheHitRate     float64 `json:"cacheHitRate"`
	APIVersion       string  `json:"apiVersion"`
}

// ResponseEnvelope is the full POST /check response body.
type ResponseEnvelope struct {
	CheckID   string           `json:"checkId"`
	Input     Input            `json:"input"`
	Timestamp time.Time        `json:"timestamp"`
	Verdict   Verdict          `json:"verdict"`
	Score     int              `json:"score"`
	Sources   []SourceResult   `json:"sources"`
	Summary   Summary          `json:"summary"`
	Metadata  ResponseMetadata `json:"metadata"`
}

// AuditRow is the persisted record of a completed check, per spec.md §4.8.
type AuditRow struct {
	ID               string    `json:"id"`
	CheckID          string    `json:"checkId"`
	RawInput         Input     `json:"rawInput"`
	NormalizedValue  string    `json:"normalizedValue"`
	Verdict          Verdict   `json:"verdict"`
	Score            int       `json:"score"`
	Sources          []SourceResult `json:"sources"`
	Summary          Summary   `json:"summary"`
	Metadata         ResponseMetadata `json:"metadata"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	CreatedAt        time.Time `json:"createdAt"`
}
