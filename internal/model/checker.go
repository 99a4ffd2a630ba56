package model

// Category is the closed enum of checker categories.
type Category string

const (
	CategoryEnvironmental Category = "environmental"
	CategorySocial        Category = "social"
	CategoryLegal         Category = "legal"
	CategoryCertification Category = "certification"
)

// Status is the closed enum of checker result statuses.
type Status string

const (
	StatusPass          Status = "PASS"
	StatusFail          Status = "FAIL"
	StatusWarning       Status = "WARNING"
	StatusError         Status = "ERROR"
	StatusNotApplicable Status = "NOT_APPLICABLE"
)

// Severity is the closed enum of result severities. Populated iff
// Status == StatusFail (severity law, spec.md §3/§8).
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityNone     Severity = "NONE"
)

// SeverityWeight implements the weight table from spec.md §4.7.
func SeverityWeight(s Severity) float64 {
	switch s {
	case SeverityCritical:
		return 1.0
	case SeverityHigh:
		return 0.75
	case SeverityMedium:
		return 0.5
	case SeverityLow:
		return 0.25
	default:
		return 1.0
	}
}

// CheckerDescriptor is the static metadata every checker exposes.
type CheckerDescriptor struct {
	Name                string      `json:"name" yaml:"name"`
	Category            Category    `json:"category" yaml:"category"`
	Description         string      `json:"description" yaml:"description"`
	Priority            int         `json:"priority" yaml:"priority"` // 0..10
	SupportedInputTypes []InputType `json:"supportedInputTypes" yaml:"supportedInputTypes"`
	CacheTTLSeconds     int         `json:"cacheTTLSeconds" yaml:"cacheTTLSeconds"`
	TimeoutMs           int         `json:"timeoutMs" yaml:"timeoutMs"`
	Enabled             bool        `json:"enabled" yaml:"enabled"`
}

// AppliesTo reports whether t is in the descriptor's supported input types.
func (d CheckerDescriptor) AppliesTo(t InputType) bool {
	for _, supported := range d.SupportedInputTypes {
		if supported == t {
			return true
		}
	}
	return false
}

// Evidence carries the provenance of a checker result.
type Evidence struct {
	DataSource string         `json:"dataSource"`
	URL        string         `json:"url,omitempty"`
	LastUpdate *string        `json:"lastUpdate,omitempty"`
	Raw        map[string]any `json:"raw,omitempty"`
}

// CheckerResult is the outcome of executing a single checker against a
// normalized input.
type CheckerResult struct {
	Status          Status         `json:"status"`
	Severity        Severity       `json:"severity,omitempty"`
	Message         string         `json:"message"`
	Details         map[string]any `json:"details,omitempty"`
	Evidence        Evidence       `json:"evidence"`
	ExecutionTimeMs int64          `json:"executionTimeMs"`
	Cached          bool           `json:"cached"`
}

// SourceResult merges a CheckerDescriptor with its CheckerResult, as
// presented externally in the response envelope's sources[] list.
type SourceResult struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Priority int      `json:"priority"`
	CheckerResult
}

// Applicable reports whether r counts toward scoring (neither
// NOT_APPLICABLE nor ERROR — glossary "Applicable result").
func (r CheckerResult) Applicable() bool {
	return r.Status != StatusNotApplicable && r.Status != StatusError
}
