// Package analysis defines the final analysis record for a work order and
// the policy deciding which records are worth persisting.
package analysis

import (
	"time"

	"github.com/svcaudit/vigil/internal/denoise"
	"github.com/svcaudit/vigil/internal/merge"
	"github.com/svcaudit/vigil/internal/rules"
	"github.com/svcaudit/vigil/internal/screening"
)

// Result is everything known about one analyzed work order: the merged
// judgement, the inputs that produced it, and the provenance of the LLM
// call if one was made.
type Result struct {
	WorkID    int64         `json:"work_id"`
	Judgement *merge.Result `json:"judgement"`

	Screening *screening.Result `json:"keyword_screening"`
	Denoise   *denoise.Result   `json:"denoise,omitempty"`

	Transcript       string    `json:"conversation_text"`
	TotalComments    int       `json:"total_comments"`
	CustomerComments int       `json:"customer_comments"`
	ServiceComments  int       `json:"service_comments"`
	SessionStart     time.Time `json:"session_start_time"`
	SessionEnd       time.Time `json:"session_end_time"`

	Provider     string `json:"llm_provider,omitempty"`
	Model        string `json:"llm_model,omitempty"`
	InputTokens  int    `json:"llm_input_tokens,omitempty"`
	OutputTokens int    `json:"llm_output_tokens,omitempty"`

	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Outcome is the persistence decision for a result.
type Outcome int

const (
	Persist Outcome = iota
	DiscardLowRisk
)

func (o Outcome) String() string {
	if o == DiscardLowRisk {
		return "discard_low_risk"
	}
	return "persist"
}

// PersistencePolicy decides which results reach the database. Low-risk
// non-findings are the overwhelming majority of traffic and carry no
// review value, so they are dropped rather than stored.
type PersistencePolicy struct {
	// KeepAll overrides the filter, for audits and backtesting.
	KeepAll bool
}

func (p PersistencePolicy) Decide(r *Result) Outcome {
	if p.KeepAll {
		return Persist
	}
	j := r.Judgement
	if !j.HasEvasion && j.RiskLevel == rules.RiskLow {
		return DiscardLowRisk
	}
	return Persist
}
