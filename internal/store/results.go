package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/svcaudit/vigil/internal/analysis"
)

// SaveResult upserts the analysis record for a work order. Re-analysis
// replaces the previous record; work_id is the natural key.
func (s *Store) SaveResult(ctx context.Context, r *analysis.Result) error {
	judgement, err := json.Marshal(r.Judgement)
	if err != nil {
		return fmt.Errorf("marshal judgement: %w", err)
	}
	scr, err := json.Marshal(r.Screening)
	if err != nil {
		return fmt.Errorf("marshal screening: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO analysis_results (
			work_id, has_evasion, risk_level, confidence_score,
			judgement, keyword_screening, conversation_text,
			total_comments, customer_comments, service_comments,
			session_start_time, session_end_time,
			llm_provider, llm_model, llm_input_tokens, llm_output_tokens,
			llm_analysis, analyzed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (work_id) DO UPDATE SET
			has_evasion = EXCLUDED.has_evasion,
			risk_level = EXCLUDED.risk_level,
			confidence_score = EXCLUDED.confidence_score,
			judgement = EXCLUDED.judgement,
			keyword_screening = EXCLUDED.keyword_screening,
			conversation_text = EXCLUDED.conversation_text,
			total_comments = EXCLUDED.total_comments,
			customer_comments = EXCLUDED.customer_comments,
			service_comments = EXCLUDED.service_comments,
			session_start_time = EXCLUDED.session_start_time,
			session_end_time = EXCLUDED.session_end_time,
			llm_provider = EXCLUDED.llm_provider,
			llm_model = EXCLUDED.llm_model,
			llm_input_tokens = EXCLUDED.llm_input_tokens,
			llm_output_tokens = EXCLUDED.llm_output_tokens,
			llm_analysis = EXCLUDED.llm_analysis,
			analyzed_at = EXCLUDED.analyzed_at`,
		r.WorkID, r.Judgement.HasEvasion, r.Judgement.RiskLevel, r.Judgement.Confidence,
		judgement, scr, r.Transcript,
		r.TotalComments, r.CustomerComments, r.ServiceComments,
		r.SessionStart, r.SessionEnd,
		r.Provider, r.Model, r.InputTokens, r.OutputTokens,
		r.Judgement.LLMUsed, r.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("save analysis result: %w", err)
	}
	return nil
}

// HighRiskResults returns up to limit persisted high-risk findings,
// newest first.
func (s *Store) HighRiskResults(ctx context.Context, limit int) ([]analysis.Result, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT work_id, judgement, keyword_screening, conversation_text,
			total_comments, customer_comments, service_comments,
			session_start_time, session_end_time,
			llm_provider, llm_model, llm_input_tokens, llm_output_tokens, analyzed_at
		FROM analysis_results
		WHERE risk_level = 'high'
		ORDER BY analyzed_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query high risk results: %w", err)
	}
	defer rows.Close()

	var results []analysis.Result
	for rows.Next() {
		var r analysis.Result
		var judgement, scr []byte
		if err := rows.Scan(
			&r.WorkID, &judgement, &scr, &r.Transcript,
			&r.TotalComments, &r.CustomerComments, &r.ServiceComments,
			&r.SessionStart, &r.SessionEnd,
			&r.Provider, &r.Model, &r.InputTokens, &r.OutputTokens, &r.AnalyzedAt,
		); err != nil {
			return nil, fmt.Errorf("scan analysis result: %w", err)
		}
		if err := json.Unmarshal(judgement, &r.Judgement); err != nil {
			return nil, fmt.Errorf("unmarshal judgement: %w", err)
		}
		if err := json.Unmarshal(scr, &r.Screening); err != nil {
			return nil, fmt.Errorf("unmarshal screening: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
