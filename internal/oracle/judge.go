package oracle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/svcaudit/vigil/internal/evidence"
	"github.com/svcaudit/vigil/internal/screening"
)

// Judge runs the deep-analysis pass against a provider.
type Judge struct {
	provider Provider
	logger   *slog.Logger
}

func NewJudge(provider Provider, logger *slog.Logger) *Judge {
	return &Judge{provider: provider, logger: logger}
}

// Judgement is a parsed verdict plus its provenance.
type Judgement struct {
	Verdict      *Verdict
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	Raw          string
}

// Judge analyzes one suspicious conversation. All failures return an
// *Error so the caller can distinguish transport trouble from a model that
// answered badly; either way the caller falls back to the screening verdict.
func (j *Judge) Judge(ctx context.Context, workID int64, transcript string, scr *screening.Result, entries []evidence.Entry) (*Judgement, error) {
	prompt := BuildPrompt(transcript, scr, entries)

	j.logger.Info("requesting llm verdict",
		"work_id", workID,
		"provider", j.provider.Name(),
		"model", j.provider.Model(),
		"matched_categories", scr.MatchedCategories,
		"transcript_len", len(transcript),
	)

	completion, err := j.provider.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm analysis: %w", err)
	}

	verdict, err := ParseVerdict(completion.Text)
	if err != nil {
		j.logger.Error("unparseable llm verdict",
			"work_id", workID,
			"error", err,
			"raw", completion.Text,
		)
		return nil, fmt.Errorf("llm analysis: %w", err)
	}

	j.logger.Info("llm verdict received",
		"work_id", workID,
		"has_evasion", verdict.HasEvasion,
		"risk_level", verdict.RiskLevel,
		"confidence", verdict.Confidence,
		"tokens_in", completion.InputTokens,
		"tokens_out", completion.OutputTokens,
	)

	return &Judgement{
		Verdict:      verdict,
		Provider:     j.provider.Name(),
		Model:        j.provider.Model(),
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
		Raw:          completion.Text,
	}, nil
}
