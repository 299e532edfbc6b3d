// Package pipeline orchestrates the per-work-order analysis flow: claim,
// denoise, screen, judge, merge, persist, complete.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/svcaudit/vigil/internal/analysis"
	"github.com/svcaudit/vigil/internal/conversation"
	"github.com/svcaudit/vigil/internal/denoise"
	"github.com/svcaudit/vigil/internal/evidence"
	"github.com/svcaudit/vigil/internal/merge"
	"github.com/svcaudit/vigil/internal/oracle"
	"github.com/svcaudit/vigil/internal/rules"
	"github.com/svcaudit/vigil/internal/screening"
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	EnqueueWorkOrder(ctx context.Context, workID int64) error
	Claim(ctx context.Context, workID int64) (bool, error)
	MarkCompleted(ctx context.Context, workID int64, outcome string) error
	MarkFailed(ctx context.Context, workID int64, errText string) error
	SaveResult(ctx context.Context, r *analysis.Result) error
	SaveDenoiseRecords(ctx context.Context, batchID uuid.UUID, workID int64, res *denoise.Result) error
}

// CommentSource fetches a work order's comments when the triggering event
// did not carry them.
type CommentSource interface {
	Comments(ctx context.Context, workID int64) ([]conversation.RawComment, error)
}

// Judge is the LLM deep-analysis pass.
type Judge interface {
	Judge(ctx context.Context, workID int64, transcript string, scr *screening.Result, entries []evidence.Entry) (*oracle.Judgement, error)
}

// RuleSource supplies compiled screening categories.
type RuleSource interface {
	GetOrLoad(ctx context.Context) ([]rules.Category, error)
}

// Publisher emits pipeline events. Nil-safe via the nil check at call sites.
type Publisher interface {
	Publish(subject string, v any) error
}

// Notifier raises out-of-band alerts for high risk findings.
type Notifier interface {
	AlertHighRisk(ctx context.Context, r *analysis.Result) error
}

// Event subjects published by the pipeline.
const (
	SubjectAnalysisCompleted = "vigil.analysis.completed"
	SubjectAnalysisFailed    = "vigil.analysis.failed"
	SubjectAnalysisAlert     = "vigil.analysis.alert"
)

// outcomeNoContent marks orders whose comments all filtered away. They
// complete without a stored result.
const outcomeNoContent = "no_content"

var errEmptyConversation = errors.New("no analyzable conversation")

type Pipeline struct {
	store    Store
	source   CommentSource
	filter   *denoise.Filter
	rules    RuleSource
	judge    Judge
	policy   analysis.PersistencePolicy
	events   Publisher
	notifier Notifier
	logger   *slog.Logger

	oracleTimeout time.Duration
	maxConcurrent int
}

type Options struct {
	Source        CommentSource
	Filter        *denoise.Filter
	Policy        analysis.PersistencePolicy
	Events        Publisher
	Notifier      Notifier
	OracleTimeout time.Duration
	MaxConcurrent int
}

func New(s Store, ruleSource RuleSource, judge Judge, logger *slog.Logger, opts Options) *Pipeline {
	p := &Pipeline{
		store:         s,
		source:        opts.Source,
		filter:        opts.Filter,
		rules:         ruleSource,
		judge:         judge,
		policy:        opts.Policy,
		events:        opts.Events,
		notifier:      opts.Notifier,
		logger:        logger,
		oracleTimeout: opts.OracleTimeout,
		maxConcurrent: opts.MaxConcurrent,
	}
	if p.filter == nil {
		p.filter = denoise.New(denoise.Config{})
	}
	if p.oracleTimeout <= 0 {
		p.oracleTimeout = 2 * time.Minute
	}
	if p.maxConcurrent <= 0 {
		p.maxConcurrent = 4
	}
	return p
}

// Process runs one work order through the pipeline. Comments may come from
// the triggering event; with nil comments the configured source is asked.
// A work order someone else already claimed returns (nil, nil).
func (p *Pipeline) Process(ctx context.Context, workID int64, comments []conversation.RawComment) (*analysis.Result, error) {
	claimed, err := p.store.Claim(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("claim work order %d: %w", workID, err)
	}
	if !claimed {
		p.logger.Debug("work order not claimable", "work_id", workID)
		return nil, nil
	}

	result, err := p.analyze(ctx, workID, comments)
	if err != nil {
		if errors.Is(err, errEmptyConversation) {
			p.complete(ctx, workID, outcomeNoContent)
			return nil, nil
		}
		p.fail(ctx, workID, err)
		return nil, err
	}

	outcome := p.policy.Decide(result)

	// Status and result writes survive caller cancellation; a claimed
	// order must always leave PROCESSING.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if outcome == analysis.Persist {
		if err := p.store.SaveResult(fctx, result); err != nil {
			p.fail(ctx, workID, err)
			return nil, fmt.Errorf("save result for %d: %w", workID, err)
		}
	}
	if result.Denoise != nil {
		if err := p.store.SaveDenoiseRecords(fctx, uuid.New(), workID, result.Denoise); err != nil {
			p.logger.Error("failed to save denoise records", "work_id", workID, "error", err)
		}
	}
	if err := p.store.MarkCompleted(fctx, workID, outcome.String()); err != nil {
		return nil, fmt.Errorf("mark completed %d: %w", workID, err)
	}

	p.logger.Info("work order analyzed",
		"work_id", workID,
		"has_evasion", result.Judgement.HasEvasion,
		"risk_level", result.Judgement.RiskLevel,
		"confidence", result.Judgement.Confidence,
		"llm_used", result.Judgement.LLMUsed,
		"outcome", outcome.String(),
	)

	p.publish(SubjectAnalysisCompleted, map[string]any{
		"work_id":     workID,
		"has_evasion": result.Judgement.HasEvasion,
		"risk_level":  result.Judgement.RiskLevel,
		"outcome":     outcome.String(),
	})

	if result.Judgement.HasEvasion && result.Judgement.RiskLevel == rules.RiskHigh {
		p.publish(SubjectAnalysisAlert, map[string]any{
			"work_id":       workID,
			"risk_level":    result.Judgement.RiskLevel,
			"confidence":    result.Judgement.Confidence,
			"evasion_types": result.Judgement.EvasionTypes,
		})
		if p.notifier != nil {
			if err := p.notifier.AlertHighRisk(fctx, result); err != nil {
				p.logger.Error("high risk alert failed", "work_id", workID, "error", err)
			}
		}
	}

	return result, nil
}

func (p *Pipeline) analyze(ctx context.Context, workID int64, comments []conversation.RawComment) (*analysis.Result, error) {
	if comments == nil {
		if p.source == nil {
			return nil, fmt.Errorf("no comments in event and no comment source configured for work order %d", workID)
		}
		var err error
		comments, err = p.source.Comments(ctx, workID)
		if err != nil {
			return nil, fmt.Errorf("fetch comments for %d: %w", workID, err)
		}
	}

	filtered := p.filter.Filter(comments)
	session := conversation.Build(workID, filtered.Kept)
	if session.Empty() {
		return nil, fmt.Errorf("work order %d: %w", workID, errEmptyConversation)
	}

	cats, err := p.rules.GetOrLoad(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	scr := screening.Screen(session.Transcript, cats)

	result := &analysis.Result{
		WorkID:           workID,
		Screening:        scr,
		Denoise:          filtered,
		Transcript:       session.Transcript,
		TotalComments:    session.TotalMessages,
		CustomerComments: session.CustomerMessages,
		ServiceComments:  session.ServiceMessages,
		SessionStart:     session.StartTime,
		SessionEnd:       session.EndTime,
		AnalyzedAt:       time.Now(),
	}

	if !scr.Suspicious {
		result.Judgement = merge.Clean(scr)
		return result, nil
	}

	entries := evidence.Extract(session, scr, cats)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The oracle call gets its own deadline, detached from the caller so
	// shutdown lets an in-flight request finish instead of wasting it.
	octx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.oracleTimeout)
	defer cancel()

	judgement, err := p.judge.Judge(octx, workID, session.Transcript, scr, entries)
	if err != nil {
		p.logger.Warn("llm analysis failed, falling back to screening verdict",
			"work_id", workID, "error", err)
		result.Judgement = merge.Fallback(scr, entries)
		return result, nil
	}

	result.Judgement = merge.Merge(session, scr, entries, judgement.Verdict)
	result.Provider = judgement.Provider
	result.Model = judgement.Model
	result.InputTokens = judgement.InputTokens
	result.OutputTokens = judgement.OutputTokens
	return result, nil
}

// complete closes out an order that produced no result to store.
func (p *Pipeline) complete(ctx context.Context, workID int64, outcome string) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := p.store.MarkCompleted(fctx, workID, outcome); err != nil {
		p.logger.Error("failed to mark work order completed", "work_id", workID, "error", err)
		return
	}
	p.logger.Info("work order completed without analysis", "work_id", workID, "outcome", outcome)
	p.publish(SubjectAnalysisCompleted, map[string]any{
		"work_id": workID,
		"outcome": outcome,
	})
}

// fail marks the order FAILED, detached from the caller's cancellation.
func (p *Pipeline) fail(ctx context.Context, workID int64, cause error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := p.store.MarkFailed(fctx, workID, cause.Error()); err != nil {
		p.logger.Error("failed to mark work order failed", "work_id", workID, "error", err)
	}
	p.publish(SubjectAnalysisFailed, map[string]any{
		"work_id": workID,
		"error":   cause.Error(),
	})
}

func (p *Pipeline) publish(subject string, v any) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(subject, v); err != nil {
		p.logger.Error("failed to publish event", "subject", subject, "error", err)
	}
}
