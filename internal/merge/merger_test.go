package merge

import (
	"testing"
	"time"

	"github.com/svcaudit/vigil/internal/conversation"
	"github.com/svcaudit/vigil/internal/evidence"
	"github.com/svcaudit/vigil/internal/oracle"
	"github.com/svcaudit/vigil/internal/rules"
	"github.com/svcaudit/vigil/internal/screening"
)

func mergeSession(texts ...string) *conversation.Session {
	comments := make([]conversation.RawComment, len(texts))
	for i, txt := range texts {
		comments[i] = conversation.RawComment{
			ID:        int64(i + 1),
			Role:      conversation.RoleService,
			Text:      txt,
			Timestamp: time.Date(2026, 3, 1, 9, 0, i, 0, time.UTC),
		}
	}
	return conversation.Build(1, comments)
}

func TestMerge_SentenceConfirmation(t *testing.T) {
	session := mergeSession("这不是我们的问题，让车主找厂家")
	entries := []evidence.Entry{
		{Category: "推卸责任", MatchedText: "找厂家", MessageContent: "这不是我们的问题，让车主找厂家"},
	}
	verdict := &oracle.Verdict{
		HasEvasion:        true,
		RiskLevel:         rules.RiskHigh,
		Confidence:        0.9,
		EvasionTypes:      []string{"推卸责任"},
		EvidenceSentences: []string{"这不是我们的问题，让车主找厂家"},
	}
	scr := &screening.Result{Suspicious: true, ConfidenceScore: 0.4, MatchedCategories: []string{"推卸责任"}}

	res := Merge(session, scr, entries, verdict)
	if !res.HasEvasion || res.Confidence != 0.9 {
		t.Fatalf("result = %+v", res)
	}
	rec := res.Entries[0].Reconciliation
	if rec == nil || !rec.LLMConfirmed || rec.Basis != basisSentence {
		t.Errorf("reconciliation = %+v, want sentence confirmation", rec)
	}
	if rec.Score != 1.0 {
		t.Errorf("score = %g, want 1.0 for exact sentence", rec.Score)
	}
}

func TestMerge_CategoryConfirmation(t *testing.T) {
	session := mergeSession("能拖就拖")
	entries := []evidence.Entry{
		{Category: "拖延处理", MatchedText: "能拖就拖", MessageContent: "能拖就拖"},
	}
	verdict := &oracle.Verdict{
		HasEvasion:   true,
		RiskLevel:    rules.RiskHigh,
		Confidence:   0.8,
		EvasionTypes: []string{"拖延处理"},
		// No evidence sentences resemble the entry.
		EvidenceSentences: []string{"客服在对话后段放弃了跟进"},
	}
	scr := &screening.Result{Suspicious: true, ConfidenceScore: 0.4, MatchedCategories: []string{"拖延处理"}}

	res := Merge(session, scr, entries, verdict)
	rec := res.Entries[0].Reconciliation
	if !rec.LLMConfirmed || rec.Basis != basisCategory || rec.Score != 0.2 {
		t.Errorf("reconciliation = %+v, want category confirmation at 0.2", rec)
	}
}

func TestMerge_Overridden(t *testing.T) {
	session := mergeSession("稍等一下")
	entries := []evidence.Entry{
		{Category: "模糊回应", MatchedText: "稍等", MessageContent: "稍等一下"},
	}
	verdict := &oracle.Verdict{HasEvasion: false, RiskLevel: rules.RiskLow, Confidence: 0.1}
	scr := &screening.Result{Suspicious: true, ConfidenceScore: 0.35, MatchedCategories: []string{"模糊回应"}}

	res := Merge(session, scr, entries, verdict)
	rec := res.Entries[0].Reconciliation
	if !rec.LLMOverridden || rec.LLMConfirmed {
		t.Errorf("reconciliation = %+v, want overridden", rec)
	}
	if res.HasEvasion {
		t.Error("override case must keep has_evasion false")
	}
}

func TestMerge_ConfidenceFloor(t *testing.T) {
	session := mergeSession("翘单吧，能拖就拖")
	verdict := &oracle.Verdict{HasEvasion: false, RiskLevel: rules.RiskLow, Confidence: 0.2}
	scr := &screening.Result{Suspicious: true, ConfidenceScore: 0.9, MatchedCategories: []string{"拖延处理"}}

	res := Merge(session, scr, nil, verdict)
	if res.Confidence != 0.8 {
		t.Errorf("confidence = %g, want floor at min(0.9, 0.8)", res.Confidence)
	}
	if res.Note == "" {
		t.Error("disagreement note missing")
	}
}

func TestMerge_ConfidenceFloorUsesScreeningWhenLower(t *testing.T) {
	session := mergeSession("翘单吧")
	verdict := &oracle.Verdict{Confidence: 0.3}
	scr := &screening.Result{ConfidenceScore: 0.6, MatchedCategories: []string{"拖延处理"}}

	res := Merge(session, scr, nil, verdict)
	if res.Confidence != 0.6 {
		t.Errorf("confidence = %g, want screening score 0.6", res.Confidence)
	}
}

func TestMerge_DeflectionEscalation(t *testing.T) {
	session := mergeSession("这不是我们的问题")
	verdict := &oracle.Verdict{
		HasEvasion: false,
		RiskLevel:  rules.RiskMedium,
		Confidence: 0.75,
	}
	scr := &screening.Result{
		Suspicious:        true,
		ConfidenceScore:   0.6,
		MatchedCategories: []string{rules.CategoryDeflection},
	}

	res := Merge(session, scr, nil, verdict)
	if !res.HasEvasion {
		t.Error("high-confidence deflection must escalate to has_evasion")
	}
	found := false
	for _, typ := range res.EvasionTypes {
		if typ == rules.CategoryDeflection {
			found = true
		}
	}
	if !found {
		t.Errorf("evasion types %v missing deflection", res.EvasionTypes)
	}
}

func TestMerge_NoEscalationBelowConfidence(t *testing.T) {
	session := mergeSession("这不是我们的问题")
	verdict := &oracle.Verdict{HasEvasion: false, RiskLevel: rules.RiskLow, Confidence: 0.6}
	scr := &screening.Result{
		Suspicious:        true,
		ConfidenceScore:   0.4,
		MatchedCategories: []string{rules.CategoryDeflection},
	}

	if res := Merge(session, scr, nil, verdict); res.HasEvasion {
		t.Error("escalation requires merged confidence above 0.7")
	}
}

func TestMerge_SynthesizesUnmatchedSentences(t *testing.T) {
	session := mergeSession("你好", "师傅今天迟到了也不打招呼，态度很差")
	verdict := &oracle.Verdict{
		HasEvasion:        true,
		RiskLevel:         rules.RiskMedium,
		Confidence:        0.7,
		EvasionTypes:      []string{"不当用词表达"},
		EvidenceSentences: []string{"师傅今天迟到了态度很差", "完全无关的一句凭空评价"},
	}
	scr := &screening.Result{Suspicious: true, ConfidenceScore: 0.4, MatchedCategories: []string{"不当用词表达"}}

	res := Merge(session, scr, nil, verdict)
	if len(res.Entries) != 2 {
		t.Fatalf("entries = %d, want 2 synthesized", len(res.Entries))
	}

	var attached, standalone *evidence.Entry
	for i := range res.Entries {
		if res.Entries[i].MessageIndex >= 0 {
			attached = &res.Entries[i]
		} else {
			standalone = &res.Entries[i]
		}
	}
	if attached == nil || attached.MessageIndex != 1 {
		t.Fatalf("similar sentence not attached to its message: %+v", res.Entries)
	}
	if standalone == nil || standalone.RuleType != evidence.RuleLLM {
		t.Fatalf("dissimilar sentence not kept standalone: %+v", res.Entries)
	}
	if attached.Category != "不当用词表达" {
		t.Errorf("synthesized category = %q", attached.Category)
	}
}

func TestFallback(t *testing.T) {
	entries := []evidence.Entry{{Category: rules.CategoryDeflection, MatchedText: "找厂家"}}
	scr := &screening.Result{
		Suspicious:        true,
		ConfidenceScore:   0.45,
		MatchedCategories: []string{rules.CategoryDeflection, "模糊回应"},
		Details: map[string]screening.CategoryMatch{
			rules.CategoryDeflection: {RiskLevel: rules.RiskHigh},
			"模糊回应":                   {RiskLevel: rules.RiskMedium},
		},
	}

	res := Fallback(scr, entries)
	if !res.HasEvasion {
		t.Error("deflection match must set has_evasion in fallback")
	}
	if res.RiskLevel != rules.RiskHigh {
		t.Errorf("risk = %q, want highest matched level", res.RiskLevel)
	}
	if res.Confidence != 0.45 {
		t.Errorf("confidence = %g, must not exceed screening score", res.Confidence)
	}
	if res.LLMUsed {
		t.Error("fallback must mark llm_analysis false")
	}
}

func TestFallback_NoDeflection(t *testing.T) {
	scr := &screening.Result{
		Suspicious:        true,
		ConfidenceScore:   0.4,
		MatchedCategories: []string{"模糊回应"},
		Details: map[string]screening.CategoryMatch{
			"模糊回应": {RiskLevel: rules.RiskMedium},
		},
	}

	res := Fallback(scr, nil)
	if res.HasEvasion {
		t.Error("fallback without deflection must not claim evasion")
	}
	if res.RiskLevel != rules.RiskMedium {
		t.Errorf("risk = %q, want medium", res.RiskLevel)
	}
}

func TestClean(t *testing.T) {
	res := Clean(&screening.Result{ConfidenceScore: 0.1})
	if res.HasEvasion || res.RiskLevel != rules.RiskLow || res.LLMUsed {
		t.Errorf("clean result = %+v", res)
	}
	if res.Confidence != 0.1 {
		t.Errorf("confidence = %g, want screening score", res.Confidence)
	}
}
