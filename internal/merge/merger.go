package merge

import (
	"math"

	"github.com/svcaudit/vigil/internal/conversation"
	"github.com/svcaudit/vigil/internal/evidence"
	"github.com/svcaudit/vigil/internal/oracle"
	"github.com/svcaudit/vigil/internal/rules"
	"github.com/svcaudit/vigil/internal/screening"
)

// Reconciliation basis values.
const (
	basisSentence = "sentence"
	basisCategory = "category"
)

// Result is the reconciled judgement for one conversation.
type Result struct {
	HasEvasion         bool             `json:"has_evasion"`
	RiskLevel          string           `json:"risk_level"`
	Confidence         float64          `json:"confidence_score"`
	EvasionTypes       []string         `json:"evasion_types"`
	EvidenceSentences  []string         `json:"evidence_sentences"`
	Suggestions        []string         `json:"improvement_suggestions"`
	Sentiment          string           `json:"sentiment"`
	SentimentIntensity float64          `json:"sentiment_intensity"`
	Entries            []evidence.Entry `json:"evidence_entries"`
	Note               string           `json:"analysis_note,omitempty"`
	LLMUsed            bool             `json:"llm_analysis"`
}

// Merge reconciles the screening evidence with an LLM verdict. The verdict
// drives the outcome; the screening pass annotates, floors the confidence
// when the two passes disagree sharply, and escalates deflection findings.
func Merge(session *conversation.Session, scr *screening.Result, entries []evidence.Entry, verdict *oracle.Verdict) *Result {
	res := &Result{
		HasEvasion:         verdict.HasEvasion,
		RiskLevel:          verdict.RiskLevel,
		Confidence:         verdict.Confidence,
		EvasionTypes:       verdict.EvasionTypes,
		EvidenceSentences:  verdict.EvidenceSentences,
		Suggestions:        verdict.Suggestions,
		Sentiment:          verdict.Sentiment,
		SentimentIntensity: verdict.SentimentIntensity,
		LLMUsed:            true,
	}
	if res.RiskLevel == "" {
		res.RiskLevel = rules.RiskLow
	}

	res.Entries = annotate(entries, verdict)
	res.Entries = append(res.Entries, synthesize(session, entries, verdict)...)

	// A confident screening hit the model waved away still deserves
	// review; floor the confidence instead of trusting either side fully.
	if verdict.Confidence < 0.5 && scr.ConfidenceScore > 0.5 {
		res.Confidence = math.Min(scr.ConfidenceScore, 0.8)
		res.Note = "关键词置信度与LLM判断分歧较大，按关键词结果保底"
	}

	// Deflection is the behavior this system exists to catch. A strong
	// merged confidence on a deflection hit overrides a negative verdict.
	if scr.HasCategory(rules.CategoryDeflection) && res.Confidence > 0.7 {
		res.HasEvasion = true
		if !contains(res.EvasionTypes, rules.CategoryDeflection) {
			res.EvasionTypes = append(res.EvasionTypes, rules.CategoryDeflection)
		}
	}

	return res
}

// annotate marks each screening entry with how the verdict relates to it:
// confirmed by a similar evidence sentence, confirmed by category
// agreement, or overridden.
func annotate(entries []evidence.Entry, verdict *oracle.Verdict) []evidence.Entry {
	out := make([]evidence.Entry, len(entries))
	for i, e := range entries {
		rec := &evidence.Reconciliation{}
		sentence, score := bestSentence(e.MessageContent, verdict.EvidenceSentences)
		switch {
		case score > similarityThreshold:
			rec.LLMConfirmed = true
			rec.Score = score
			rec.Sentence = sentence
			rec.Basis = basisSentence
		case contains(verdict.EvasionTypes, e.Category):
			rec.LLMConfirmed = true
			rec.Score = 0.2
			rec.Basis = basisCategory
		default:
			rec.LLMOverridden = true
		}
		e.Reconciliation = rec
		out[i] = e
	}
	return out
}

// synthesize builds entries for verdict sentences no screening entry
// accounted for, attaching each to its closest message when one is close
// enough.
func synthesize(session *conversation.Session, entries []evidence.Entry, verdict *oracle.Verdict) []evidence.Entry {
	category := ""
	if len(verdict.EvasionTypes) > 0 {
		category = verdict.EvasionTypes[0]
	}

	var extra []evidence.Entry
	for _, sentence := range verdict.EvidenceSentences {
		if covered(sentence, entries) {
			continue
		}

		bestIdx := -1
		bestScore := 0.0
		for i, msg := range session.Comments {
			if s := Similarity(sentence, msg.Text); s > bestScore {
				bestScore = s
				bestIdx = i
			}
		}

		var e evidence.Entry
		if bestIdx >= 0 && bestScore >= similarityThreshold {
			e = evidence.FromMessage(category, sentence, session.Comments[bestIdx], bestIdx)
		} else {
			e = evidence.Standalone(category, sentence)
		}
		e.Reconciliation = &evidence.Reconciliation{
			LLMConfirmed: true,
			Score:        bestScore,
			Sentence:     sentence,
			Basis:        basisSentence,
		}
		extra = append(extra, e)
	}
	return extra
}

func covered(sentence string, entries []evidence.Entry) bool {
	for _, e := range entries {
		if Similarity(sentence, e.MessageContent) > similarityThreshold {
			return true
		}
	}
	return false
}

func bestSentence(content string, sentences []string) (string, float64) {
	best := ""
	bestScore := 0.0
	for _, s := range sentences {
		if score := Similarity(content, s); score > bestScore {
			bestScore = score
			best = s
		}
	}
	return best, bestScore
}

// Fallback produces the verdict used when the oracle is unavailable: the
// screening pass alone decides, capped at its own confidence and flagged
// for human review.
func Fallback(scr *screening.Result, entries []evidence.Entry) *Result {
	risk := rules.RiskLow
	for _, detail := range scr.Details {
		if detail.Excluded {
			continue
		}
		if rules.RiskRank(detail.RiskLevel) > rules.RiskRank(risk) {
			risk = detail.RiskLevel
		}
	}

	return &Result{
		HasEvasion:   scr.HasCategory(rules.CategoryDeflection),
		RiskLevel:    risk,
		Confidence:   scr.ConfidenceScore,
		EvasionTypes: scr.MatchedCategories,
		Suggestions:  []string{"LLM分析失败，建议人工审核"},
		Sentiment:    "neutral",
		Entries:      entries,
		Note:         "LLM分析失败，使用关键词筛选结果",
		LLMUsed:      false,
	}
}

// Clean is the result for a conversation the screening pass did not flag.
// No oracle call is made.
func Clean(scr *screening.Result) *Result {
	return &Result{
		HasEvasion: false,
		RiskLevel:  rules.RiskLow,
		Confidence: scr.ConfidenceScore,
		Sentiment:  "neutral",
		Note:       "关键词置信度未达到LLM分析阈值，初步判定为正常对话",
		LLMUsed:    false,
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
