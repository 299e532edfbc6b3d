package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Verdict is the structured judgement a model returns for one conversation.
type Verdict struct {
	HasEvasion         bool     `json:"has_evasion"`
	RiskLevel          string   `json:"risk_level"`
	Confidence         float64  `json:"confidence_score"`
	EvasionTypes       []string `json:"evasion_types"`
	EvidenceSentences  []string `json:"evidence_sentences"`
	Suggestions        []string `json:"improvement_suggestions"`
	Sentiment          string   `json:"sentiment"`
	SentimentIntensity float64  `json:"sentiment_intensity"`
}

// rawVerdict tolerates the field drift observed across models: confidence
// arrives as either confidence or confidence_score, suggestions as either
// name, and evasion_types as a string or a list.
type rawVerdict struct {
	HasEvasion         bool            `json:"has_evasion"`
	RiskLevel          string          `json:"risk_level"`
	Confidence         *float64        `json:"confidence"`
	ConfidenceScore    *float64        `json:"confidence_score"`
	EvasionTypes       json.RawMessage `json:"evasion_types"`
	EvidenceSentences  []string        `json:"evidence_sentences"`
	Suggestions        []string        `json:"suggestions"`
	ImprovementSugs    []string        `json:"improvement_suggestions"`
	Sentiment          string          `json:"sentiment"`
	SentimentIntensity float64         `json:"sentiment_intensity"`
}

// ParseVerdict extracts the JSON verdict from a model answer. Models wrap
// their JSON in markdown fences or preamble text often enough that the
// parser hunts for the JSON object instead of requiring a clean body.
func ParseVerdict(text string) (*Verdict, error) {
	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return nil, responseErr(text, fmt.Errorf("no JSON object in response"))
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, responseErr(text, fmt.Errorf("parse verdict: %w", err))
	}

	v := &Verdict{
		HasEvasion:         raw.HasEvasion,
		RiskLevel:          raw.RiskLevel,
		EvidenceSentences:  raw.EvidenceSentences,
		Suggestions:        raw.ImprovementSugs,
		Sentiment:          raw.Sentiment,
		SentimentIntensity: raw.SentimentIntensity,
	}
	if v.Suggestions == nil {
		v.Suggestions = raw.Suggestions
	}
	switch {
	case raw.ConfidenceScore != nil:
		v.Confidence = *raw.ConfidenceScore
	case raw.Confidence != nil:
		v.Confidence = *raw.Confidence
	}
	if v.Sentiment == "" {
		v.Sentiment = "neutral"
	}

	types, err := parseStringOrList(raw.EvasionTypes)
	if err != nil {
		return nil, responseErr(text, fmt.Errorf("parse evasion_types: %w", err))
	}
	v.EvasionTypes = types

	return v, nil
}

// extractJSON pulls the JSON payload out of fences or surrounding prose.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if i := strings.Index(text, "```json"); i >= 0 {
		rest := text[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	if i := strings.Index(text, "```"); i >= 0 && strings.Contains(text, "{") {
		rest := text[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return ""
}

// parseStringOrList accepts both "推卸责任" and ["推卸责任", ...]. An empty
// string means no types.
func parseStringOrList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	if single == "" {
		return nil, nil
	}
	return []string{single}, nil
}
