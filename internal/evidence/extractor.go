// Package evidence locates the exact message and substring behind every
// screening hit, so each detected signal is traceable to one message.
package evidence

import (
	"fmt"
	"strings"

	"github.com/svcaudit/vigil/internal/conversation"
	"github.com/svcaudit/vigil/internal/rules"
	"github.com/svcaudit/vigil/internal/screening"
)

// Rule types an evidence entry can originate from.
const (
	RuleKeyword = "keyword"
	RulePattern = "pattern"
	RuleLLM     = "llm"
)

// Reconciliation is filled in by the result merger once the oracle verdict
// is available.
type Reconciliation struct {
	LLMConfirmed  bool    `json:"llm_confirmed"`
	LLMOverridden bool    `json:"llm_overridden"`
	Score         float64 `json:"score"`
	// Sentence is the oracle evidence sentence the entry matched, if any.
	Sentence string `json:"sentence,omitempty"`
	// Basis explains how the entry was confirmed: "sentence" similarity
	// or "category" agreement.
	Basis string `json:"basis,omitempty"`
}

// Entry links one detected signal to its source message. MessageContent
// literally contains MatchedText at [Start:End), byte offsets into the
// message text.
type Entry struct {
	RuleType       string          `json:"rule_type"`
	Category       string          `json:"category"`
	MatchedText    string          `json:"matched_text"`
	Pattern        string          `json:"pattern,omitempty"`
	MessageID      int64           `json:"message_id"`
	MessageIndex   int             `json:"message_index"`
	MessageContent string          `json:"message_content"`
	Highlight      string          `json:"highlight"`
	Start          int             `json:"start"`
	End            int             `json:"end"`
	Reconciliation *Reconciliation `json:"reconciliation,omitempty"`
}

// Extract walks the screening result and produces one entry per match
// occurrence. Matching runs per message, never against the concatenated
// transcript, and nothing is de-duplicated at this stage.
func Extract(session *conversation.Session, scr *screening.Result, cats []rules.Category) []Entry {
	byKey := make(map[string]rules.Category, len(cats))
	for _, c := range cats {
		byKey[c.Key] = c
	}

	var entries []Entry
	for _, key := range scr.MatchedCategories {
		detail := scr.Details[key]
		cat, ok := byKey[key]
		if !ok {
			continue
		}

		for _, kw := range detail.Keywords {
			entries = append(entries, keywordOccurrences(session, key, kw)...)
		}
		for _, src := range detail.Patterns {
			var pat *rules.Pattern
			for i := range cat.Patterns {
				if cat.Patterns[i].Source == src {
					pat = &cat.Patterns[i]
					break
				}
			}
			if pat == nil {
				continue
			}
			entries = append(entries, patternOccurrences(session, key, pat)...)
		}
	}

	return entries
}

// keywordOccurrences finds every occurrence of kw in every message.
func keywordOccurrences(session *conversation.Session, category, kw string) []Entry {
	var entries []Entry
	for idx, msg := range session.Comments {
		offset := 0
		for {
			pos := strings.Index(msg.Text[offset:], kw)
			if pos < 0 {
				break
			}
			start := offset + pos
			end := start + len(kw)
			entries = append(entries, newEntry(RuleKeyword, category, kw, "", msg, idx, start, end))
			offset = end
		}
	}
	return entries
}

// patternOccurrences finds every regex match of pat in every message.
func patternOccurrences(session *conversation.Session, category string, pat *rules.Pattern) []Entry {
	var entries []Entry
	for idx, msg := range session.Comments {
		for _, loc := range pat.Regexp.FindAllStringIndex(msg.Text, -1) {
			matched := msg.Text[loc[0]:loc[1]]
			entries = append(entries, newEntry(RulePattern, category, matched, pat.Source, msg, idx, loc[0], loc[1]))
		}
	}
	return entries
}

func newEntry(ruleType, category, matched, pattern string, msg conversation.RawComment, idx, start, end int) Entry {
	return Entry{
		RuleType:       ruleType,
		Category:       category,
		MatchedText:    matched,
		Pattern:        pattern,
		MessageID:      msg.ID,
		MessageIndex:   idx,
		MessageContent: msg.Text,
		Highlight:      highlight(msg, start, end),
		Start:          start,
		End:            end,
	}
}

// highlight renders "role(name): text" with the match bracketed.
func highlight(msg conversation.RawComment, start, end int) string {
	marked := msg.Text[:start] + "【" + msg.Text[start:end] + "】" + msg.Text[end:]
	highlighted := msg
	highlighted.Text = marked
	return conversation.Rendering(highlighted)
}

// Standalone builds a message-less entry for an oracle evidence sentence
// that could not be attached to any extracted message.
func Standalone(category, sentence string) Entry {
	return Entry{
		RuleType:       RuleLLM,
		Category:       category,
		MatchedText:    sentence,
		MessageIndex:   -1,
		MessageContent: "",
		Highlight:      fmt.Sprintf("LLM: %s", sentence),
	}
}

// FromMessage builds an oracle-sourced entry attached to a specific
// message located by fuzzy matching.
func FromMessage(category, sentence string, msg conversation.RawComment, idx int) Entry {
	return Entry{
		RuleType:       RuleLLM,
		Category:       category,
		MatchedText:    sentence,
		MessageID:      msg.ID,
		MessageIndex:   idx,
		MessageContent: msg.Text,
		Highlight:      conversation.Rendering(msg),
	}
}
