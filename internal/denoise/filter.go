// Package denoise strips operational noise and degenerate content from
// work-order comment threads before any scoring happens. Filtering is
// deterministic and idempotent: running the filter on its own output is a
// no-op.
package denoise

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/svcaudit/vigil/internal/conversation"
)

// NoisePattern is one named drop rule.
type NoisePattern struct {
	Name        string
	Pattern     *regexp.Regexp
	Description string
}

// Config holds the filter's rule sets. Zero values fall back to the
// built-in defaults.
type Config struct {
	SystemKeywords          []string
	NormalOperationPatterns []NoisePattern
	InvalidDataPatterns     []NoisePattern
}

// Filter classifies comments as noise or signal.
type Filter struct {
	systemKeywords []string
	normalOps      []NoisePattern
	invalidData    []NoisePattern
}

// RemovedComment records one dropped comment with its reason, for audit.
type RemovedComment struct {
	Index   int
	Comment conversation.RawComment
	Reason  string
}

// Result is the outcome of one filter run.
type Result struct {
	Kept          []conversation.RawComment
	Removed       []RemovedComment
	OriginalCount int
	RemovedCount  int
	Reasons       map[string]int
}

// New builds a filter from cfg, substituting defaults for empty rule sets.
func New(cfg Config) *Filter {
	f := &Filter{
		systemKeywords: cfg.SystemKeywords,
		normalOps:      cfg.NormalOperationPatterns,
		invalidData:    cfg.InvalidDataPatterns,
	}
	if f.systemKeywords == nil {
		f.systemKeywords = defaultSystemKeywords()
	}
	if f.normalOps == nil {
		f.normalOps = defaultNormalOperationPatterns()
	}
	if f.invalidData == nil {
		f.invalidData = defaultInvalidDataPatterns()
	}
	return f
}

// Filter runs every comment through the classification chain and returns
// the kept comments in their original order plus a reasons histogram.
func (f *Filter) Filter(comments []conversation.RawComment) *Result {
	res := &Result{
		OriginalCount: len(comments),
		Reasons:       make(map[string]int),
	}

	for i, c := range comments {
		drop, reason := f.shouldDrop(c)
		if drop {
			res.Removed = append(res.Removed, RemovedComment{Index: i, Comment: c, Reason: reason})
			res.Reasons[reason]++
			continue
		}
		res.Kept = append(res.Kept, c)
	}
	res.RemovedCount = len(res.Removed)

	return res
}

// shouldDrop applies the classification chain in order: system author,
// system keyword / normal-operation pattern, then invalid data.
func (f *Filter) shouldDrop(c conversation.RawComment) (bool, string) {
	if normal, reason := f.isNormalOperation(c); normal {
		return true, "正常操作: " + reason
	}
	if invalid, reason := f.isInvalidData(c.Text); invalid {
		return true, "无效数据: " + reason
	}
	return false, ""
}

func (f *Filter) isNormalOperation(c conversation.RawComment) (bool, string) {
	// System authors never carry analyzable signal, whatever the text
	// says. The role check runs before the empty-content guard so an
	// empty system comment is still attributed to its author.
	if conversation.RoleOf(c) == conversation.RoleSystem {
		return true, "系统用户操作"
	}

	content := strings.TrimSpace(c.Text)
	if content == "" {
		return false, ""
	}

	for _, kw := range f.systemKeywords {
		if strings.Contains(content, kw) {
			return true, fmt.Sprintf("包含系统关键词: %s", kw)
		}
	}

	for _, p := range f.normalOps {
		if p.Pattern.MatchString(content) {
			return true, p.Description
		}
	}

	// Ticket-desk operators tag threads with bare numeric markers.
	if strings.Contains(c.Name, "工单客服") && isShortNumeric(content) {
		return true, "工单客服数字标记"
	}

	return false, ""
}

func (f *Filter) isInvalidData(text string) (bool, string) {
	content := strings.TrimSpace(text)
	if content == "" {
		return true, "空白内容"
	}

	// Repeated single characters ("111", "aaa") need a manual check;
	// RE2 has no backreferences.
	if isRepeatedChar(content) {
		return true, "重复的单字符"
	}

	for _, p := range f.invalidData {
		if p.Pattern.MatchString(content) {
			return true, p.Description
		}
	}

	// Very short non-Chinese fragments carry no signal.
	if len([]rune(content)) <= 2 && !isAllHan(content) {
		return true, "内容过短且非中文"
	}

	return false, ""
}

// isRepeatedChar reports whether s is a single character repeated three
// or more times.
func isRepeatedChar(s string) bool {
	runes := []rune(s)
	if len(runes) < 3 {
		return false
	}
	for _, r := range runes[1:] {
		if r != runes[0] {
			return false
		}
	}
	return true
}

func isShortNumeric(s string) bool {
	if len(s) == 0 || len(s) > 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAllHan(s string) bool {
	for _, r := range s {
		if !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return len(s) > 0
}

func defaultSystemKeywords() []string {
	return []string{
		"系统", "自动", "通知", "提醒", "分配", "转派",
		"【完结】", "【处理中】", "【待处理】", "【已分配】", "【自动完结工单】",
		"工单创建", "工单关闭", "状态变更", "优先级调整",
		"已撤单", "订单已派单", "派单成功", "撤单成功", "订单状态",
	}
}

func defaultNormalOperationPatterns() []NoisePattern {
	return []NoisePattern{
		{
			Name:        "工单关闭操作",
			Pattern:     regexp.MustCompile(`【完结】.*?关闭工单`),
			Description: "工单正常关闭操作",
		},
		{
			Name:        "自动完结工单",
			Pattern:     regexp.MustCompile(`【自动完结工单】.*?(已撤单|订单已派单|已完成|已关闭|自动关闭|系统关闭)`),
			Description: "系统自动完结工单操作",
		},
		{
			Name:        "自动完结通知",
			Pattern:     regexp.MustCompile(`【自动完结工单】.*`),
			Description: "系统自动完结通知",
		},
		{
			Name:        "系统状态更新",
			Pattern:     regexp.MustCompile(`【.*?】.*?(状态|更新|变更)`),
			Description: "系统自动状态更新",
		},
		{
			Name:        "工单创建通知",
			Pattern:     regexp.MustCompile(`工单.*?(创建|提交|生成)`),
			Description: "工单创建系统通知",
		},
		{
			Name:        "自动分配通知",
			Pattern:     regexp.MustCompile(`(自动分配|系统分配|已分配给)`),
			Description: "系统自动分配通知",
		},
		{
			Name:        "催单提醒",
			Pattern:     regexp.MustCompile(`(催单|提醒|超时)`),
			Description: "系统催单提醒",
		},
		{
			Name:        "订单状态变更",
			Pattern:     regexp.MustCompile(`.*?(已撤单|订单已派单|已派单|订单状态|派单成功|撤单成功)`),
			Description: "订单状态自动变更通知",
		},
	}
}

func defaultInvalidDataPatterns() []NoisePattern {
	return []NoisePattern{
		{
			Name:        "纯数字短内容",
			Pattern:     regexp.MustCompile(`^[\d\s]{1,5}$`),
			Description: "过短的纯数字内容",
		},
		{
			Name:        "测试内容",
			Pattern:     regexp.MustCompile(`(?i)^(test|测试|\.\.\.|。。。)$`),
			Description: "明显的测试内容",
		},
		{
			Name:        "空白或符号",
			Pattern:     regexp.MustCompile(`^[\s\-_=+\*\.]{1,10}$`),
			Description: "只含空白字符或简单符号",
		},
		{
			Name:        "意义不明的短内容",
			Pattern:     regexp.MustCompile(`^[a-zA-Z]{1,3}$`),
			Description: "过短无意义字母",
		},
	}
}
