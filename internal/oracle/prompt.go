package oracle

import (
	"fmt"
	"strings"

	"github.com/svcaudit/vigil/internal/evidence"
	"github.com/svcaudit/vigil/internal/screening"
)

// Evidence lines shown per category. More adds prompt cost without adding
// signal; the model sees the full transcript anyway.
const maxEvidencePerCategory = 5

const systemPrompt = `你是一个专业的汽车服务行业质量分析专家，擅长识别师傅、门店、客服对话中的规避责任行为。请严格按照要求的JSON格式返回分析结果。`

const promptHeader = `请分析以下师傅、门店、客服之间的对话中是否存在规避责任的行为。

在汽车服务行业（配件销售、贴膜、维修、上门服务）中，规避责任的表现包括：
1. 推卸责任：将问题完全推给师傅、厂家、供应商或4S店，拒绝承担售后服务责任
2. 模糊回应：给出"需要时间"、"正在处理"等模糊答复，不提供具体的维修时间、师傅安排
3. 拖延处理：故意延长处理时间，希望车主放弃投诉或自行解决
4. 不当用词：在内部沟通中使用"车主烦人"、"师傅磨叽"等非专业表达，贬低客户或合作伙伴
5. 敷衍态度：随意应付车主咨询，对质量问题、安装效果等不负责任

⚠️ 汽车服务行业重点关注：
- 配件质量问题推给"厂家"、"供应商"，不协助处理
- 贴膜、安装问题推给"师傅自己负责"，门店不承担责任
- 维修服务问题推给"原厂保修"、"4S店"，拒绝售后支持
- 师傅服务问题（迟到、操作不当）不主动协调解决
- 对于推卸责任行为，置信度应给予0.8以上的高评分

⚠️ 模糊回应识别标准（汽车服务特点）：
- 只有明显缺乏具体时间安排、师傅调度信息的回应才算模糊回应
- 如果提到了"预计明天"、"联系师傅确认时间"等具体安排，则不算模糊回应
- 对于模糊回应，置信度应在0.6-0.8之间

分析要求：
1. 重点关注汽车服务行业的推卸责任行为
2. 识别师傅、门店、客服三方责任边界问题
3. 严格区分模糊回应和正常的服务流程说明
4. 评估风险级别：low（无风险）、medium（中等风险）、high（高风险）
5. 提供准确的置信度评分（0-1之间）
6. 列出具体的证据句子
7. 给出符合汽车服务行业特点的改进建议`

const promptFooter = `请严格按照以下JSON格式返回分析结果：
{
    "has_evasion": boolean,
    "risk_level": "low|medium|high",
    "confidence_score": float,
    "evasion_types": [string],
    "evidence_sentences": [string],
    "improvement_suggestions": [string],
    "sentiment": "positive|negative|neutral",
    "sentiment_intensity": float
}`

// BuildPrompt assembles the user prompt: instructions, few-shot examples
// chosen for the matched categories, the screening context, the extracted
// evidence grouped by category, and finally the transcript itself.
func BuildPrompt(transcript string, scr *screening.Result, entries []evidence.Entry) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\n")

	for i, ex := range SelectExamples(scr.MatchedCategories) {
		fmt.Fprintf(&b, "对话示例%d:\n%s\n分析结果:\n%s\n\n", i+1, ex.Conversation, ex.Analysis)
	}

	if ctx := screeningContext(scr, entries); ctx != "" {
		b.WriteString(ctx)
		b.WriteString("\n\n")
	}

	b.WriteString("现在请分析以下对话：\n")
	b.WriteString(transcript)
	b.WriteString("\n\n")
	b.WriteString(promptFooter)
	return b.String()
}

// screeningContext summarizes the keyword pass so the model knows what the
// deterministic layer already flagged.
func screeningContext(scr *screening.Result, entries []evidence.Entry) string {
	if len(scr.MatchedCategories) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "关键词粗筛结果：命中类别 %s，置信度 %.3f",
		strings.Join(scr.MatchedCategories, "、"), scr.ConfidenceScore)

	byCategory := make(map[string][]evidence.Entry)
	for _, e := range entries {
		byCategory[e.Category] = append(byCategory[e.Category], e)
	}
	for _, cat := range scr.MatchedCategories {
		hits := byCategory[cat]
		if len(hits) == 0 {
			continue
		}
		if len(hits) > maxEvidencePerCategory {
			hits = hits[:maxEvidencePerCategory]
		}
		fmt.Fprintf(&b, "\n%s：", cat)
		for i, e := range hits {
			if i > 0 {
				b.WriteString("；")
			}
			b.WriteString(e.Highlight)
		}
	}
	return b.String()
}
