package oracle

// Example is a labeled conversation shown to the model before the real one.
// Analysis is the answer the model is expected to mirror, kept as literal
// JSON so the prompt shows the exact output shape.
type Example struct {
	Conversation string
	Categories   []string
	Analysis     string
}

// fewShotExamples covers every rule category plus one clean conversation so
// the model sees what a non-finding looks like.
var fewShotExamples = []Example{
	{
		Conversation: "门店: 车主一直催贴膜进度，又来了，怎么样了？\n客服: 这个需要时间处理，让车主耐心等待。",
		Categories:   []string{"紧急催促", "模糊回应"},
		Analysis: `{
    "has_evasion": true,
    "risk_level": "high",
    "confidence_score": 0.85,
    "evasion_types": ["紧急催促", "模糊回应"],
    "evidence_sentences": ["车主一直催贴膜进度，又来了，怎么样了", "这个需要时间处理，让车主耐心等待"],
    "improvement_suggestions": ["应具体回应车主的催促，提供明确的完成时间，如'师傅今天下午3点完成贴膜'"]
}`,
	},
	{
		Conversation: "门店: 车主投诉配件质量，要退款了\n客服: 这不是我们的问题，是厂家的配件质量问题，让车主直接找供应商。",
		Categories:   []string{"投诉纠纷", "推卸责任"},
		Analysis: `{
    "has_evasion": true,
    "risk_level": "high",
    "confidence_score": 0.95,
    "evasion_types": ["投诉纠纷", "推卸责任"],
    "evidence_sentences": ["车主投诉配件质量，要退款了", "这不是我们的问题，是厂家的配件质量问题"],
    "improvement_suggestions": ["面对投诉和退款要求，门店应承担售后责任，协助处理而不是推卸给厂家"]
}`,
	},
	{
		Conversation: "师傅: 又来催了，撕心裂肺的，搞快点弄完\n门店: 知道了，赶紧搞定",
		Categories:   []string{"不当用词表达"},
		Analysis: `{
    "has_evasion": true,
    "risk_level": "high",
    "confidence_score": 0.9,
    "evasion_types": ["不当用词表达"],
    "evidence_sentences": ["又来催了，撕心裂肺的，搞快点弄完", "赶紧搞定"],
    "improvement_suggestions": ["应使用专业用语，如'车主比较着急，请加快处理速度'，避免'撕'、'搞'等不当表达"]
}`,
	},
	{
		Conversation: "门店: 有纠纷单，客诉12315了\n客服: 翘单吧，能拖就拖一天是一天。",
		Categories:   []string{"投诉纠纷", "拖延处理"},
		Analysis: `{
    "has_evasion": true,
    "risk_level": "high",
    "confidence_score": 0.98,
    "evasion_types": ["投诉纠纷", "拖延处理"],
    "evidence_sentences": ["有纠纷单，客诉12315了", "翘单吧，能拖就拖一天是一天"],
    "improvement_suggestions": ["严禁故意拖延处理客诉和12315投诉，应立即响应和解决"]
}`,
	},
	{
		Conversation: "门店: 车主加急联系，速度催结果，有进展了吗？\n客服: 已经在跟进了，会尽快给答复。",
		Categories:   []string{"紧急催促", "模糊回应"},
		Analysis: `{
    "has_evasion": true,
    "risk_level": "medium",
    "confidence_score": 0.75,
    "evasion_types": ["紧急催促", "模糊回应"],
    "evidence_sentences": ["车主加急联系，速度催结果，有进展了吗", "已经在跟进了，会尽快给答复"],
    "improvement_suggestions": ["面对加急催促，应提供具体的进展情况和预计完成时间"]
}`,
	},
	{
		Conversation: "门店: 车主咨询全车贴膜价格和质保期\n客服: 全车贴膜1800元，质保2年，包括材料和人工，预计明天上午完成安装。",
		Categories:   nil,
		Analysis: `{
    "has_evasion": false,
    "risk_level": "low",
    "confidence_score": 0.1,
    "evasion_types": [],
    "evidence_sentences": [],
    "improvement_suggestions": []
}`,
	},
}

// SelectExamples picks the few-shot set for a conversation given the
// categories the screening pass matched. Positive examples sharing at
// least one matched category are kept, plus the clean example so the model
// always sees a non-finding. With no category overlap the full set is used.
func SelectExamples(matched []string) []Example {
	matchedSet := make(map[string]bool, len(matched))
	for _, m := range matched {
		matchedSet[m] = true
	}

	var selected []Example
	var clean []Example
	for _, ex := range fewShotExamples {
		if len(ex.Categories) == 0 {
			clean = append(clean, ex)
			continue
		}
		for _, c := range ex.Categories {
			if matchedSet[c] {
				selected = append(selected, ex)
				break
			}
		}
	}
	if len(selected) == 0 {
		return fewShotExamples
	}
	return append(selected, clean...)
}
