package rules

// Defaults returns the built-in rule set for the automotive after-sales
// domain. It is used when no external rule feed is configured. The 模糊回应
// category relies on exclusions to spare replies that carry a concrete
// schedule or timeframe.
func Defaults() []CategoryRule {
	return []CategoryRule{
		{
			Key: "紧急催促",
			Keywords: []string{
				"撕", "催", "紧急", "加急联系", "速度", "又来了", "怎么样了", "有进展了吗",
			},
			Patterns: []string{
				`(催|撕).{0,5}(催|撕)`,
				`(又|一直).*(催|撕|来了)`,
				`(怎么样|进展).{0,10}(了|啊|呢|吗)`,
				`(紧急|加急).*(联系|处理|解决)`,
				`(速度|快点).*(处理|解决|搞定)`,
				`(有|没有).*(进展|结果|消息).*(了|吗|呢)`,
			},
			Weight:    0.9,
			RiskLevel: RiskHigh,
		},
		{
			Key: "投诉纠纷",
			Keywords: []string{
				"纠纷单", "投诉", "退款了", "结果", "12315", "客诉", "翘单",
			},
			Patterns: []string{
				`(纠纷|投诉).*(单|了|啊|呢)`,
				`(退款|退钱).*(了|啊|呢)`,
				`(客诉|投诉).*12315`,
				`(翘单|逃单).{0,10}(了|呢)`,
				`(结果|进展).*(不知道|不清楚|没消息|怎么样)`,
				`12315.*(投诉|举报|客诉)`,
			},
			Weight:    1.2,
			RiskLevel: RiskHigh,
		},
		{
			Key: CategoryDeflection,
			Keywords: []string{
				"不是我们的问题", "不是我们负责", "不关我们事", "找其他部门", "联系供应商",
				"厂家问题", "配件问题", "找师傅", "师傅负责", "找安装师傅", "不是门店责任",
				"这是厂家的", "原厂保修", "找4S店", "不归我们管", "系统问题", "总部决定",
				"没办法", "无能为力", "爱莫能助", "无可奈何", "我们也很无奈",
			},
			Patterns: []string{
				`(不是|不属于).*(我们|门店|本店).*(问题|责任|负责)`,
				`(这是|属于).*(厂家|师傅|供应商|原厂).*(问题|责任)`,
				`(找|联系|去问).*(师傅|厂家|供应商|4S店|原厂)`,
				`(师傅|安装师傅).*(自己|负责|承担).*(责任|问题)`,
				`(配件|产品).*(质量|问题).*找.*(厂家|供应商)`,
				`(贴膜|安装|维修).*(问题|效果).*找.*(师傅|技师)`,
				`(保修|售后).*找.*(原厂|4S店|厂家)`,
				`(没办法|无能为力|爱莫能助|无可奈何).*解决`,
				`这个.*不归.*(我们|门店).*管`,
			},
			Weight:    1.0,
			RiskLevel: RiskHigh,
		},
		{
			Key: "拖延处理",
			Keywords: []string{
				"翘单", "逃单", "一直拖", "故意拖", "拖着不处理", "不想处理",
			},
			Patterns: []string{
				`(翘单|逃单).{0,10}(了|呢)`,
				`(拖着|一直拖|故意拖).*(不处理|不解决)`,
				`(不想|不愿意).*(处理|解决|管)`,
				`(能拖|继续拖).*(就拖|一天)`,
			},
			Weight:    1.1,
			RiskLevel: RiskHigh,
		},
		{
			Key: "不当用词表达",
			Keywords: []string{
				"搞快点", "快点搞", "急死了", "催死了", "烦死了", "撕",
				"赶紧搞", "搞定", "又来催", "车主烦人", "师傅拖拉",
			},
			Patterns: []string{
				`(搞|弄).*(快|定|好)`,
				`(急|催|烦|撕).*(死了|要命)`,
				`(又|一直).*(催|撕|来了)`,
				`(车主|客户).*(烦人|烦死|麻烦死)`,
				`(师傅|技师).*(拖拉|磨叽|慢吞吞|烦人)`,
				`(赶紧|快点).*(搞|弄|处理)`,
			},
			Weight:    0.8,
			RiskLevel: RiskMedium,
		},
		{
			Key: "模糊回应",
			Keywords: []string{
				"需要时间", "耐心等待", "已经在处理", "尽快联系", "正在处理中",
				"会尽快", "稍等一下", "马上处理",
			},
			Patterns: []string{
				`(这个|这种).*(需要时间|要等)`,
				`(已经在|正在).*(处理|跟进)`,
				`(会|将).*(尽快|马上)`,
				`(请|您).*(耐心|稍等)`,
			},
			Exclusions: []string{
				`(预计|大概|估计).*(时间|小时|分钟|天)`,
				`(具体|详细).*(时间|进度)`,
				`(\d+).*(小时|分钟|天).*内`,
				`(今天|明天|本周).*(完成|处理)`,
			},
			Weight:    0.6,
			RiskLevel: RiskMedium,
		},
	}
}
