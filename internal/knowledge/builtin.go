package knowledge

// builtinEntries returns the entries shipped with the binary. Loaded
// files add to these rather than replacing them.
func builtinEntries() []Entry {
	return []Entry{
		{
			Title:    "北京旅行攻略",
			Content:  "北京是中国的首都，拥有丰富的历史文化遗产。故宫、天安门、颐和园是必游景点。建议春秋季节前往，避开暑期人流高峰。",
			Source:   "travel_guide_beijing",
			Category: CategoryGuides,
			Metadata: map[string]string{"city": "北京", "category": "攻略", "language": "中文"},
		},
		{
			Title:    "东京旅行攻略",
			Content:  "东京是日本的首都，现代化都市与传统文化并存。浅草寺、东京塔、秋叶原都是热门景点。春季樱花季和秋季红叶季最美。",
			Source:   "travel_guide_tokyo",
			Category: CategoryGuides,
			Metadata: map[string]string{"city": "东京", "category": "攻略", "language": "中文"},
		},
		{
			Title:    "日本旅游签证",
			Content:  "中国公民前往日本旅游需要申请旅游签证。通常需要护照、照片、在职证明、银行流水等材料。办理时间约5-7个工作日。",
			Source:   "visa_japan",
			Category: CategoryVisa,
			Metadata: map[string]string{"country": "日本", "type": "旅游签证", "language": "中文"},
		},
		{
			Title:    "申根签证申请",
			Content:  "申根签证适用于欧洲申根区国家。需要提供行程单、酒店预订、机票预订、保险等材料。建议提前3个月申请。",
			Source:   "visa_schengen",
			Category: CategoryVisa,
			Metadata: map[string]string{"region": "欧洲", "type": "申根签证", "language": "中文"},
		},
		{
			Title:    "北京美食指南",
			Content:  "北京烤鸭、炸酱面、豆汁、驴打滚都是北京特色美食。全聚德、便宜坊是著名的烤鸭店。",
			Source:   "food_beijing",
			Category: CategoryFood,
			Metadata: map[string]string{"city": "北京", "category": "美食", "language": "中文"},
		},
	}
}
