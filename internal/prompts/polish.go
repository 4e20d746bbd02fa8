package prompts

import "fmt"

// polishTemplate asks the advisor to rewrite a deterministic draft into
// conversational prose. The two format verbs receive the user's original
// request and the rendered draft. Facts in the draft are authoritative;
// the model may rephrase and annotate but never alter numbers or names.
const polishTemplate = `下面是系统为用户生成的回复草稿。请在完整保留所有事实信息
（价格、天数、日期、酒店/景点/餐厅名称、预算数字）的前提下，把草稿改写得更自然、
更有温度，可以适当补充一两句贴心提醒。保留原有的分段和列表结构。
直接输出改写后的内容，不要任何解释或前言。

用户的请求：
%s

回复草稿：
%s`

// PolishPrompt returns the polish prompt with the user's request and the
// rendered draft injected.
func PolishPrompt(query, draft string) string {
	return fmt.Sprintf(polishTemplate, query, draft)
}
