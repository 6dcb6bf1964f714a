package prompt

import "sort"

// StyleStrategy 是一个命名的回复行为模板。
type StyleStrategy struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// DynamicStyleID 是动态风格的哨兵 ID，允许调用方覆盖显示名。
const DynamicStyleID = "dynamic"

// FallbackStrategy 在风格 ID 未命中时使用。
var FallbackStrategy = StyleStrategy{
	Name:       "Friendly Echo",
	Definition: "A friendly, relevant reply.",
}

// 风格策略表，运行时只读。
var strategies = map[string]StyleStrategy{
	"connection": {
		Name:       "High Resonance",
		Definition: "Brief, relatable reaction. Show you 'get it'. MAX 1-2 sentences. Example: '真的... 看到那個直接滑掉'",
	},
	"value": {
		Name:       "Casual Insight",
		Definition: "Share experience casually. NO teaching. MAX 2 sentences. Example: '上次也遇到類似的，結果是 key 沒設好'",
	},
	"chill": {
		Name:       "Chill / Circle Talk",
		Definition: "Low effort, self-deprecating or soft complaint. MAX 1-2 sentences. Example: '笑死 我上次也這樣'",
	},
	"hype": {
		Name:       "Pure Hype",
		Definition: "Genuine supportive reaction. Like a friend hyping you up. MAX 1 sentence. Example: '太強了吧'",
	},
	"spicy": {
		Name:       "Spicy Take",
		Definition: "A bold, slightly contrarian perspective. Sparks discussion. MAX 2 sentences.",
	},
	"story": {
		Name:       "Mini Story",
		Definition: "Share a VERY brief personal story/experience. MUST be under 2 sentences. Example: '之前做過類似的，結果 demo 炸掉...'",
	},
	"question": {
		Name:       "Curious Question",
		Definition: "Ask a genuine follow-up question. MAX 1 question, no preamble. Just ask directly.",
	},
	"flex": {
		Name:       "Subtle Flex",
		Definition: "Mention related work/experience naturally. MAX 1-2 sentences. Example: '我們上個月也做了類似的...'",
	},
	"hook": {
		Name:       "Cliffhanger Hook",
		Definition: "Say something intriguing but incomplete. MUST be 1 SHORT sentence only. Example: '這招我有個更狠的做法...'",
	},
	"collab": {
		Name:       "Collab Hint",
		Definition: "Express interest in connecting. Keep it casual. MAX 1-2 sentences. Example: '這個想法不錯欸 有機會可以聊聊'",
	},
	"lust": {
		Name:       "Profile Lure (Curiosity Gap)",
		Definition: "Create a curiosity gap. Mention a resource, story, or detail that is ONLY available on your profile/pinned post. MAX 1-2 SHORT sentences. Example: '這件事其實有個關鍵細節，字數不夠寫不下，我置頂文有完整復盤...'",
	},
	DynamicStyleID: {
		Name:       "Dynamic Analysis",
		Definition: "Adaptive style based on specific context analysis.",
	},
}

// Strategy 查找风格策略，未命中时返回 FallbackStrategy 与 false。
func Strategy(styleID string) (StyleStrategy, bool) {
	s, ok := strategies[styleID]
	if !ok {
		return FallbackStrategy, false
	}
	return s, true
}

// StrategyIDs 返回排序后的全部风格 ID。
func StrategyIDs() []string {
	ids := make([]string, 0, len(strategies))
	for id := range strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
