package prompt

import (
	"strings"
)

// ReplyStyle 是界面上可选的回复风格。分析流程按 Name 回填。
type ReplyStyle struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

var replyStyles = []ReplyStyle{
	{ID: "relatable", Name: "共鳴", Description: "我也這樣覺得！(Relatable)", Prompt: "Genuinely Relatable"},
	{ID: "witty", Name: "接梗", Description: "笑死 + 吐槽 (Witty)", Prompt: "Witty Banter"},
	{ID: "insight", Name: "見解", Description: "其實還可以這樣... (Insight)", Prompt: "Thoughtful Insight"},
	{ID: "question", Name: "提問", Description: "那如果是...？ (Curious)", Prompt: "Curious Spark"},
	{ID: "support", Name: "應援", Description: "加油！辛苦了 (Support)", Prompt: "Warm Support"},
	{ID: "direct", Name: "直球", Description: "選A比較好 (Direct)", Prompt: "Direct Answer"},

	{ID: "story", Name: "微故事", Description: "這讓我想起... (Story)", Prompt: "Mini Story"},
	{ID: "spicy", Name: "逆風局", Description: "雖然大家都不愛聽... (Spicy)", Prompt: "Spicy Take"},
	{ID: "analogy", Name: "神比喻", Description: "這就像是... (Analogy)", Prompt: "Creative Analogy"},
	{ID: "philosophical", Name: "深度文", Description: "其實這反映了... (Deep)", Prompt: "Deep Thought"},
	{ID: "logic", Name: "邏輯控", Description: "分成三點來看... (Logic)", Prompt: "Logic Analysis"},
}

// ReplyStyles 返回回复风格目录的副本。
func ReplyStyles() []ReplyStyle {
	out := make([]ReplyStyle, len(replyStyles))
	copy(out, replyStyles)
	return out
}

// FindStyleByName 先精确匹配名称，再找被包含的名称。
func FindStyleByName(name string) (ReplyStyle, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ReplyStyle{}, false
	}
	for _, s := range replyStyles {
		if s.Name == name {
			return s, true
		}
	}
	for _, s := range replyStyles {
		if strings.Contains(name, s.Name) {
			return s, true
		}
	}
	return ReplyStyle{}, false
}

// StylesCatalogue 把风格目录格式化为 "- 名称: 描述" 的多行文本。
func StylesCatalogue(styles []ReplyStyle) string {
	lines := make([]string, 0, len(styles))
	for _, s := range styles {
		lines = append(lines, "- "+s.Name+": "+s.Description)
	}
	return strings.Join(lines, "\n")
}

// DefaultStylesCatalogue 是内置目录的格式化文本。
func DefaultStylesCatalogue() string {
	return StylesCatalogue(replyStyles)
}
