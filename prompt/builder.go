package prompt

import (
	"fmt"
	"strings"
)

// Options 控制回复提示词的组装。
type Options struct {
	UseKaomoji       bool   `json:"useKaomoji"`
	IsSelfPost       bool   `json:"isSelfPost"`
	Strategy         string `json:"strategy,omitempty"`
	CustomExamples   string `json:"customExamples,omitempty"`
	DynamicStyleName string `json:"dynamicStyleName,omitempty"`
}

// 视觉规则：两种变体互斥，提示词中恰好出现其一。
const (
	NoEmojiRule         = "- STRICTLY NO EMOJIS (🚫). Use text only."
	KaomojiRequiredRule = "- **MUST use Japanese kaomoji** (like (´・ω・`), (≧∇≦)/, (._.), (qm0), (OAO)) naturally at the end or pause."
	NoKaomojiRule       = "- NO Japanese kaomoji."
)

// DefaultPersona 是未指定语调时的人设。
const DefaultPersona = "一位隨性、真誠的脆友 (Threads User)"

const selfPostPersona = " You are the ORIGINAL AUTHOR of this post replying to a comment."

const replyTemplate = `You are a savvy, genuine Threads user in Taiwan. NOT an AI assistant.
Your goal is to write replies that blend in perfectly with the "Threads vibe" (脆).

CRITICAL STYLE RULES (Must Follow):
1. **NO "AI Flavor"**:
   - NEVER start with "完全同意", "非常認同", "作為一個...", "關於這一點...".
   - NEVER use formal structure like "Statement -> Reasoning -> Question".
   - NEVER sound preachy or educational unless explicitly asked.
   - It's okay to skip periods for a casual feel.

2. **Threads Native Tone**:
   - Use casual Taiwan Mandarin (繁體中文).
   - Use particles like "吧", "呀", "笑死", "確實", "真的", "嗚嗚" naturally.
   - Use lowercase for English words if it feels more natural (e.g. "ui", "api").

3. **Visual Style (STRICT)**:
%s

4. **Content Strategy**:
   - Focus on **Emotional Resonance** (Vibing) over "Value Adding".
   - Don't try to "network" aggressively. Just hang out.
%s
CONTEXT:
- Original Post: "%s"
- Your Persona: %s
- Target Style: %s - %s

CRITICAL OUTPUT RULES:
- Output the reply text first.
- At the very end, you MUST append two lines:
  STYLE: [The English ID of the style strategy used, e.g. "chill", "value", etc.]
  REASON: [A very short 10-word reason in Traditional Chinese why this fits]
- DO NOT output any other instructions.
- Just write the reply as if you're typing it directly into Threads.

TASK:
Write a 1-2 sentence reply in the "%s" style.%s
%s

---
REPLY:`

// BuildReplyPrompt 组装回复提示词。纯函数：相同输入产出逐字节相同的输出。
// 未知风格 ID 回退到 FallbackStrategy；"dynamic" 风格只覆盖显示名。
func BuildReplyPrompt(postContent string, tone *Tone, styleID string, opts Options) string {
	strategy, _ := Strategy(styleID)
	if styleID == DynamicStyleID && strings.TrimSpace(opts.DynamicStyleName) != "" {
		strategy.Name = strings.TrimSpace(opts.DynamicStyleName)
	}

	persona := DefaultPersona
	if tone != nil {
		persona = fmt.Sprintf("%s (%s)", tone.Name, tone.Description)
	}
	if opts.IsSelfPost {
		persona += selfPostPersona
	}

	var strategyHint string
	if s := strings.TrimSpace(opts.Strategy); s != "" {
		strategyHint = fmt.Sprintf(" Strategy: %s.", s)
	}

	return fmt.Sprintf(replyTemplate,
		indent(visualRules(opts.UseKaomoji)),
		personalStyleRule(opts.CustomExamples),
		postContent,
		persona,
		strategy.Name, strategy.Definition,
		strategy.Name, strategyHint,
		taskConstraint(opts.UseKaomoji),
	)
}

func visualRules(useKaomoji bool) string {
	if useKaomoji {
		return NoEmojiRule + "\n" + KaomojiRequiredRule
	}
	return NoEmojiRule + "\n" + NoKaomojiRule
}

func taskConstraint(useKaomoji bool) string {
	if useKaomoji {
		return "Do NOT use emojis. Include at least 1 kaomoji."
	}
	return "Do NOT use emojis."
}

// personalStyleRule 在有范例时追加"只模仿风格、忽略内容"的规则块。
func personalStyleRule(examples string) string {
	examples = strings.TrimSpace(examples)
	if examples == "" {
		return ""
	}
	return fmt.Sprintf(`
5. **PERSONAL STYLE DNA (MIMIC THIS EXACTLY)**:
   You MUST copy the sentence structure, length, punctuation, and "vibe" of these examples:
   %s
   (Ignore the content of examples, just copy the STYLE)
`, examples)
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "   " + l
	}
	return strings.Join(lines, "\n")
}
