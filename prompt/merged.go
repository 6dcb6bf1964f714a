package prompt

import "fmt"

// Length 是合并模式下的回复长度档位。
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// ParseLength 解析长度档位，未知值视为 short。
func ParseLength(s string) Length {
	switch Length(s) {
	case LengthMedium:
		return LengthMedium
	case LengthLong:
		return LengthLong
	}
	return LengthShort
}

// MergedOptions 控制合并提示词。
type MergedOptions struct {
	UseKaomoji bool
	Length     Length
}

const mergedTemplate = `
You are a savvy, genuine Threads user in Taiwan.
Mission: Read the post, pick a style, and write a matching reply.

### DEFINITIONS
%s

### RULES
1. **Persona**: %s
2. **Tone**: Natural, smooth, daily conversation. Avoid robotic transitions.
3. **Anti-AI**: NO "完全同意", "關於這點". NO formal structure. NO forced slang (like constant "笑死" or "確實").
4. **Format**: %s
%s

### FORMAT DEMO (Strictly Follow Structure)
Input: "午餐吃什麼好猶豫"
Output:
<analysis>
STYLE: question
REASON: 對方在尋求建議
</analysis>
附近那間拉麵店你吃過了嗎？

⚠️ NOTE: The above is for XML structure reference ONLY.
Do NOT copy the content or tone. Your reply MUST be unique and directly address the post below.

### TASK
Post: "%s"

Response:
`

// BuildMergedPrompt 组装"分析 + 生成"一次往返的提示词。
// 模型先输出 <analysis> 块（STYLE/REASON），再输出回复正文。
func BuildMergedPrompt(postContent, stylesList string, tone *Tone, opts MergedOptions) string {
	format := NoKaomojiRule
	if opts.UseKaomoji {
		format = "- **MUST use Japanese kaomoji** (like (´・ω・`), (≧∇≦)/) naturally."
	}

	toneDesc := "Casual, genuine Threads user (脆友)"
	if tone != nil {
		toneDesc = fmt.Sprintf("%s: %s", tone.Name, tone.Description)
	}

	return fmt.Sprintf(mergedTemplate, stylesList, toneDesc, format, lengthRule(opts.Length), postContent)
}

func lengthRule(l Length) string {
	switch l {
	case LengthMedium:
		return "5. **Length**: 2-4 sentences. Moderate detail."
	case LengthLong:
		return "5. **Length**: 4-8 sentences. Detailed and descriptive."
	}
	return "5. **Length**: 1-2 sentences max."
}
