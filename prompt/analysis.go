package prompt

import "fmt"

// 分析结果的三个标签
const (
	StyleKey    = "STYLE"
	StrategyKey = "STRATEGY"
	ReasonKey   = "REASON"
)

const analysisTemplate = `You are a social media strategist for Threads (脆) in Taiwan.
Read the post below and choose the ONE reply style from the list that would get the most genuine engagement.

### AVAILABLE STYLES
%s

If none of the styles fits well, invent a short style name and prefix it with "Custom:" (e.g. "Custom: 溫柔吐槽").

### POST
"%s"

### OUTPUT (exactly three lines, nothing else)
STYLE: [style name exactly as listed, or Custom: name]
STRATEGY: [one short sentence in Traditional Chinese describing how to reply]
REASON: [a very short reason in Traditional Chinese why this fits]`

// BuildAnalysisPrompt 组装帖文分析提示词，要求模型只输出 STYLE/STRATEGY/REASON 三行。
func BuildAnalysisPrompt(postContent, stylesList string) string {
	if stylesList == "" {
		stylesList = DefaultStylesCatalogue()
	}
	return fmt.Sprintf(analysisTemplate, stylesList, postContent)
}

// FrameThread 把主文与回复对象组合成带标注的上下文。
func FrameThread(mainText, targetText string) string {
	return fmt.Sprintf("【主文 Context (The Main Topic)】:\n%s\n\n【回覆對象 Target (The Specific Comment)】:\n%s", mainText, targetText)
}
