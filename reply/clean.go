package reply

import (
	"regexp"
	"strings"
)

// 清理规则：每一步只删除或缩短文本，因此反复应用必然收敛。
var (
	controlToken  = regexp.MustCompile(`<\|.*?\|>`)
	instToken     = regexp.MustCompile(`\[/?INST\]`)
	sentenceToken = regexp.MustCompile(`</?s>`)
	htmlComment   = regexp.MustCompile(`(?s)<!--.*?-->`)
	analysisBlock = regexp.MustCompile(`(?is)<analysis>.*?</analysis>`)
	analysisTag   = regexp.MustCompile(`(?i)</?analysis>`)
	metadataLine  = regexp.MustCompile(`(?m)[ \t]*\b(?:STYLE|STRATEGY|REASON)[ \t]*[:：].*$`)
	openingFence  = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\n?")
	closingFence  = regexp.MustCompile("\n?[ \t]*```$")
	foreignScript = regexp.MustCompile(`[\x{0400}-\x{052F}\x{0600}-\x{06FF}\x{0750}-\x{077F}]`)
	spaceRun      = regexp.MustCompile(`[ \t\x{00A0}]{2,}`)
	lineEdges     = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// Clean 去除模型输出中的控制符号、HTML 注释、<analysis> 块、
// STYLE/STRATEGY/REASON 元数据行、代码围栏以及西里尔与阿拉伯字母噪声。
// Clean(Clean(x)) == Clean(x)。
func Clean(raw string) string {
	s := raw
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = htmlComment.ReplaceAllString(s, "")
	s = analysisBlock.ReplaceAllString(s, "")
	s = analysisTag.ReplaceAllString(s, "")
	s = controlToken.ReplaceAllString(s, "")
	s = instToken.ReplaceAllString(s, "")
	s = sentenceToken.ReplaceAllString(s, "")
	s = metadataLine.ReplaceAllString(s, "")
	s = foreignScript.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = openingFence.ReplaceAllString(s, "")
	s = closingFence.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	s = lineEdges.ReplaceAllString(s, "")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

var (
	styleMeta  = regexp.MustCompile(`(?m)\bSTYLE[ \t]*[:：][ \t]*(.+?)[ \t]*(?:\bREASON[ \t]*[:：].*)?$`)
	reasonMeta = regexp.MustCompile(`(?m)\bREASON[ \t]*[:：][ \t]*(.+?)[ \t]*$`)
)

// ExtractMetadata 读取回复末尾的 STYLE/REASON 元数据，缺失时返回空串。
// 兼容换行被压平后两个标签位于同一行的情况。
func ExtractMetadata(raw string) (style, reason string) {
	if m := styleMeta.FindStringSubmatch(raw); m != nil {
		style = trimQuotes(m[1])
	}
	if m := reasonMeta.FindStringSubmatch(raw); m != nil {
		reason = trimQuotes(m[1])
	}
	return style, reason
}

func trimQuotes(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'「」`))
}
