package providers

import (
	"strings"
	"testing"

	"github.com/BaSui01/replybroker/llm"
	"github.com/stretchr/testify/assert"
)

func TestFormatPrompt(t *testing.T) {
	got := FormatPrompt("午餐吃什麼好猶豫", "用提問的方式回覆")

	assert.True(t, strings.HasPrefix(got, "用提問的方式回覆\n\n貼文內容：「午餐吃什麼好猶豫」"))
	assert.Contains(t, got, "4. 使用繁體中文")
	assert.True(t, strings.HasSuffix(got, "請直接提供回覆內容，不需要額外說明："))
}

func TestLimitImages(t *testing.T) {
	imgs := []llm.Image{{URL: "a"}, {URL: ""}, {URL: "b"}, {URL: "c"}}
	got := LimitImages(imgs)
	assert.Equal(t, []llm.Image{{URL: "a"}, {URL: "b"}}, got)
	assert.Empty(t, LimitImages(nil))
}

func TestValidateCredential(t *testing.T) {
	tests := []struct {
		vendor llm.Vendor
		key    string
		ok     bool
	}{
		{llm.VendorGemini, "AIza" + strings.Repeat("x", 35), true},
		{llm.VendorGemini, "AIzaShort", false},
		{llm.VendorOpenAI, "sk-" + strings.Repeat("a", 40), true},
		{llm.VendorOpenAI, "pk-" + strings.Repeat("a", 40), false},
		{llm.VendorClaude, "sk-ant-" + strings.Repeat("a", 40), true},
		{llm.VendorClaude, "sk-" + strings.Repeat("a", 40), false},
		{llm.VendorOpenRouter, "sk-or-v1-" + strings.Repeat("a", 40), true},
		{llm.VendorOpenRouter, "", false},
		{llm.Vendor("mistral"), "sk-" + strings.Repeat("a", 40), false},
	}
	for _, tt := range tests {
		err := ValidateCredential(tt.vendor, tt.key)
		if tt.ok {
			assert.Nil(t, err, "%s %q", tt.vendor, tt.key)
			continue
		}
		if assert.NotNil(t, err, "%s %q", tt.vendor, tt.key) && tt.vendor != "mistral" {
			assert.Equal(t, llm.KindInvalidCredential, err.Kind)
		}
	}
}
