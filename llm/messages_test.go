package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, LangEn, ParseLanguage("EN"))
	assert.Equal(t, LangEn, ParseLanguage("english"))
	assert.Equal(t, LangZhTW, ParseLanguage("zh-TW"))
	assert.Equal(t, LangZhTW, ParseLanguage("fr"))
}

func TestUserMessage_EveryKindLocalized(t *testing.T) {
	for _, lang := range []Language{LangZhTW, LangEn} {
		for _, k := range AllKinds() {
			msg := UserMessage(lang, k, "Gemini")
			assert.Contains(t, msg, "Gemini", "lang=%s kind=%s", lang, k)
		}
	}
}

func TestMissingCredentialError(t *testing.T) {
	e := MissingCredentialError(LangZhTW, "Grok Code Fast 1")
	assert.Equal(t, KindMissingCredential, e.Kind)
	assert.Equal(t, "請先設定 Grok Code Fast 1 的 API Key", e.Message)
	assert.Equal(t, "模型 Grok Code Fast 1 需要 API Key，請前往設定頁面配置", e.Detail)
	assert.NotEqual(t, e.Message, e.Detail)
}

func TestUnknownModelError(t *testing.T) {
	e := UnknownModelError(LangZhTW, "foo/bar", []string{"a", "b"})
	assert.Equal(t, KindUnknown, e.Kind)
	assert.Equal(t, "不支持的 AI 模型: foo/bar", e.Message)
	assert.Equal(t, "可用模型: a, b", e.Detail)
	assert.Equal(t, 404, e.HTTPStatus)
}

func TestLocalize_KeepsDetail(t *testing.T) {
	raw := &Error{Kind: KindInvalidCredential, Message: "API key not valid", Detail: `{"error":{"status":"INVALID_ARGUMENT"}}`, Provider: "gemini", HTTPStatus: 400}
	got := Localize(raw, LangZhTW, "")

	assert.Equal(t, "Gemini API Key 無效，請檢查設定", got.Message)
	assert.Equal(t, raw.Detail, got.Detail)
	assert.Equal(t, 400, got.HTTPStatus)
	// 原值不被修改
	assert.Equal(t, "API key not valid", raw.Message)
	assert.Nil(t, Localize(nil, LangEn, ""))
}
