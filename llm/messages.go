package llm

import (
	"fmt"
	"net/http"
	"strings"
)

// Language 是面向用户错误信息的语言。
type Language string

const (
	LangZhTW Language = "zh-TW"
	LangEn   Language = "en"
)

// ParseLanguage 解析语言配置，未知值回退到 zh-TW。
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "en-us", "english":
		return LangEn
	}
	return LangZhTW
}

var userMessages = map[Language]map[ErrorKind]string{
	LangZhTW: {
		KindInvalidCredential: "%s API Key 無效，請檢查設定",
		KindQuotaExceeded:     "%s API 配額已用完或餘額不足，請稍後再試",
		KindRateLimited:       "%s 請求過於頻繁，請稍後再試",
		KindNetworkError:      "無法連線到 %s，請檢查網路後再試",
		KindContentFiltered:   "%s 因安全政策拒絕生成此內容",
		KindTruncatedOutput:   "%s 回覆被截斷，請再試一次",
		KindMalformedResponse: "%s 回傳了無法解析的內容",
		KindMissingCredential: "請先設定 %s 的 API Key",
		KindUnknown:           "%s 發生未知錯誤",
	},
	LangEn: {
		KindInvalidCredential: "%s API key is invalid, please check your settings",
		KindQuotaExceeded:     "%s quota exhausted or balance too low, please try again later",
		KindRateLimited:       "%s is rate limiting requests, please try again later",
		KindNetworkError:      "Cannot reach %s, please check your network and retry",
		KindContentFiltered:   "%s refused to generate this content due to safety policy",
		KindTruncatedOutput:   "%s reply was truncated, please try again",
		KindMalformedResponse: "%s returned a response that could not be parsed",
		KindMissingCredential: "Please configure the API key for %s first",
		KindUnknown:           "%s failed with an unknown error",
	},
}

// UserMessage 返回某类错误的本地化提示，subject 为厂商或模型名。
func UserMessage(lang Language, kind ErrorKind, subject string) string {
	table, ok := userMessages[lang]
	if !ok {
		table = userMessages[LangZhTW]
	}
	format, ok := table[kind]
	if !ok {
		format = table[KindUnknown]
	}
	return strings.TrimSpace(fmt.Sprintf(format, subject))
}

// MissingCredentialError 构造缺少密钥的失败结果。
func MissingCredentialError(lang Language, displayName string) *Error {
	detail := fmt.Sprintf("模型 %s 需要 API Key，請前往設定頁面配置", displayName)
	if lang == LangEn {
		detail = fmt.Sprintf("model %s requires an API key, configure it on the settings page", displayName)
	}
	return NewError(KindMissingCredential, UserMessage(lang, KindMissingCredential, displayName), detail)
}

// UnknownModelError 构造未注册模型的失败结果，HTTPStatus 固定为 404。
func UnknownModelError(lang Language, modelID string, available []string) *Error {
	msg := fmt.Sprintf("不支持的 AI 模型: %s", modelID)
	detail := "可用模型: " + strings.Join(available, ", ")
	if lang == LangEn {
		msg = fmt.Sprintf("unsupported AI model: %s", modelID)
		detail = "available models: " + strings.Join(available, ", ")
	}
	e := NewError(KindUnknown, msg, detail)
	e.HTTPStatus = http.StatusNotFound
	return e
}

// Localize 返回把 Message 换成本地化文本的副本，Detail 保持原样。
func Localize(err *Error, lang Language, subject string) *Error {
	if err == nil {
		return nil
	}
	if subject == "" {
		if v, ok := ParseVendor(err.Provider); ok {
			subject = v.DisplayName()
		} else {
			subject = err.Provider
		}
	}
	out := *err
	out.Message = UserMessage(lang, err.Kind, subject)
	return &out
}
