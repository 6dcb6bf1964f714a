package reply

import (
	"context"
	"time"

	"github.com/BaSui01/replybroker/llm"
)

// Settings 是外部设置协作者：按模型取密钥、取默认模型。
// 未配置密钥时 GetCredential 返回空串和 nil。
type Settings interface {
	GetCredential(ctx context.Context, modelID string) (string, error)
	GetDefaultModel(ctx context.Context) (string, error)
}

// Recorder 接收每次编排的结果，供指标采集。
type Recorder interface {
	RecordReply(operation, model, status string, duration time.Duration, promptTokens int)
}

// Option 配置 Orchestrator。
type Option func(*Orchestrator)

// WithLanguage 设置面向用户错误信息的语言。
func WithLanguage(lang llm.Language) Option {
	return func(o *Orchestrator) { o.lang = lang }
}

// WithRecorder 设置指标记录器。
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// Recorders 把一次记录分发给多个记录器，nil 会被跳过。
func Recorders(rs ...Recorder) Recorder {
	out := make(multiRecorder, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multiRecorder []Recorder

func (m multiRecorder) RecordReply(operation, model, status string, duration time.Duration, promptTokens int) {
	for _, r := range m {
		r.RecordReply(operation, model, status, duration, promptTokens)
	}
}
