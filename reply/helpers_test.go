package reply

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/replybroker/llm"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// spyProvider 记录调用次数与最后一次请求。
type spyProvider struct {
	desc  llm.ModelDescriptor
	reply string
	err   error
	calls atomic.Int32

	mu   sync.Mutex
	last *llm.ReplyRequest
}

func (p *spyProvider) Descriptor() llm.ModelDescriptor { return p.desc }

func (p *spyProvider) Call(_ context.Context, req *llm.ReplyRequest) (string, error) {
	p.calls.Add(1)
	p.mu.Lock()
	cp := *req
	p.last = &cp
	p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func (p *spyProvider) lastRequest() *llm.ReplyRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// memSettings 是内存版设置协作者。
type memSettings struct {
	creds        map[string]string
	defaultModel string
	credErr      error
}

func (s *memSettings) GetCredential(_ context.Context, modelID string) (string, error) {
	if s.credErr != nil {
		return "", s.credErr
	}
	return s.creds[modelID], nil
}

func (s *memSettings) GetDefaultModel(context.Context) (string, error) {
	return s.defaultModel, nil
}

type recordedReply struct {
	op, model, status string
	tokens            int
}

type memRecorder struct {
	mu      sync.Mutex
	records []recordedReply
}

func (r *memRecorder) RecordReply(op, model, status string, _ time.Duration, tokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, recordedReply{op: op, model: model, status: status, tokens: tokens})
}

func grokDesc() llm.ModelDescriptor {
	return llm.OpenRouterModel(llm.DefaultModelID, "Grok Code Fast 1", false)
}

func geminiFlashDesc() llm.ModelDescriptor {
	return llm.OpenRouterModel(llm.VisionFallbackModelID, "Google Gemini 3 Flash", true)
}

func newTestOrchestrator(t *testing.T, settings Settings, providers ...llm.Provider) *Orchestrator {
	t.Helper()
	reg, err := llm.NewRegistry(func() ([]llm.Provider, error) { return providers, nil }, zap.NewNop())
	require.NoError(t, err)
	o, err := New(reg, settings, zap.NewNop())
	require.NoError(t, err)
	return o
}
