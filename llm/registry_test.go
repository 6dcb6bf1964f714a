package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct {
	desc ModelDescriptor
	text string
	err  error
}

func (s *stubProvider) Descriptor() ModelDescriptor { return s.desc }

func (s *stubProvider) Call(_ context.Context, _ *ReplyRequest) (string, error) {
	return s.text, s.err
}

func stubsFor(descs ...ModelDescriptor) []Provider {
	out := make([]Provider, 0, len(descs))
	for _, d := range descs {
		out = append(out, &stubProvider{desc: d})
	}
	return out
}

func countingBuilder(calls *atomic.Int32) Builder {
	return func() ([]Provider, error) {
		calls.Add(1)
		return stubsFor(BuiltinModels()...), nil
	}
}

func TestNewRegistry_PopulatesAtConstruction(t *testing.T) {
	var calls atomic.Int32
	r, err := NewRegistry(countingBuilder(&calls), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, len(BuiltinModels()), r.Len())

	d, ok := r.Descriptor(DefaultModelID)
	require.True(t, ok)
	assert.Equal(t, "Grok Code Fast 1", d.DisplayName)
	assert.False(t, d.SupportsVision)
}

func TestNewRegistry_Errors(t *testing.T) {
	_, err := NewRegistry(nil, nil)
	assert.Error(t, err)

	_, err = NewRegistry(func() ([]Provider, error) { return nil, errors.New("boom") }, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	dup := OpenRouterModel("a/b", "A", false)
	_, err = NewRegistry(func() ([]Provider, error) { return stubsFor(dup, dup), nil }, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRegistry_EnsureReady(t *testing.T) {
	var calls atomic.Int32
	r, err := NewRegistry(countingBuilder(&calls), nil)
	require.NoError(t, err)

	// 非空时不重建
	require.NoError(t, r.EnsureReady())
	require.NoError(t, r.EnsureReady())
	assert.Equal(t, int32(1), calls.Load())

	r.Clear()
	assert.Equal(t, 0, r.Len())
	_, ok := r.Resolve(DefaultModelID)
	assert.False(t, ok)

	require.NoError(t, r.EnsureReady())
	assert.Equal(t, int32(2), calls.Load())
	_, ok = r.Resolve(DefaultModelID)
	assert.True(t, ok)
}

func TestRegistry_EnsureReadyConcurrentRebuildsOnce(t *testing.T) {
	var calls atomic.Int32
	r, err := NewRegistry(countingBuilder(&calls), nil)
	require.NoError(t, err)
	r.Clear()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.EnsureReady())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, len(BuiltinModels()), r.Len())
}

func TestRegistry_ReplaceRejectsDuplicatesWithoutMutation(t *testing.T) {
	var calls atomic.Int32
	r, err := NewRegistry(countingBuilder(&calls), nil)
	require.NoError(t, err)
	before := r.IDs()

	d := OpenRouterModel("x/y", "XY", true)
	err = r.Replace(stubsFor(d, d))
	require.Error(t, err)
	assert.Equal(t, before, r.IDs())

	require.NoError(t, r.Replace(stubsFor(d)))
	assert.Equal(t, []string{"x/y"}, r.IDs())
}

func TestRegistry_DescriptorsKeepOrder(t *testing.T) {
	var calls atomic.Int32
	r, err := NewRegistry(countingBuilder(&calls), nil)
	require.NoError(t, err)

	got := r.Descriptors()
	want := BuiltinModels()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
	}
}

func TestInvoke_StubProvider(t *testing.T) {
	ok := &stubProvider{desc: OpenRouterModel("m", "M", false), text: "hi"}
	res := Invoke(context.Background(), ok, &ReplyRequest{})
	assert.True(t, res.IsOk())
	assert.Equal(t, "hi", res.Text)

	bad := &stubProvider{desc: OpenRouterModel("m", "M", false), err: errors.New("eof")}
	res = Invoke(context.Background(), bad, &ReplyRequest{})
	require.False(t, res.IsOk())
	assert.Empty(t, res.Text)
	assert.Equal(t, KindUnknown, res.Err.Kind)
	assert.Equal(t, "openrouter", res.Err.Provider)
}

func TestCredentialVendor(t *testing.T) {
	assert.Equal(t, VendorGemini, CredentialVendor(LegacyGeminiModelID))
	assert.Equal(t, VendorOpenAI, CredentialVendor(LegacyOpenAIModelID))
	assert.Equal(t, VendorClaude, CredentialVendor(LegacyClaudeModelID))
	assert.Equal(t, VendorOpenRouter, CredentialVendor("openai/gpt-5.2"))
	assert.Equal(t, VendorOpenRouter, CredentialVendor(DefaultModelID))
}

func TestOpenRouterModel_IsFree(t *testing.T) {
	assert.True(t, OpenRouterModel("meta/llama:free", "L", false).IsFree)
	assert.False(t, OpenRouterModel("meta/llama", "L", false).IsFree)
}
