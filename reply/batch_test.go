package reply

import (
	"context"
	"testing"

	"github.com/BaSui01/replybroker/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBatch(t *testing.T) {
	grok := &spyProvider{desc: grokDesc(), reply: "好喔"}
	o := newTestOrchestrator(t, &memSettings{creds: map[string]string{llm.DefaultModelID: "k"}}, grok)

	reqs := []Request{
		{PostText: "a"},
		{PostText: "b", Model: "missing/model"},
		{PostText: "c"},
		{PostText: "d"},
		{PostText: "e"},
	}
	items := o.GenerateBatch(context.Background(), reqs, 2)

	require.Len(t, items, len(reqs))
	ids := map[string]bool{}
	for i, it := range items {
		assert.Equal(t, i, it.Index)
		assert.NotEmpty(t, it.ID)
		ids[it.ID] = true
		if i == 1 {
			require.False(t, it.Result.OK())
			assert.Equal(t, llm.KindUnknown, it.Result.Err.Kind)
			continue
		}
		require.True(t, it.Result.OK())
		assert.Equal(t, "好喔", it.Result.Reply)
	}
	assert.Len(t, ids, len(reqs))
	assert.Equal(t, int32(4), grok.calls.Load())
}

func TestGenerateBatch_Empty(t *testing.T) {
	o := newTestOrchestrator(t, &memSettings{}, &spyProvider{desc: grokDesc()})
	assert.Empty(t, o.GenerateBatch(context.Background(), nil, 0))
}
