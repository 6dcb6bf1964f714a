package reply

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchLimit 是批量生成的默认并发上限。
const DefaultBatchLimit = 4

// BatchItem 是批量生成中单条请求的结果，顺序与输入一致。
type BatchItem struct {
	ID     string
	Index  int
	Result Result
}

// GenerateBatch 并发生成多条回复，每条相互独立：
// 单条失败不会取消其他请求，ctx 取消则影响全部在途调用。
func (o *Orchestrator) GenerateBatch(ctx context.Context, reqs []Request, limit int) []BatchItem {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	items := make([]BatchItem, len(reqs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, req := range reqs {
		i, req := i, req
		items[i] = BatchItem{ID: uuid.NewString(), Index: i}
		g.Go(func() error {
			items[i].Result = o.Generate(ctx, req)
			return nil // 不让 errgroup 提前终止，逐条收集结果
		})
	}
	_ = g.Wait()

	failed := 0
	for _, it := range items {
		if !it.Result.OK() {
			failed++
		}
	}
	o.logger.Info("batch finished", zap.Int("total", len(reqs)), zap.Int("failed", failed), zap.Int("limit", limit))
	return items
}
