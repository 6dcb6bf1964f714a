package settings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UsageEntry 一次编排的用量记录，不含贴文与回复内容
type UsageEntry struct {
	ID           string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Operation    string    `gorm:"column:operation;size:32" json:"operation"`
	Model        string    `gorm:"column:model;size:128" json:"model"`
	Status       string    `gorm:"column:status;size:32" json:"status"`
	DurationMs   int64     `gorm:"column:duration_ms" json:"durationMs"`
	PromptTokens int       `gorm:"column:prompt_tokens" json:"promptTokens"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"createdAt"`
}

// TableName implements gorm.Tabler.
func (UsageEntry) TableName() string { return "reply_log" }

// UsageLog 把编排结果写入 reply_log 表，实现 reply.Recorder
type UsageLog struct {
	db      DB
	timeout time.Duration
	logger  *zap.Logger
}

// NewUsageLog 创建用量日志
func NewUsageLog(db DB, logger *zap.Logger) *UsageLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageLog{db: db, timeout: 2 * time.Second, logger: logger.With(zap.String("component", "usage_log"))}
}

// RecordReply 写入一条记录；失败只记日志，不影响请求
func (u *UsageLog) RecordReply(operation, model, status string, duration time.Duration, promptTokens int) {
	ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
	defer cancel()

	entry := UsageEntry{
		ID:           uuid.NewString(),
		Operation:    operation,
		Model:        model,
		Status:       status,
		DurationMs:   duration.Milliseconds(),
		PromptTokens: promptTokens,
		CreatedAt:    time.Now().UTC(),
	}
	if err := u.db.DB().WithContext(ctx).Create(&entry).Error; err != nil {
		u.logger.Warn("usage log write failed", zap.String("operation", operation), zap.Error(err))
	}
}

// Recent 按时间倒序返回最近 limit 条
func (u *UsageLog) Recent(ctx context.Context, limit int) ([]UsageEntry, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 500:
		limit = 500
	}
	var entries []UsageEntry
	err := u.db.DB().WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
