package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/replybroker/internal/database"
	"github.com/BaSui01/replybroker/llm"
)

// =============================================================================
// 🗄️ 数据库后端
// =============================================================================

// 表结构由 internal/migration 维护，模型与之对应

// Credential 一个厂商的密钥
type Credential struct {
	Vendor    string    `gorm:"column:vendor;primaryKey;size:32"`
	APIKey    string    `gorm:"column:api_key;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName implements gorm.Tabler.
func (Credential) TableName() string { return "credentials" }

// Preference 键值偏好
type Preference struct {
	Name      string    `gorm:"column:name;primaryKey;size:64"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName implements gorm.Tabler.
func (Preference) TableName() string { return "preferences" }

const (
	prefDefaultModel = "default_model"
	writeRetries     = 3
)

// DB 是数据库后端依赖的连接池能力，*database.PoolManager 满足该接口
type DB interface {
	DB() *gorm.DB
	WithTransactionRetry(ctx context.Context, maxRetries int, fn database.TransactionFunc) error
}

// DBSource 以 credentials / preferences 表为后端，可写
type DBSource struct {
	db            DB
	fallbackModel string
	logger        *zap.Logger
}

// NewDBSource 创建数据库后端；preferences 中没有默认模型时使用 fallbackModel
func NewDBSource(db DB, fallbackModel string, logger *zap.Logger) (*DBSource, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBSource{
		db:            db,
		fallbackModel: fallbackModel,
		logger:        logger.With(zap.String("component", "settings_db")),
	}, nil
}

// Credential implements Source.
func (s *DBSource) Credential(ctx context.Context, vendor llm.Vendor) (string, error) {
	var c Credential
	err := s.db.DB().WithContext(ctx).Where("vendor = ?", string(vendor)).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query credential: %w", err)
	}
	return c.APIKey, nil
}

// DefaultModel implements Source.
func (s *DBSource) DefaultModel(ctx context.Context) (string, error) {
	var p Preference
	err := s.db.DB().WithContext(ctx).Where("name = ?", prefDefaultModel).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.fallbackModel, nil
	}
	if err != nil {
		return "", fmt.Errorf("query default model: %w", err)
	}
	return p.Value, nil
}

// SetCredential implements Writer.
func (s *DBSource) SetCredential(ctx context.Context, vendor llm.Vendor, key string) error {
	row := Credential{Vendor: string(vendor), APIKey: key, UpdatedAt: time.Now().UTC()}
	return s.db.WithTransactionRetry(ctx, writeRetries, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vendor"}},
			DoUpdates: clause.AssignmentColumns([]string{"api_key", "updated_at"}),
		}).Create(&row).Error
	})
}

// DeleteCredential implements Writer.
func (s *DBSource) DeleteCredential(ctx context.Context, vendor llm.Vendor) error {
	return s.db.WithTransactionRetry(ctx, writeRetries, func(tx *gorm.DB) error {
		return tx.Where("vendor = ?", string(vendor)).Delete(&Credential{}).Error
	})
}

// SetDefaultModel implements Writer.
func (s *DBSource) SetDefaultModel(ctx context.Context, modelID string) error {
	row := Preference{Name: prefDefaultModel, Value: modelID, UpdatedAt: time.Now().UTC()}
	return s.db.WithTransactionRetry(ctx, writeRetries, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&row).Error
	})
}
