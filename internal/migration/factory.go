package migration

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/replybroker/config"
)

// defaultTableName 与 golang-migrate 的默认版本表一致
const defaultTableName = "schema_migrations"

// DatabaseURL 把应用的数据库配置转换成 golang-migrate 的连接 URL。
// sqlite 的 Name 是文件路径，mysql 不使用 sslmode。
func DatabaseURL(dbCfg config.DatabaseConfig) (DatabaseType, string, error) {
	dbType, err := ParseDatabaseType(dbCfg.Driver)
	if err != nil {
		return "", "", fmt.Errorf("invalid database type: %w", err)
	}
	switch dbType {
	case DatabaseTypeSQLite:
		return dbType, BuildDatabaseURL(dbType, "", 0, dbCfg.Name, "", "", ""), nil
	case DatabaseTypeMySQL:
		return dbType, BuildDatabaseURL(dbType, dbCfg.Host, dbCfg.Port, dbCfg.Name, dbCfg.User, dbCfg.Password, ""), nil
	default:
		return dbType, BuildDatabaseURL(dbType, dbCfg.Host, dbCfg.Port, dbCfg.Name, dbCfg.User, dbCfg.Password, dbCfg.SSLMode), nil
	}
}

// NewMigratorFromDatabaseConfig serve 启动与 migrate 子命令共用的构造入口
func NewMigratorFromDatabaseConfig(dbCfg config.DatabaseConfig, logger *zap.Logger) (*DefaultMigrator, error) {
	dbType, url, err := DatabaseURL(dbCfg)
	if err != nil {
		return nil, err
	}
	return NewMigrator(&Config{
		DatabaseType: dbType,
		DatabaseURL:  url,
		TableName:    defaultTableName,
		Logger:       logger,
	})
}
