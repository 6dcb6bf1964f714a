package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/replybroker/internal/migration"
)

// =============================================================================
// 🗄️ 数据库迁移命令
// =============================================================================

// migrateFlags 所有迁移子命令共享的参数
type migrateFlags struct {
	configPath *string
	dbType     *string
	dbURL      *string
	verbose    *bool
}

func bindMigrateFlags(fs *flag.FlagSet) migrateFlags {
	return migrateFlags{
		configPath: fs.String("config", "", "Path to config file"),
		dbType:     fs.String("db-type", "", "Database type (postgres, mysql, sqlite)"),
		dbURL:      fs.String("db-url", "", "Database connection URL"),
		verbose:    fs.Bool("verbose", false, "Log migration steps"),
	}
}

// runMigrate 分发 migrate 子命令
func runMigrate(args []string) {
	if len(args) < 1 {
		printMigrateUsage()
		os.Exit(1)
	}

	subcommand, subargs := args[0], args[1:]
	ctx := context.Background()

	switch subcommand {
	case "up":
		withMigrator("migrate up", subargs, func(cli *migration.CLI) error { return cli.RunUp(ctx) })
	case "down":
		fs := flag.NewFlagSet("migrate down", flag.ExitOnError)
		all := fs.Bool("all", false, "Rollback all migrations")
		flags := bindMigrateFlags(fs)
		_ = fs.Parse(subargs)
		runWith(flags, func(cli *migration.CLI) error {
			if *all {
				return cli.RunDownAll(ctx)
			}
			return cli.RunDown(ctx)
		})
	case "status":
		withMigrator("migrate status", subargs, func(cli *migration.CLI) error { return cli.RunStatus(ctx) })
	case "version":
		withMigrator("migrate version", subargs, func(cli *migration.CLI) error { return cli.RunVersion(ctx) })
	case "goto":
		version := parseVersionArg("goto", subargs)
		if version < 0 {
			fmt.Fprintf(os.Stderr, "Invalid version number: %s\n", subargs[0])
			os.Exit(1)
		}
		withMigrator("migrate goto", subargs[1:], func(cli *migration.CLI) error { return cli.RunGoto(ctx, uint(version)) })
	case "force":
		version := parseVersionArg("force", subargs)
		withMigrator("migrate force", subargs[1:], func(cli *migration.CLI) error { return cli.RunForce(ctx, int(version)) })
	case "reset":
		withMigrator("migrate reset", subargs, func(cli *migration.CLI) error { return cli.RunReset(ctx) })
	case "help", "-h", "--help":
		printMigrateUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s\n", subcommand)
		printMigrateUsage()
		os.Exit(1)
	}
}

// parseVersionArg 读取第一个位置参数作为版本号；force 允许 -1（清除 dirty 状态）
func parseVersionArg(cmd string, args []string) int64 {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: replybroker migrate %s <version>\n", cmd)
		os.Exit(1)
	}
	version, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil || version < -1 {
		fmt.Fprintf(os.Stderr, "Invalid version number: %s\n", args[0])
		os.Exit(1)
	}
	return version
}

func withMigrator(name string, args []string, run func(cli *migration.CLI) error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := bindMigrateFlags(fs)
	_ = fs.Parse(args)
	runWith(flags, run)
}

func runWith(flags migrateFlags, run func(cli *migration.CLI) error) {
	migrator, err := createMigrator(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrator: %v\n", err)
		os.Exit(1)
	}
	defer migrator.Close()

	if err := run(migration.NewCLI(migrator)); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
}

// createMigrator --db-type 与 --db-url 同时给出时直接使用，否则读取配置文件
func createMigrator(flags migrateFlags) (*migration.DefaultMigrator, error) {
	logger := zap.NewNop()
	if *flags.verbose {
		logger, _ = zap.NewDevelopment()
	}

	if *flags.dbType != "" && *flags.dbURL != "" {
		dbType, err := migration.ParseDatabaseType(*flags.dbType)
		if err != nil {
			return nil, err
		}
		return migration.NewMigrator(&migration.Config{
			DatabaseType: dbType,
			DatabaseURL:  *flags.dbURL,
			TableName:    "schema_migrations",
			Logger:       logger,
		})
	}

	cfg, err := loadConfig(*flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if *flags.dbType != "" {
		cfg.Database.Driver = *flags.dbType
	}
	return migration.NewMigratorFromDatabaseConfig(cfg.Database, logger)
}

// printMigrateUsage 打印 migrate 用法
func printMigrateUsage() {
	fmt.Println(`Database Migration Commands

Usage:
  replybroker migrate <subcommand> [options]

Subcommands:
  up        Apply all pending migrations
  down      Rollback the last migration (--all for every migration)
  status    Show migration status
  version   Show current migration version
  goto      Migrate to a specific version
  force     Force set migration version (use with caution)
  reset     Rollback all migrations and re-apply them
  help      Show this help message

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql, sqlite (default: from config)
  --db-url <url>      Database connection URL (default: from config)
  --verbose           Log migration steps

Examples:
  replybroker migrate up
  replybroker migrate up --config /etc/replybroker/config.yaml
  replybroker migrate up --db-type sqlite --db-url "file:replybroker.db"
  replybroker migrate goto 1
  replybroker migrate force 0`)
}
