package migration

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// schemaNotes 迁移名到所建表的说明，status 输出时展示
var schemaNotes = map[string]string{
	"create_settings":  "credentials, preferences",
	"create_reply_log": "reply_log",
}

// CLI 把迁移操作格式化输出到终端，供 replybroker migrate 子命令使用
type CLI struct {
	migrator Migrator
	output   io.Writer
}

// NewCLI 创建 CLI，默认输出到 stdout
func NewCLI(migrator Migrator) *CLI {
	return &CLI{migrator: migrator, output: os.Stdout}
}

// SetOutput 设置输出
func (c *CLI) SetOutput(w io.Writer) {
	c.output = w
}

func (c *CLI) printf(format string, args ...any) {
	fmt.Fprintf(c.output, format, args...)
}

// step 打印开始提示，执行 op，成功后打印当前版本
func (c *CLI) step(ctx context.Context, banner, failure string, op func(context.Context) error) error {
	c.printf("%s\n", banner)
	if err := op(ctx); err != nil {
		return fmt.Errorf("%s: %w", failure, err)
	}
	info, err := c.migrator.Info(ctx)
	if err != nil {
		return err
	}
	c.printf("Done. Current version: %d\n", info.CurrentVersion)
	return nil
}

// RunUp 应用全部待执行迁移
func (c *CLI) RunUp(ctx context.Context) error {
	return c.step(ctx, "Applying settings schema migrations...", "migration failed", c.migrator.Up)
}

// RunDown 回滚最近一次迁移
func (c *CLI) RunDown(ctx context.Context) error {
	return c.step(ctx, "Rolling back last migration...", "rollback failed", c.migrator.Down)
}

// RunDownAll 回滚全部迁移，settings 表会被删除
func (c *CLI) RunDownAll(ctx context.Context) error {
	c.printf("Rolling back all migrations...\n")
	if err := c.migrator.DownAll(ctx); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	c.printf("All migrations rolled back.\n")
	return nil
}

// RunReset 清空后重建 schema
func (c *CLI) RunReset(ctx context.Context) error {
	if err := c.RunDownAll(ctx); err != nil {
		return err
	}
	return c.RunUp(ctx)
}

// RunGoto 迁移到指定版本
func (c *CLI) RunGoto(ctx context.Context, version uint) error {
	return c.step(ctx, fmt.Sprintf("Migrating to version %d...", version), "migration failed",
		func(ctx context.Context) error { return c.migrator.Goto(ctx, version) })
}

// RunForce 强制设置版本，只改版本表，不执行 SQL
func (c *CLI) RunForce(ctx context.Context, version int) error {
	c.printf("Forcing version to %d...\n", version)
	if err := c.migrator.Force(ctx, version); err != nil {
		return fmt.Errorf("force failed: %w", err)
	}
	c.printf("Version forced to %d\n", version)
	return nil
}

// RunVersion 打印当前版本
func (c *CLI) RunVersion(ctx context.Context) error {
	version, dirty, err := c.migrator.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	switch {
	case version == 0:
		c.printf("No migrations applied yet.\n")
	case dirty:
		c.printf("Current version: %d (dirty, run `migrate force %d` after fixing the schema)\n", version, version-1)
	default:
		c.printf("Current version: %d\n", version)
	}
	return nil
}

// RunStatus 打印全部迁移状态表
func (c *CLI) RunStatus(ctx context.Context) error {
	statuses, err := c.migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if len(statuses) == 0 {
		c.printf("No migrations found.\n")
		return nil
	}

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tTABLES\tSTATUS")
	for _, s := range statuses {
		state := "Pending"
		switch {
		case s.Dirty:
			state = "Dirty"
		case s.Applied:
			state = "Applied"
		}
		fmt.Fprintf(w, "%06d\t%s\t%s\t%s\n", s.Version, s.Name, schemaNotes[s.Name], state)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	info, err := c.migrator.Info(ctx)
	if err != nil {
		return err
	}
	c.printf("\nTotal: %d, Applied: %d, Pending: %d\n",
		info.TotalMigrations, info.AppliedMigrations, info.PendingMigrations)
	return nil
}
