// Command admin 运维 CLI：建表、创建超级用户、改角色、按 ISBN 批量导入
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"

	"github.com/dukeofgo/librarius/internal/app"
	"github.com/dukeofgo/librarius/internal/core/config"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{
		out: os.Stdout,
		open: func(ctx context.Context, cfgPath string) (*app.App, func(), error) {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return nil, nil, err
			}
			log, cleanup := app.NewLogger(cfg, "admin")
			a, err := app.New(ctx, cfg, log)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			return a, func() { a.Close(); cleanup() }, nil
		},
		password: readPassword,
	}
	if err := newRootCmd(c).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
