package main

import (
	"context"

	config "github.com/homevault/notifier/internal/config/notifier"
	pg "github.com/homevault/notifier/internal/repository/postgres"
)

func initDB(ctx context.Context, cfg *config.Config) (*pg.DB, error) {
	return pg.NewDB(ctx, cfg.DB)
}
