package main

import (
	"context"

	config "github.com/homevault/notifier/internal/config/notifier"
	"github.com/homevault/notifier/internal/obs"
)

func initOTel(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	ot, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		return nil, err
	}
	return ot.Shutdown, nil
}
