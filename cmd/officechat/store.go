package main

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/totegamma/officechat/internal/config"
	"github.com/totegamma/officechat/internal/infra/database"
	"github.com/totegamma/officechat/internal/infra/store"
)

// openStore uses Postgres when a dsn is configured and the data file otherwise.
func openStore(ctx context.Context, conf config.Config) (*store.Store, error) {
	var backend store.Backend

	if conf.Server.PostgresDsn != "" {
		db, err := database.NewPostgres(conf.Server.PostgresDsn)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect database")
		}
		err = database.MigratePostgres(db)
		if err != nil {
			return nil, errors.Wrap(err, "failed to migrate database")
		}
		backend = store.NewPostgresBackend(db)
		slog.Info("Using postgres backend", slog.String("module", "main"))
	} else {
		backend = store.NewFileBackend(conf.Server.DataPath)
		slog.Info(
			"Using file backend",
			slog.String("path", conf.Server.DataPath),
			slog.String("module", "main"),
		)
	}

	return store.Open(ctx, backend)
}
