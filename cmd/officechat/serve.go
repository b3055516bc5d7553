package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/totegamma/officechat/internal/config"
	"github.com/totegamma/officechat/internal/domain"
	"github.com/totegamma/officechat/internal/infra/database"
	"github.com/totegamma/officechat/internal/infra/directory"
	"github.com/totegamma/officechat/internal/present/rest"
	authmw "github.com/totegamma/officechat/internal/present/rest/middleware"
	"github.com/totegamma/officechat/internal/service"
	"github.com/totegamma/officechat/internal/usecase"
	"github.com/totegamma/officechat/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and realtime server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.Load(configPath)
		if err != nil {
			return err
		}
		setupLogger(conf.Server.LogLevel)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, conf)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, conf config.Config) error {

	if conf.Server.EnableTrace {
		shutdown, err := setupTraceProvider(ctx, conf.Server.TraceEndpoint, "officechat", version)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	s, err := openStore(ctx, conf)
	if err != nil {
		return err
	}

	var dir usecase.Directory
	if conf.Directory.URL != "" {
		dir = directory.NewRemote(conf.Directory.URL, conf.Directory.CacheTTL)
	} else {
		dir = directory.NewStatic(conf.Users)
	}

	var mirror service.Mirror
	if conf.Server.RedisAddr != "" {
		rdb, err := database.NewRedis(ctx, conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		mirror = service.NewSignalService(rdb, conf.Server.RedisChannel)
	}

	presence := service.NewPresenceTracker()
	fanout := service.NewFanout(presence, mirror)
	presence.OnChange(func(ctx context.Context, online []string) {
		fanout.Broadcast(ctx, domain.NewPresenceEvent(online))
	})

	messageUsecase := usecase.NewMessageUsecase(s, dir, fanout, usecase.SystemClock, utils.NewID)
	noteUsecase := usecase.NewNoteUsecase(s, dir, usecase.SystemClock, utils.NewID)
	activityUsecase := usecase.NewActivityUsecase(s, dir)
	settingsUsecase := usecase.NewSettingsUsecase(s, dir, usecase.SystemClock, utils.NewID)
	scheduler := usecase.NewScheduler(s, fanout, usecase.SystemClock, utils.NewID)

	handler := rest.NewHandler(
		dir,
		messageUsecase,
		noteUsecase,
		activityUsecase,
		settingsUsecase,
		presence,
		authmw.NewAuthMiddleware(dir, conf.Server.IdentityHeader),
	)

	e := echo.New()
	e.HideBanner = true
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("officechat"))
	}
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	handler.RegisterRoutes(e)

	go scheduler.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info(
			"Server starting",
			slog.String("listen", conf.Server.Listen),
			slog.String("module", "main"),
		)
		err := e.Start(conf.Server.Listen)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	slog.Info("Shutting down", slog.String("module", "main"))
	presence.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
