package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"refgate/bot"
	"refgate/impl/auth"
	"refgate/impl/core"
	"refgate/internal/config"
	"refgate/internal/http-server/api"
	"refgate/lib/logger"
	"refgate/lib/sl"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type serveOptions struct {
	*rootOptions
	logDir string
}

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			// a second signal kills the process instead of waiting for shutdown
			context.AfterFunc(ctx, stop)
			return serve(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.logDir, "log", "/var/log/", "path to log file directory")
	return cmd
}

func serve(ctx context.Context, opts *serveOptions) error {
	conf := config.MustLoad(opts.configPath)
	log := logger.SetupLogger(conf.Env, opts.logDir)
	log.Info("starting refgate",
		slog.String("config", opts.configPath),
		slog.String("env", conf.Env),
		slog.String("database", conf.Database.Driver),
	)

	db, err := openDatabase(conf)
	if err != nil {
		log.Error("database connect", sl.Err(err))
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("database close", sl.Err(err))
		}
	}()

	minLevel := logger.ParseLevel(conf.Telegram.LogLevel)
	tgBot, err := bot.NewTgBot(conf.Telegram.ApiKey, nil, log, bot.BotConfig{
		GroupId:           conf.Telegram.GroupId,
		AdminId:           conf.Telegram.AdminId,
		BypassEnabled:     conf.Telegram.BypassEnabled,
		DigestSchedule:    conf.Telegram.DigestSchedule,
		MinLogLevel:       minLevel,
		RequiredReferrals: conf.Referral.Required,
		MaxUsers:          conf.Referral.MaxUsers,
	})
	if err != nil {
		log.Error("telegram bot", sl.Err(err))
		return err
	}

	// errors from here on also reach the admin chat
	log = slog.New(logger.NewTelegramHandler(log.Handler(), tgBot, minLevel))

	handler := core.New(db, conf.Referral, log)
	handler.SetInviter(tgBot)
	handler.SetAdmissionListener(tgBot)
	if conf.Api.Enabled {
		handler.SetAuthService(auth.New(conf.Api.Token))
	}
	tgBot.SetCore(handler)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tgBot.Start(ctx)
	})
	if conf.Api.Enabled {
		server := api.New(conf, log, handler)
		g.Go(func() error {
			return server.Run(ctx)
		})
	}

	err = g.Wait()
	log.Info("refgate stopped")
	return err
}
