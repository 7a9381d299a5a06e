package main

import (
	"context"
	"errors"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/chatbots/internal/bot"
	"github.com/edgard/chatbots/internal/bot/handlers"
	"github.com/edgard/chatbots/internal/bot/tasks"
	"github.com/edgard/chatbots/internal/botstore"
	"github.com/edgard/chatbots/internal/database"
	"github.com/edgard/chatbots/internal/gemini"
	"github.com/edgard/chatbots/internal/logger"
	"github.com/edgard/chatbots/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot, the scheduler and the bundle watcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes every component (config, logger, database, bots, store,
// AI client, Telegram, scheduler) and runs them until ctx is cancelled.
func runServe(ctx context.Context) error {
	cfg, log, err := setup(nil)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		log.Error("Telegram settings are incomplete", "error", err)
		return err
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	mgr, err := newManager(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to load bots", "bundle_dir", cfg.Bots.BundleDir, "error", err)
		return err
	}
	defer mgr.Close()

	shop := botstore.New(store, mgr, mgr, botstore.Options{
		ProductPrefix: cfg.Store.ProductPrefix,
		GetLabel:      cfg.Store.GetLabel,
		Locale:        cfg.Store.Locale,
	}, log)
	if err := shop.SyncProducts(ctx, botstore.ProductsFromConfig(cfg.Store.Products)); err != nil {
		log.Error("Failed to sync product catalog", "error", err)
		return err
	}

	tDeps := tasks.TaskDeps{
		Logger:  log,
		Store:   store,
		Manager: mgr,
		Config:  cfg,
	}
	if cfg.Gemini.Enabled() {
		gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			log.Error("Failed to initialize Gemini client", "error", err)
			return err
		}
		tDeps.GeminiClient = gemClient
	}

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Manager:  mgr,
		BotStore: shop,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return err
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return err
	}
	cfg.Telegram.BotInfo = *me
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return err
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}
	app := bot.NewBot(log, cfg, mgr, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return runErr
	}

	log.Info("Bot stopped gracefully.")
	return nil
}
