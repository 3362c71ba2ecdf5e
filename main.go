package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"binance-monitor/config"
	"binance-monitor/internal/api"
	"binance-monitor/internal/auth"
	"binance-monitor/internal/binance"
	"binance-monitor/internal/database"
	"binance-monitor/internal/hosts"
	"binance-monitor/internal/logging"
	"binance-monitor/internal/pipeline"
	"binance-monitor/internal/pricetable"
	"binance-monitor/internal/scheduler"
	"binance-monitor/internal/sink"
	"binance-monitor/internal/telegram"
	"binance-monitor/internal/vault"
)

const tokenValidity = 24 * time.Hour

// streamFactory builds one user-data stream per monitored account.
type streamFactory struct {
	out *pipeline.Queue[binance.StreamEvent]
	log zerolog.Logger
}

func (f *streamFactory) NewStream(acct hosts.Account) hosts.Stream {
	return binance.NewUserDataStream(binance.NewClient(acct.APIKey),
		acct.Alias, acct.TelegramGroup, f.out, f.log)
}

func main() {
	port := flag.Int("p", 8080, "listen port")
	bindIP := flag.String("a", "0.0.0.0", "bind address")
	configPath := flag.String("d", "config/config.json", "config file path")
	launchType := flag.String("y", "dev", "launch type, selects the database entry")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dbEntry, err := cfg.DatabaseFor(*launchType)
	if err != nil {
		log.Fatalf("Failed to select database: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogPretty)
	mainLog := logging.Component(logger, "main")
	mainLog.Info().Str("launch_type", *launchType).Msg("starting binance monitor")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Vault overrides the config-file secrets when enabled.
	vaultClient, err := vault.NewClient(cfg.Vault)
	if err != nil {
		mainLog.Fatal().Err(err).Msg("vault client failed")
	}
	secrets, err := vaultClient.Load(ctx)
	if err != nil {
		mainLog.Fatal().Err(err).Msg("vault secrets load failed")
	}
	secrets.Apply(cfg, &dbEntry)

	db, err := database.NewDB(ctx, database.Config{
		User:     dbEntry.Data.Username,
		Password: dbEntry.Data.Password,
		DSN:      dbEntry.Data.DBDNS,
	}, logger)
	if err != nil {
		mainLog.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		mainLog.Fatal().Err(err).Msg("database migrations failed")
	}
	go db.KeepAlive(ctx)

	repo := database.NewRepository(db)

	// Market data side: REST seed once, then the mini-ticker stream.
	prices := pricetable.NewTable()
	market := binance.NewMarketStream(binance.NewClient(""), prices, logger)
	go market.Run(ctx)

	// Telegram delivery: chat resolver backed by tg_chats, sender pool.
	resolver := telegram.NewResolver(cfg.BotToken, repo, logger)
	resolver.Preload(ctx)
	notifier := telegram.NewNotifier(resolver, telegram.NewDispatcher(cfg.BotToken, logger))

	// Account event pipeline: user-data streams -> queue -> notify and
	// persist.
	events := pipeline.NewQueue[binance.StreamEvent]()
	consumer := sink.NewConsumer(events, notifier, repo, logger)
	go consumer.Run(ctx)

	accounts, err := repo.LoadHosts(ctx)
	if err != nil {
		mainLog.Fatal().Err(err).Msg("initial host load failed")
	}

	hostEvents := pipeline.NewQueue[hosts.Event]()
	supervisor := hosts.NewSupervisor(&streamFactory{out: events, log: logger}, hostEvents, logger)
	supervisor.Bootstrap(accounts)
	go supervisor.Run()

	reconciler := hosts.NewReconciler(repo, hostEvents, accounts, logger)
	go reconciler.Run(ctx)

	// Scheduled monitoring tasks.
	taskQueue := pipeline.NewQueue[scheduler.Message]()
	watcher := scheduler.NewWatcher(taskQueue, repo, prices, logger)
	go watcher.Run(ctx)

	// Control plane.
	tokenCache := newTokenCache(cfg, logger)
	authService := auth.NewService(repo,
		auth.NewJWTManager(cfg.JWT, tokenValidity), tokenCache, logger)

	server := api.NewServer(api.ServerConfig{
		Host:           *bindIP,
		Port:           *port,
		ProductionMode: *launchType == "prod",
		ClientVersion:  cfg.ClientVersion,
		ServerVersion:  cfg.ServerVersion,
	}, repo, authService, prices, taskQueue, logger)

	if err := server.Run(ctx); err != nil {
		mainLog.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	mainLog.Info().Msg("shutdown complete")
}

// newTokenCache picks Redis when configured, an in-process map
// otherwise.
func newTokenCache(cfg *config.Config, logger zerolog.Logger) auth.TokenCache {
	if !cfg.Redis.Enabled {
		return auth.NewMemoryTokenCache()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error().Err(err).Msg("redis unreachable, falling back to in-memory token cache")
		return auth.NewMemoryTokenCache()
	}
	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis token cache enabled")
	return auth.NewRedisTokenCache(client)
}
