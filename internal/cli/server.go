package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/config"
	"trivia-session-service/internal/infra/memory"
	pgloader "trivia-session-service/internal/infra/postgres"
	redisinfra "trivia-session-service/internal/infra/redis"
	sqliteloader "trivia-session-service/internal/infra/sqlite"
	transport "trivia-session-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, time.Hour)
	bankTTL := config.TTLDuration(cfg.Game.BankTTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	// The question bank comes from Postgres, a local sqlite file, or the
	// bundled starter set, in that order of preference. A loader that can
	// sample in the database is used directly when no Redis cache sits in
	// front of it.
	var (
		loader memory.BankLoader = memory.NewStaticLoader(memory.DefaultBank())
		direct app.QuestionRepository
	)
	switch {
	case pool != nil:
		pg := pgloader.NewQuestionLoader(pool)
		loader, direct = pg, pg
	case cfg.SQLite.Path != "":
		sl, err := sqliteloader.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer sl.Close()
		loader, direct = sl, sl
	}

	var questionRepo app.QuestionRepository
	switch {
	case redisClient != nil:
		questionRepo = redisinfra.NewQuestionBank(redisClient, loader, bankTTL)
	case direct != nil:
		questionRepo = direct
	default:
		questionRepo = memory.NewQuestionBank(loader, bankTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	settings := app.DefaultSettings()
	settings.QuestionTime = config.TTLDuration(cfg.Game.QuestionTime, settings.QuestionTime)
	settings.ResultsPause = config.TTLDuration(cfg.Game.ResultsPause, settings.ResultsPause)
	if cfg.Game.CodeLength > 0 {
		settings.CodeLength = cfg.Game.CodeLength
	}

	hub := transport.NewHub()
	service := app.NewGameService(store, questionRepo, hub, settings)
	wsHandler := transport.NewWSHandler(service, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
