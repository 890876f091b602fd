package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/infra/leaderboard"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/infra/postgres"
	redisstore "trivia-quiz-service/internal/infra/redis"
	transport "trivia-quiz-service/internal/transport/http"
	"trivia-quiz-service/internal/trivia"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
		if err := MigrateResults(ctx, cfg.Postgres.URL); err != nil {
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
		defer redisClient.Close()
	}

	var tokenStore trivia.TokenStore = memory.NewTokenStore()
	var store app.SessionRepository = memory.NewSessionStore()
	if redisClient != nil {
		tokenStore = redisstore.NewTokenStore(redisClient)
		store = redisstore.NewSessionStore(redisClient, config.Duration(cfg.Redis.TTL, 10*time.Minute))
	}

	source := newTriviaSource(cfg, tokenStore)
	fetcher := app.NewFetcher(source, retryPolicy(cfg))
	prefetcher := app.NewPrefetcher(prefetchPolicy(cfg))

	var submitters []app.ResultSubmitter
	if cfg.Leaderboard.BaseURL != "" {
		httpClient := &http.Client{Timeout: config.Duration(cfg.Leaderboard.Timeout, 10*time.Second)}
		submitters = append(submitters, leaderboard.NewClient(httpClient, cfg.Leaderboard.BaseURL))
	}

	var results *postgres.ResultStore
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		results = postgres.NewResultStore(pool)
		submitters = append(submitters, results)
	}

	service := app.NewQuizService(store, fetcher, prefetcher, submitters...)
	wsHandler := transport.NewWSHandler(service, func(token string) (string, error) {
		return leaderboard.Identity(token, time.Now())
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/categories", transport.Categories)
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	if results != nil {
		mux.Handle("/scores/", transport.NewScoresHandler(results))
	}

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
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

func newTriviaSource(cfg config.Config, tokenStore trivia.TokenStore) *trivia.Source {
	client := newTriviaClient(cfg)
	tokens := trivia.NewTokenManager(client, tokenStore, config.Duration(cfg.Trivia.TokenLifetime, trivia.DefaultTokenLifetime))
	return trivia.NewSource(client, tokens)
}

func newTriviaClient(cfg config.Config) *trivia.Client {
	httpClient := &http.Client{Timeout: config.Duration(cfg.Trivia.RequestTimeout, 10*time.Second)}
	return trivia.NewClient(httpClient, cfg.Trivia.BaseURL)
}

func retryPolicy(cfg config.Config) app.RetryPolicy {
	def := app.DefaultRetryPolicy()
	return app.RetryPolicy{
		MaxRetries: config.Int(cfg.Retry.MaxRetries, def.MaxRetries),
		BaseDelay:  config.Duration(cfg.Retry.BaseDelay, def.BaseDelay),
	}
}

func prefetchPolicy(cfg config.Config) app.PrefetchPolicy {
	def := app.DefaultPrefetchPolicy()
	return app.PrefetchPolicy{
		InitialDelay: config.Duration(cfg.Prefetch.InitialDelay, def.InitialDelay),
		Step:         config.Duration(cfg.Prefetch.Step, def.Step),
		MaxDelay:     config.Duration(cfg.Prefetch.MaxDelay, def.MaxDelay),
		MaxAttempts:  config.Int(cfg.Prefetch.MaxAttempts, def.MaxAttempts),
	}
}
