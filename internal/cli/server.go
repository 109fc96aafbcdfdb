package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"trivia-service/internal/app"
	"trivia-service/internal/config"
	"trivia-service/internal/infra/memory"
	"trivia-service/internal/infra/postgres"
	redisinfra "trivia-service/internal/infra/redis"
	"trivia-service/internal/infra/sqlite"
	"trivia-service/internal/logger"
	"trivia-service/internal/metrics"
	"trivia-service/internal/provider"
	"trivia-service/internal/random"
	transport "trivia-service/internal/transport/http"
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
	log, err := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	if err := runMigrations(ctx, cfg, log); err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.NewManager(metrics.WithProcessCollectors())
	opts := []app.Option{app.WithLogger(log), app.WithMetrics(m)}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		store = redisinfra.NewUserCache(store, redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
		opts = append(opts, app.WithKeyLocker(redisinfra.NewKeyLocker(redisClient, config.TTLDuration(cfg.Lock.TTL, 5*time.Second))))
		log.Info("redis enabled", slog.String("addr", cfg.Redis.Addr))
	} else {
		opts = append(opts, app.WithKeyLocker(memory.NewKeyLocker()))
	}

	httpClient := &http.Client{Timeout: config.TTLDuration(cfg.Provider.Timeout, 10*time.Second)}
	source, err := newQuestionSource(cfg, httpClient, log)
	if err != nil {
		return err
	}
	selector := random.NewSelector(newRandomSource(cfg, httpClient))

	trivia := app.NewTriviaService(store, selector, source, opts...)
	users := app.NewUserService(store, log)
	handler := transport.NewHandler(trivia, users,
		transport.WithLogger(log),
		transport.WithMetrics(m),
		transport.WithCORS(cfg.Server.CORS),
	)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting trivia service",
			slog.String("addr", server.Addr),
			slog.String("store", cfg.Store.Driver),
			slog.String("provider", cfg.Provider.Kind),
			slog.String("random", cfg.Random.Source))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config) (app.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.NewStore(pool), pool.Close, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.DriverMemory:
		return memory.NewStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func newQuestionSource(cfg config.Config, client *http.Client, log *slog.Logger) (app.QuestionSource, error) {
	switch cfg.Provider.Kind {
	case config.ProviderOpenTDB:
		opts := []provider.OpenTDBOption{provider.WithHTTPClient(client), provider.WithLogger(log)}
		if cfg.Provider.OpenTDB.UseToken {
			opts = append(opts, provider.WithSessionToken())
		}
		return provider.NewOpenTDB(cfg.Provider.OpenTDB.URL, opts...), nil
	case config.ProviderOpenAI:
		return provider.NewOpenAI(cfg.Provider.OpenAI.APIKey, cfg.Provider.OpenAI.Model, cfg.Provider.OpenAI.BaseURL), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Kind)
}

func newRandomSource(cfg config.Config, client *http.Client) random.Source {
	if cfg.Random.Source == config.RandomLocal {
		return random.NewLocal(time.Now().UnixNano())
	}
	return random.NewDiceAPI(cfg.Random.DiceURL, client)
}
