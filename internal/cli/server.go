package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"suquid-trivia-server/internal/config"
	"suquid-trivia-server/internal/domain"
	"suquid-trivia-server/internal/game"
	"suquid-trivia-server/internal/infra/postgres"
	"suquid-trivia-server/internal/infra/questions"
	redisq "suquid-trivia-server/internal/infra/redis"
	transport "suquid-trivia-server/internal/transport/http"
	"suquid-trivia-server/internal/transport/tcp"
)

const defaultQuestionSet = "general"

// questionSource is satisfied by the Postgres source, the static source, and
// the Redis cache wrapping either.
type questionSource interface {
	Load(ctx context.Context, setID string) ([]domain.Question, error)
}

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, tcpAddr, httpAddr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *tcpAddr, *httpAddr)
		},
	}
}

func runServer(ctx context.Context, configPath, tcpFlag, httpFlag string) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	tcpAddr := firstNonEmpty(tcpFlag, cfg.Server.TCPAddr, ":12345")
	httpAddr := firstNonEmpty(httpFlag, cfg.Server.HTTPAddr, ":8080")

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	questionList, err := loadQuestions(ctx, cfg, pool, redisClient)
	if err != nil {
		return err
	}

	registry := game.NewRegistry(logger)
	bus := game.NewEventBus()
	engine := game.NewEngine(registry, bus, clockwork.NewRealClock(), game.Config{
		StartDelay: config.Duration(cfg.Game.StartDelay, 500*time.Millisecond),
		RoundDelay: config.Duration(cfg.Game.RoundDelay, 2*time.Second),
	}, logger)
	engine.LoadQuestions(questionList)

	writeTimeout := config.Duration(cfg.Server.WriteTimeout, 10*time.Second)
	tcpServer := tcp.NewServer(tcpAddr, engine, writeTimeout, logger)

	control := transport.NewControlHandler(engine, registry, bus, logger)
	httpServer := &http.Server{
		Addr:         httpAddr,
		Handler:      control.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tcpServer.Serve(ctx)
	})
	g.Go(func() error {
		logger.Info().Str("addr", httpAddr).Msg("starting operator API")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		registry.CloseAll()
		return nil
	})
	return g.Wait()
}

// loadQuestions resolves the question list for this server run: an operator
// question file wins, then Postgres, then the built-in demo set. Non-file
// sources are cached in Redis when one is configured.
func loadQuestions(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, redisClient *goredis.Client) ([]domain.Question, error) {
	if cfg.Questions.File != "" {
		return questions.ParseFile(cfg.Questions.File)
	}

	setID := cfg.Questions.Set
	if setID == "" {
		setID = defaultQuestionSet
	}

	var source questionSource = questions.NewStaticSource(sampleQuestionSets())
	if pool != nil {
		source = postgres.NewQuestionSource(pool)
	}
	if redisClient != nil {
		ttl := config.Duration(cfg.Redis.TTL, 10*time.Minute)
		source = redisq.NewQuestionCache(redisClient, source, ttl)
	}
	return source.Load(ctx, setID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// sampleQuestionSets is the built-in demo set used when neither a question
// file nor Postgres is configured.
func sampleQuestionSets() map[string][]domain.Question {
	return map[string][]domain.Question{
		defaultQuestionSet: {
			{
				Prompt:  "What is 2 + 2?",
				Options: [3]string{"3", "4", "5"},
				Answer:  "B",
			},
			{
				Prompt:  "Which planet is known as the Red Planet?",
				Options: [3]string{"Venus", "Mars", "Jupiter"},
				Answer:  "B",
			},
			{
				Prompt:  "What is the capital of France?",
				Options: [3]string{"Paris", "Rome", "Madrid"},
				Answer:  "A",
			},
		},
	}
}
