package integration

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"suquid-trivia-server/internal/domain"
	"suquid-trivia-server/internal/game"
	pgsource "suquid-trivia-server/internal/infra/postgres"
	pgmigrations "suquid-trivia-server/internal/infra/postgres/migrations"
	redisq "suquid-trivia-server/internal/infra/redis"
	"suquid-trivia-server/internal/transport/tcp"
)

func TestGameEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestionSet(t, ctx, pgURL, domain.QuestionSet{
		ID: "general",
		Questions: []domain.Question{
			{Prompt: "What is 2 + 2?", Options: [3]string{"3", "4", "5"}, Answer: "B"},
		},
	})

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	cache := redisq.NewQuestionCache(redisClient, pgsource.NewQuestionSource(pool), 5*time.Minute)

	questions, err := cache.Load(ctx, "general")
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}

	// A second load must come from Redis, not Postgres.
	if _, err := cache.Load(ctx, "general"); err != nil {
		t.Fatalf("cached load: %v", err)
	}

	registry := game.NewRegistry(zerolog.Nop())
	engine := game.NewEngine(registry, game.NewEventBus(), clockwork.NewRealClock(), game.Config{
		StartDelay: 20 * time.Millisecond,
		RoundDelay: 20 * time.Millisecond,
	}, zerolog.Nop())
	engine.LoadQuestions(questions)

	server := tcp.NewServer("127.0.0.1:0", engine, time.Second, zerolog.Nop())
	if err := server.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = server.Serve(serveCtx) }()

	addr := server.Addr().String()
	alice := login(t, addr, "alice")
	bob := login(t, addr, "bob")

	if err := engine.Start(1); err != nil {
		t.Fatalf("start: %v", err)
	}

	expectPrefix(t, alice, "QUES|What is 2 + 2?")
	expectPrefix(t, bob, "QUES|")

	send(t, alice, "ANS:B")
	time.Sleep(50 * time.Millisecond)
	send(t, bob, "ANS:A")

	if got := expectPrefix(t, alice, "SCORE|"); !strings.HasPrefix(got, "SCORE|Correct|2|2|") {
		t.Fatalf("expected alice's bonus round, got %q", got)
	}
	if got := expectPrefix(t, bob, "SCORE|"); !strings.HasPrefix(got, "SCORE|Wrong|0|0|") {
		t.Fatalf("expected bob's miss, got %q", got)
	}
	expectPrefix(t, alice, "GAME_OVER")
	expectPrefix(t, bob, "GAME_OVER")
}

type client struct {
	conn net.Conn
	r    *bufio.Reader
}

func login(t *testing.T, addr, name string) *client {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	c := &client{conn: conn, r: bufio.NewReader(conn)}
	send(t, c, name)
	if got := expectPrefix(t, c, "OK"); got != "OK" {
		t.Fatalf("auth failed for %s: %q", name, got)
	}
	return c
}

func send(t *testing.T, c *client, line string) {
	t.Helper()
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func expectPrefix(t *testing.T, c *client, prefix string) string {
	t.Helper()
	for i := 0; i < 20; i++ {
		_ = c.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		line, err := c.r.ReadString('\n')
		if err != nil {
			t.Fatalf("waiting for %q: %v", prefix, err)
		}
		line = strings.TrimRight(line, "\n")
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
	t.Fatalf("never saw %q", prefix)
	return ""
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestionSet(t *testing.T, ctx context.Context, dsn string, set domain.QuestionSet) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal set: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_sets (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, set.ID, string(data)); err != nil {
		t.Fatalf("insert set: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
