package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizforge-service/internal/app"
	"quizforge-service/internal/domain"
	infrapg "quizforge-service/internal/infra/postgres"
	pgmigrations "quizforge-service/internal/infra/postgres/migrations"
	infraredis "quizforge-service/internal/infra/redis"
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := infrapg.NewStore(pool)
	service := app.NewQuizService(store)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	views := infraredis.NewViewCache(redisClient, service, 5*time.Minute)

	quizID, err := service.IngestQuiz(ctx, sampleDoc("Go Basics", 3), "alice")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	bobQuizID, err := service.IngestQuiz(ctx, sampleDoc("Networking", 1), "bob")
	if err != nil {
		t.Fatalf("ingest second owner: %v", err)
	}

	// An empty owner is unscoped at the store level.
	all, err := store.ListQuizzes(ctx, "")
	if err != nil {
		t.Fatalf("unscoped list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected unscoped list to span owners, got %d rows", len(all))
	}
	mine, err := store.ListQuizzes(ctx, "alice")
	if err != nil {
		t.Fatalf("scoped list: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected one quiz for alice, got %d", len(mine))
	}

	view, err := views.Get(ctx, quizID, "alice")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Name != "Go Basics" || len(view.Questions) != 3 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if _, err := views.Get(ctx, quizID, "mallory"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}

	if err := service.RecordAttempt(ctx, quizID, 1, 3, "alice"); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if err := service.RecordAttempt(ctx, quizID, 3, 3, "alice"); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	latest, err := service.LatestAttempts(ctx, "alice")
	if err != nil {
		t.Fatalf("latest attempts: %v", err)
	}
	if got := latest[quizID]; got.Score != 3 || got.Total != 3 {
		t.Fatalf("expected latest attempt 3/3, got %+v", got)
	}
	if err := service.RecordAttempt(ctx, bobQuizID, 1, 1, "bob"); err != nil {
		t.Fatalf("attempt for bob: %v", err)
	}
	allAttempts, err := store.AttemptsNewestFirst(ctx, "")
	if err != nil {
		t.Fatalf("unscoped attempts: %v", err)
	}
	if len(allAttempts) != 3 {
		t.Fatalf("expected unscoped attempts to span owners, got %d rows", len(allAttempts))
	}

	mockID, err := service.ComposeMockExam(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("mock exam: %v", err)
	}
	mockView, err := service.AssembleQuiz(ctx, mockID, "alice")
	if err != nil {
		t.Fatalf("assemble mock: %v", err)
	}
	if len(mockView.Questions) != 2 {
		t.Fatalf("expected 2 mock questions, got %d", len(mockView.Questions))
	}

	// The mock exam shares the sampled questions, so they must survive
	// deletion of the source quiz.
	if err := service.DeleteQuiz(ctx, quizID, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := views.Invalidate(ctx, quizID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := service.AssembleQuiz(ctx, quizID, "alice"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected deleted quiz gone, got %v", err)
	}
	mockView, err = service.AssembleQuiz(ctx, mockID, "alice")
	if err != nil {
		t.Fatalf("assemble mock after delete: %v", err)
	}
	if len(mockView.Questions) != 2 {
		t.Fatalf("expected shared questions to survive, got %d", len(mockView.Questions))
	}

	if err := service.DeleteQuiz(ctx, mockID, "alice"); err != nil {
		t.Fatalf("delete mock: %v", err)
	}
	if _, err := service.LatestAttempts(ctx, "alice"); err != nil {
		t.Fatalf("latest attempts after delete: %v", err)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
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
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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

func sampleDoc(name string, questions int) domain.QuizDoc {
	doc := domain.QuizDoc{Name: name, Description: "integration fixture"}
	for i := 0; i < questions; i++ {
		doc.Questions = append(doc.Questions, domain.QuestionDoc{
			Type:          domain.QuestionTypeMultipleChoice,
			Question:      fmt.Sprintf("Question %d?", i+1),
			CorrectAnswer: "A",
			MultiChoiceOptions: []string{
				"A", "B", "C", "D",
			},
		})
	}
	return doc
}
