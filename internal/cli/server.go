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

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	pginfra "live-quiz-service/internal/infra/postgres"
	redisinfra "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/live"
	transport "live-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live quiz server",
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pginfra.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	// Durable ledger when Postgres is around, Redis next, in-memory for
	// demos.
	var ledger app.ResponseLedger
	switch {
	case pool != nil:
		ledger = pginfra.NewLedger(pool)
	case redisClient != nil:
		ledger = redisinfra.NewLedger(redisClient)
	default:
		ledger = memory.NewLedger()
	}

	var statuses app.StatusStore
	if redisClient != nil {
		statuses = redisinfra.NewStatusStore(redisClient)
	} else {
		statuses = memory.NewStatusStore()
	}

	sessions := memory.NewSessionStore()
	hub := live.NewHub()
	engine := app.NewEngine(quizRepo, ledger, statuses, sessions, hub, app.Options{
		TopN:          cfg.Leaderboard.TopN,
		SubmitRetries: cfg.Submit.Retries,
		SubmitBackoff: config.TTLDuration(cfg.Submit.Backoff, 100*time.Millisecond),
	})

	if pool == nil && redisClient == nil {
		// Demo quizzes start out active so participants can join right away.
		for id := range sampleQuizzes() {
			if err := statuses.Set(ctx, id, domain.StatusActive); err != nil {
				return err
			}
		}
	}

	handler := transport.NewHandler(engine, cfg.Teacher.Passcode)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/quiz", handler.ServeQuizWS)
	mux.HandleFunc("/ws/leaderboard", handler.ServeLeaderboardWS)
	mux.HandleFunc("/ws/control", handler.ServeControlWS)
	mux.HandleFunc("/export", handler.ServeExport)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	sweepInterval := config.TTLDuration(cfg.Session.SweepInterval, time.Minute)
	maxIdle := config.TTLDuration(cfg.Session.MaxIdle, 30*time.Minute)
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if swept := engine.SweepIdleSessions(maxIdle); swept > 0 {
					log.Printf("swept %d idle sessions", swept)
				}
			case <-sweepDone:
				return
			}
		}
	}()
	defer close(sweepDone)

	go func() {
		log.Printf("starting live quiz service on :%s", finalPort)
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

// sampleQuizzes provides minimal demo content; production loads quizzes
// from Postgres.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Mental arithmetic",
			Questions: []domain.Question{
				{
					ID:           "q1",
					Prompt:       "What is 2 + 2?",
					Options:      []string{"3", "4", "5"},
					CorrectIndex: 1,
				},
				{
					ID:           "q2",
					Prompt:       "What is 7 * 8?",
					Options:      []string{"54", "56", "63"},
					CorrectIndex: 1,
				},
			},
		},
	}
}
