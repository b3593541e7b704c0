package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"articlerag/features/document"
	queryhandler "articlerag/features/query"
	"articlerag/features/stats"
	"articlerag/features/task"
	"articlerag/internal/config"
	"articlerag/internal/extract"
	"articlerag/internal/fetch"
	"articlerag/internal/middleware"
	"articlerag/internal/pipeline"
	"articlerag/internal/query"
	"articlerag/internal/worker"
)

// Database is satisfied by *sql.DB; the interface keeps the constructor
// mockable.
type Database interface {
	PingContext(ctx context.Context) error
}

// VectorIndex is everything the app needs from the vector store.
type VectorIndex interface {
	AddChunk(ctx context.Context, chunk pipeline.Chunk) error
	QueryNearest(ctx context.Context, vector []float32, topK int) ([]query.Hit, error)
	CountChunks(ctx context.Context) (int, error)
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// Completer is the language-model boundary; the structurer and the answerer
// may be distinct models.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type App struct {
	Handler      http.Handler
	TaskConsumer *worker.TaskConsumer
	QueryService *query.Service

	port int
}

func New(
	cfg *config.Config,
	db Database,
	vecIndex VectorIndex,
	taskPub TaskPublisher,
	embedder Embedder,
	structurer Completer,
	answerer Completer,
) (*App, error) {
	sqlDB := db.(*sql.DB)

	// Feature: Document
	docRepo := document.NewPostgresRepo(sqlDB)
	docHandler := document.NewHandler(docRepo)

	// Feature: Task
	taskRepo := task.NewPostgresRepo(sqlDB)
	taskService := task.NewService(taskRepo, taskPub)
	taskHandler := task.NewHandler(taskService)

	// Core: Ingestion Pipeline
	fetcher := fetch.NewClient(time.Duration(cfg.FetchTimeoutSeconds) * time.Second)
	extractor := extract.New()
	ingestPipeline := pipeline.New(fetcher, extractor, structurer, embedder, docRepo, vecIndex)

	// Core: Query Engine
	queryLogger, err := query.NewFileLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = query.NewLogger(os.Stdout)
	}
	queryService := query.NewService(embedder, vecIndex, docRepo, answerer, cfg.TopK, queryLogger)
	queryHTTP := queryhandler.NewHandler(queryService)

	// Feature: Stats
	statsHandler := stats.NewHandler(docRepo, taskRepo, vecIndex)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /add-url", middleware.CorrelationID(enableCORS(taskHandler.Create)))
	mux.Handle("GET /tasks/{id}", middleware.CorrelationID(enableCORS(taskHandler.Get)))

	mux.Handle("POST /query", middleware.CorrelationID(enableCORS(queryHTTP.Ask)))

	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(docHandler.List)))
	mux.Handle("GET /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Get)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	// Browser preflight requests carry no method-specific route.
	mux.Handle("OPTIONS /", enableCORS(func(w http.ResponseWriter, r *http.Request) {}))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Worker (Task Consumer)
	taskConsumer := worker.NewTaskConsumer(ingestPipeline, taskRepo)

	return &App{
		Handler:      mux,
		TaskConsumer: taskConsumer,
		QueryService: queryService,
		port:         cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
