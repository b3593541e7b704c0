package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"articlerag/internal/adapter/gemini"
	"articlerag/internal/app"
	"articlerag/internal/config"
	"articlerag/internal/logger"
)

func main() {
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	embedder, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
	if err != nil {
		slog.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	defer embedder.Close()

	structurer, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.StructuredModel)
	if err != nil {
		slog.Error("failed to create structuring model client", "error", err)
		os.Exit(1)
	}
	defer structurer.Close()

	answerer, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.AnswerModel)
	if err != nil {
		slog.Error("failed to create answer model client", "error", err)
		os.Exit(1)
	}
	defer answerer.Close()

	application, err := app.New(cfg, deps.DB, deps.VectorIndex, deps.NSQProducer, embedder, structurer, answerer)
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	// Ingestion worker: consume ingest.task and run the pipeline.
	consumer, err := nsq.NewConsumer(config.TopicIngestTask, config.ChannelWorker, nsq.NewConfig())
	if err != nil {
		slog.Error("failed to create NSQ consumer", "error", err)
		os.Exit(1)
	}
	consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		return application.TaskConsumer.HandleMessage(m)
	}))
	if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		slog.Error("failed to connect to NSQLookupd", "error", err)
		os.Exit(1)
	}
	defer consumer.Stop()
	slog.Info("ingestion worker connected", "topic", config.TopicIngestTask)

	if err := application.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
