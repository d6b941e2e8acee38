// Foreman Worker — выполняет задания из очереди RabbitMQ.
//
// Worker:
//   - Подключается ко всем брокерам из FOREMAN_SERVERS
//   - Регистрирует встроенные abilities (FOREMAN_ABILITIES)
//   - Выполняет задания по одному, отправляя результат в foreman.results
//   - Переподключает упавшие соединения на каждой итерации цикла
//   - Пишет исходы заданий в PostgreSQL, если задан DB_URL
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Foreman/internal/abilities"
	"github.com/shaiso/Foreman/internal/config"
	"github.com/shaiso/Foreman/internal/mq"
	"github.com/shaiso/Foreman/internal/policy"
	"github.com/shaiso/Foreman/internal/repo"
	"github.com/shaiso/Foreman/internal/telemetry"
	"github.com/shaiso/Foreman/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting foreman-worker",
		"client_id", cfg.ClientID,
		"servers", len(cfg.Servers),
	)

	// graceful shutdown
	sigCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, stop := context.WithCancel(sigCtx)
	defer stop()

	// Журнал исходов (опционально)
	var recorder worker.Recorder
	if cfg.JournalEnabled() {
		pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		journal := repo.NewJobResultRepo(pool)
		if err := journal.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare job journal", "error", err)
			os.Exit(1)
		}
		recorder = journal
		logger.Info("job journal enabled")
	}

	// Policies цикла Work
	before := []policy.BeforePoll{policy.UntilDone(ctx)}
	if cfg.StopCron != "" {
		stopAt, err := policy.StopAtCron(cfg.StopCron, cfg.StopTimezone, nil)
		if err != nil {
			logger.Error("invalid stop schedule", "error", err)
			os.Exit(1)
		}
		before = append(before, stopAt)
		logger.Info("scheduled stop enabled", "cron", cfg.StopCron, "timezone", cfg.StopTimezone)
	}

	// Соединения: по одному на брокер
	conns := make([]worker.Connection, len(cfg.Servers))
	for i, url := range cfg.Servers {
		conns[i] = mq.NewConnection(url, logger)
	}

	w, err := worker.New(worker.Config{
		Connections: conns,
		NewHandler: mq.NewHandlerFactory(mq.HandlerConfig{
			Prefetch: cfg.Prefetch,
			Logger:   logger,
		}),
		Poller:     mq.NewPoller(logger),
		ClientID:   cfg.ClientID,
		BeforePoll: policy.AllBefore(before...),
		AfterPoll: policy.AllAfter(
			policy.MaxIterations(cfg.MaxIterations),
			policy.StopWhenIdle(cfg.IdleStopAfter),
		),
		Recorder: recorder,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to create worker", "error", err)
		os.Exit(1)
	}

	if err := abilities.Register(w, cfg.Abilities...); err != nil {
		logger.Error("failed to register abilities", "error", err)
		os.Exit(1)
	}
	logger.Info("abilities registered", "abilities", w.Abilities())

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler(w))
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           telemetry.Chain(telemetry.HTTPLogging(logger), telemetry.Recovery(logger))(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Цикл завершился — останавливаем и HTTP-сервер
		defer stop()
		return w.Work(gctx, cfg.PollTimeout)
	})

	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, worker.ErrServerUnavailable) {
			logger.Error("no queue server available", "error", err)
		} else {
			logger.Error("foreman-worker failed", "error", err)
		}
		os.Exit(1)
	}

	logger.Info("foreman-worker stopped")
}

type connectionHealth struct {
	Server    string `json:"server"`
	Connected bool   `json:"connected"`
	InFlight  int    `json:"in_flight"`
}

// healthHandler отвечает 200, если хотя бы одно соединение живо, иначе 503.
func healthHandler(w *worker.Worker) http.HandlerFunc {
	return func(rw http.ResponseWriter, _ *http.Request) {
		conns := w.Connections()
		report := make([]connectionHealth, len(conns))
		alive := 0

		for i, conn := range conns {
			report[i] = connectionHealth{
				Server:    conn.String(),
				Connected: conn.IsConnected(),
			}
			if report[i].Connected {
				alive++
			}
			if h, ok := w.HandlerFor(conn); ok {
				if mh, ok := h.(*mq.Handler); ok {
					report[i].InFlight = mh.InFlight()
				}
			}
		}

		rw.Header().Set("Content-Type", "application/json")
		if alive == 0 {
			rw.WriteHeader(http.StatusServiceUnavailable)
		} else {
			rw.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(rw).Encode(map[string]any{
			"client_id":   w.ClientID(),
			"abilities":   w.Abilities(),
			"connections": report,
		})
	}
}
