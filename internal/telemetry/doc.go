// Package telemetry обеспечивает наблюдаемость воркера.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики воркера
//   - middleware.go — logging и recovery для служебного HTTP-сервера
//
// Метрики экспортируются на /metrics endpoint бинарника foreman-worker.
package telemetry
