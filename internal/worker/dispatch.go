package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Foreman/internal/domain"
	"github.com/shaiso/Foreman/internal/telemetry"
)

// Recorder — журнал исходов заданий.
//
// Ошибка записи логируется и не влияет на исход задания.
type Recorder interface {
	Record(ctx context.Context, result *domain.JobResult) error
}

// CreateJob создаёт Job, привязанный к соединению handler.
//
// Возвращает ErrInvalidWorkerState, если handler не был создан этим воркером.
func (w *Worker) CreateJob(handler CommandHandler, handle, function, unique string, data []byte) (*Job, error) {
	w.mu.Lock()
	conn, ok := w.handlerToConn[handler]
	w.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: unknown command handler for job %s", ErrInvalidWorkerState, handle)
	}

	return &Job{
		Conn:     conn,
		Handle:   handle,
		Function: function,
		Unique:   unique,
		Data:     data,
	}, nil
}

// OnJobExecute находит callback для функции задания и выполняет его.
//
// Отсутствие callback — ошибка конфигурации: возвращается ошибка,
// оборачивающая ErrUnknownFunction, и ничего не отправляется.
// Ошибка или паника callback превращается в work fail (false, nil).
// Нормальное завершение отправляет work complete (true, nil).
func (w *Worker) OnJobExecute(ctx context.Context, job *Job) (bool, error) {
	fn, err := w.registry.Get(job.Function)
	if err != nil {
		return false, fmt.Errorf("execute job %s: %w", job.Handle, err)
	}

	// Callback получает логгер задания через telemetry.FromContext
	logger := telemetry.WithJob(w.logger, job.Handle, job.Function)
	logger.Debug("job started")

	startedAt := time.Now()
	ctx = withStartedAt(telemetry.WithLogger(ctx, logger), startedAt)

	result, err := invoke(ctx, fn, job)
	telemetry.JobDuration.WithLabelValues(job.Function).Observe(time.Since(startedAt).Seconds())

	if err != nil {
		return w.OnJobException(ctx, job, err), nil
	}
	return w.OnJobComplete(ctx, job, result), nil
}

// invoke вызывает callback, превращая панику в ошибку.
func invoke(ctx context.Context, fn JobFunc, job *Job) (result []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, r)
		}
	}()
	return fn(ctx, job)
}

// OnJobComplete отправляет work complete с результатом callback.
func (w *Worker) OnJobComplete(ctx context.Context, job *Job, result []byte) bool {
	w.SendJobComplete(job, result)

	telemetry.JobsTotal.WithLabelValues(job.Function, "complete").Inc()
	telemetry.WithJob(w.logger, job.Handle, job.Function).Info("job completed")

	w.record(ctx, job, domain.JobOutcomeCompleted, result, nil)
	return true
}

// OnJobException отправляет work fail.
//
// Детали ошибки серверу не передаются: протокол получает только
// общий сигнал неудачи. Текст ошибки остаётся в логе и журнале.
func (w *Worker) OnJobException(ctx context.Context, job *Job, jobErr error) bool {
	w.SendJobFailure(job)

	telemetry.JobsTotal.WithLabelValues(job.Function, "fail").Inc()
	telemetry.WithJob(w.logger, job.Handle, job.Function).Warn("job failed", "error", jobErr)

	w.record(ctx, job, domain.JobOutcomeFailed, nil, jobErr)
	return false
}

// record пишет исход в журнал, если он настроен.
func (w *Worker) record(ctx context.Context, job *Job, outcome domain.JobOutcome, result []byte, jobErr error) {
	if w.recorder == nil {
		return
	}

	now := time.Now()
	startedAt, ok := startedAtFrom(ctx)
	if !ok {
		startedAt = now
	}

	rec := &domain.JobResult{
		ID:         uuid.New(),
		Handle:     job.Handle,
		Function:   job.Function,
		Unique:     job.Unique,
		ClientID:   w.ClientID(),
		Outcome:    outcome,
		Result:     result,
		StartedAt:  startedAt,
		FinishedAt: now,
	}
	if job.Conn != nil {
		rec.Server = job.Conn.String()
	}
	if jobErr != nil {
		rec.Error = jobErr.Error()
	}

	if err := w.recorder.Record(ctx, rec); err != nil {
		w.logger.Warn("failed to record job result", "job_handle", job.Handle, "error", err)
	}
}

type startedAtKey struct{}

func withStartedAt(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startedAtKey{}, t)
}

func startedAtFrom(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(startedAtKey{}).(time.Time)
	return t, ok
}
