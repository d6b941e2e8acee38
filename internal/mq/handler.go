package mq

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Foreman/internal/telemetry"
	"github.com/shaiso/Foreman/internal/worker"
)

const (
	defaultPrefetch = 1
	publishTimeout  = 5 * time.Second
)

// JobRunner — часть воркера, которую вызывает handler. Реализуется *worker.Worker.
type JobRunner interface {
	CreateJob(handler worker.CommandHandler, handle, function, unique string, data []byte) (*worker.Job, error)
	OnJobExecute(ctx context.Context, job *worker.Job) (bool, error)
	SetJobLock(handler worker.CommandHandler, lock bool) bool
}

// HandlerConfig — конфигурация Handler.
type HandlerConfig struct {
	// Prefetch — сколько заданий брокер выдаёт соединению без ack (default: 1).
	Prefetch int

	// Publisher — публикация результатов (опционально; если nil — Publisher поверх соединения).
	Publisher func(conn *Connection) MessagePublisher

	// Logger
	Logger *slog.Logger
}

// Handler — CommandHandler одного соединения с RabbitMQ.
//
// Handler:
//   - Держит по одному consumer на каждую ability (очередь jobs.<function>)
//   - Принимает доставку только под job lock воркера
//   - Публикует результаты work.* в foreman.results
//   - Подтверждает доставку при work complete / work fail
//
// Ошибка публикации закрывает соединение; воркер переподключит его
// на следующей итерации.
type Handler struct {
	runner    JobRunner
	conn      *Connection
	publisher MessagePublisher
	prefetch  int
	logger    *slog.Logger

	mu        sync.Mutex
	abilities []string
	clientID  string
	consumers map[string]string        // function → consumer tag
	inflight  map[string]amqp.Delivery // job handle → доставка
}

var _ worker.CommandHandler = (*Handler)(nil)

// NewHandlerFactory возвращает фабрику handlers для worker.Config.
//
// Фабрика принимает только *Connection этого пакета.
func NewHandlerFactory(cfg HandlerConfig) worker.HandlerFactory {
	return func(w *worker.Worker, conn worker.Connection) worker.CommandHandler {
		mc, ok := conn.(*Connection)
		if !ok {
			panic(fmt.Sprintf("mq: unsupported connection type %T", conn))
		}
		return NewHandler(w, mc, cfg)
	}
}

// NewHandler создаёт Handler и привязывает его к соединению.
func NewHandler(runner JobRunner, conn *Connection, cfg HandlerConfig) *Handler {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var publisher MessagePublisher
	if cfg.Publisher != nil {
		publisher = cfg.Publisher(conn)
	} else {
		publisher = NewPublisher(conn, logger)
	}

	h := &Handler{
		runner:    runner,
		conn:      conn,
		publisher: publisher,
		prefetch:  prefetch,
		logger:    telemetry.WithConnection(logger, conn.String()),
		consumers: make(map[string]string),
		inflight:  make(map[string]amqp.Delivery),
	}
	conn.bind(h)
	return h
}

// --- Lifecycle ---

// OnConnect объявляет топологию, настраивает prefetch и запускает
// consumers для всех текущих abilities.
func (h *Handler) OnConnect(ctx context.Context) error {
	return h.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareTopology(ch); err != nil {
			return err
		}

		if err := ch.Qos(h.prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}

		// Доставки прошлой сессии подтвердить уже нельзя
		h.mu.Lock()
		h.consumers = make(map[string]string)
		h.inflight = make(map[string]amqp.Delivery)
		names := slices.Clone(h.abilities)
		h.mu.Unlock()

		for _, fn := range names {
			if err := h.consume(ch, fn); err != nil {
				return err
			}
		}

		h.logger.Debug("handler ready", "abilities", names, "prefetch", h.prefetch)
		return nil
	})
}

// SetAbilities сохраняет список abilities и, если соединение живо,
// синхронизирует consumers.
func (h *Handler) SetAbilities(names []string) {
	sorted := slices.Clone(names)
	slices.Sort(sorted)

	h.mu.Lock()
	h.abilities = sorted
	h.mu.Unlock()

	if !h.conn.IsConnected() {
		return
	}

	if err := h.syncConsumers(); err != nil {
		h.logger.Error("failed to update consumers", "error", err)
		h.closeConnection()
	}
}

// Abilities возвращает текущий список abilities.
func (h *Handler) Abilities() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.abilities)
}

// SetClientID сохраняет идентификатор воркера для сообщений work.*.
func (h *Handler) SetClientID(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clientID = id
}

// syncConsumers отменяет consumers удалённых abilities и запускает новые.
func (h *Handler) syncConsumers() error {
	ch := h.conn.Channel()
	if ch == nil {
		return nil
	}

	h.mu.Lock()
	wanted := slices.Clone(h.abilities)
	stale := make(map[string]string)
	for fn, tag := range h.consumers {
		if !slices.Contains(wanted, fn) {
			stale[fn] = tag
		}
	}
	var missing []string
	for _, fn := range wanted {
		if _, ok := h.consumers[fn]; !ok {
			missing = append(missing, fn)
		}
	}
	h.mu.Unlock()

	for fn, tag := range stale {
		if err := ch.Cancel(tag, false); err != nil {
			return fmt.Errorf("cancel consumer %s: %w", tag, err)
		}
		h.mu.Lock()
		delete(h.consumers, fn)
		h.mu.Unlock()
	}

	for _, fn := range missing {
		if err := h.consume(ch, fn); err != nil {
			return err
		}
	}

	return nil
}

// consume объявляет очередь функции и запускает consumer.
func (h *Handler) consume(ch *amqp.Channel, function string) error {
	queue, err := DeclareFunctionQueue(ch, function)
	if err != nil {
		return err
	}

	tag := consumerTag(function)
	deliveries, err := ch.Consume(
		string(queue), // queue
		tag,           // consumer tag
		false,         // auto-ack (ack после результата)
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	h.conn.forward(deliveries)

	h.mu.Lock()
	h.consumers[function] = tag
	h.mu.Unlock()

	h.logger.Debug("consumer started", "queue", queue, "consumer_tag", tag)
	return nil
}

func consumerTag(function string) string {
	return "foreman." + function
}

// --- Jobs ---

// HandleDelivery обрабатывает одну доставку: захватывает job lock,
// создаёт задание и выполняет его через воркер.
//
// Вызывается Poller на горутине цикла Work.
func (h *Handler) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	if !h.runner.SetJobLock(h, true) {
		h.logger.Debug("job lock busy, requeue delivery", "message_id", d.MessageId)
		h.nack(d, true)
		return
	}
	defer h.runner.SetJobLock(h, false)

	msg, err := DecodeMessage(d.Body)
	if err != nil {
		h.logger.Error("failed to decode job", "message_id", d.MessageId, "error", err)
		// Некорректное сообщение — отправляем в DLQ
		h.nack(d, false)
		return
	}

	payload, err := ParsePayload[JobSubmitPayload](msg)
	if err != nil {
		h.logger.Error("failed to parse job payload", "message_id", d.MessageId, "error", err)
		h.nack(d, false)
		return
	}

	handle := payload.Handle
	if handle == "" {
		handle = d.MessageId
	}
	if handle == "" {
		handle = "H:" + uuid.New().String()
	}

	function := payload.Function
	if function == "" {
		function = d.RoutingKey
	}

	h.mu.Lock()
	h.inflight[handle] = d
	h.mu.Unlock()

	job, err := h.runner.CreateJob(h, handle, function, payload.Unique, payload.Data)
	if err != nil {
		h.logger.Error("failed to create job", "job_handle", handle, "error", err)
		h.settle(handle, func(d amqp.Delivery) error { return d.Nack(false, true) })
		return
	}

	if _, err := h.runner.OnJobExecute(ctx, job); err != nil {
		// Функция не зарегистрирована: клиенту — work fail, заданию — DLQ
		h.logger.Error("job not executed",
			"job_handle", job.Handle,
			"function", job.Function,
			"error", err,
		)
		h.publishResult(job, MessageTypeWorkFail, nil, 0, 0)
		h.settle(job.Handle, func(d amqp.Delivery) error { return d.Nack(false, false) })
	}
}

// InFlight возвращает число неподтверждённых заданий.
func (h *Handler) InFlight() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.inflight)
}

// --- Results ---

// SendJobStatus публикует work.status.
func (h *Handler) SendJobStatus(job *worker.Job, numerator, denominator int) {
	h.publishResult(job, MessageTypeWorkStatus, nil, numerator, denominator)
}

// SendJobComplete публикует work.complete и подтверждает доставку.
func (h *Handler) SendJobComplete(job *worker.Job, data []byte) {
	h.publishResult(job, MessageTypeWorkComplete, data, 0, 0)
	h.settle(job.Handle, func(d amqp.Delivery) error { return d.Ack(false) })
}

// SendJobFailure публикует work.fail и подтверждает доставку.
func (h *Handler) SendJobFailure(job *worker.Job) {
	h.publishResult(job, MessageTypeWorkFail, nil, 0, 0)
	h.settle(job.Handle, func(d amqp.Delivery) error { return d.Ack(false) })
}

// SendJobData публикует work.data.
func (h *Handler) SendJobData(job *worker.Job, data []byte) {
	h.publishResult(job, MessageTypeWorkData, data, 0, 0)
}

// SendJobWarning публикует work.warning.
func (h *Handler) SendJobWarning(job *worker.Job, data []byte) {
	h.publishResult(job, MessageTypeWorkWarning, data, 0, 0)
}

// SendJobException публикует work.exception. Задание не завершается.
func (h *Handler) SendJobException(job *worker.Job, data []byte) {
	h.publishResult(job, MessageTypeWorkException, data, 0, 0)
}

func (h *Handler) publishResult(job *worker.Job, msgType MessageType, data []byte, numerator, denominator int) {
	h.mu.Lock()
	clientID := h.clientID
	h.mu.Unlock()

	msg := NewMessage(msgType, WorkResultPayload{
		Handle:      job.Handle,
		Function:    job.Function,
		Unique:      job.Unique,
		ClientID:    clientID,
		Data:        data,
		Numerator:   numerator,
		Denominator: denominator,
	})

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := h.publisher.Publish(ctx, ExchangeResults, ResultRoutingKey(msgType, job.Function), msg); err != nil {
		h.logger.Error("failed to publish result",
			"job_handle", job.Handle,
			"type", msgType,
			"error", err,
		)
		h.closeConnection()
	}
}

// settle завершает доставку задания и забывает его.
func (h *Handler) settle(handle string, fn func(d amqp.Delivery) error) {
	h.mu.Lock()
	d, ok := h.inflight[handle]
	delete(h.inflight, handle)
	h.mu.Unlock()

	if !ok {
		return
	}
	if err := fn(d); err != nil {
		h.logger.Warn("failed to settle delivery", "job_handle", handle, "error", err)
	}
}

func (h *Handler) nack(d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		h.logger.Warn("failed to nack delivery", "message_id", d.MessageId, "error", err)
	}
}

func (h *Handler) closeConnection() {
	if err := h.conn.Close(); err != nil {
		h.logger.Debug("close connection", "error", err)
	}
}
