package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shaiso/Foreman/internal/telemetry"
)

// DefaultPollTimeout — таймаут одного poll по умолчанию.
const DefaultPollTimeout = 60 * time.Second

// Worker управляет соединениями с серверами очереди и выполняет задания.
//
// Worker:
//   - Держит набор соединений и связь соединение ↔ CommandHandler
//   - Рассылает handlers таблицу abilities и client id
//   - На каждой итерации переподключает упавшие соединения (без backoff)
//   - Ждёт активности на всех живых соединениях через Poller
//   - Выполняет callbacks и отправляет результат через handler соединения
//   - Владеет единственным job lock
//
// Цикл Work однопоточный: callbacks выполняются синхронно и блокируют
// обслуживание всех соединений на время своего выполнения.
type Worker struct {
	mu sync.Mutex

	// Соединения и их handlers
	connections   []Connection
	connToHandler map[Connection]CommandHandler
	handlerToConn map[CommandHandler]Connection
	newHandler    HandlerFactory

	// Abilities
	registry *Registry
	clientID string

	// Job lock — handler, удерживающий право на выполнение задания
	lockHolder CommandHandler

	// Loop
	poller     Poller
	beforePoll func() bool
	afterPoll  func(activity bool) bool

	recorder Recorder
	logger   *slog.Logger
}

// Config — конфигурация Worker.
type Config struct {
	// Connections — начальный набор соединений.
	Connections []Connection

	// NewHandler создаёт CommandHandler для каждого соединения (обязателен).
	NewHandler HandlerFactory

	// Poller — мультиплексированное ожидание событий (обязателен для Work).
	Poller Poller

	// Registry — таблица abilities (опционально; если nil — пустой реестр).
	Registry *Registry

	// ClientID — идентификатор воркера для сервера (опционально).
	ClientID string

	// BeforePoll вызывается перед каждым poll; false завершает Work (default: всегда true).
	BeforePoll func() bool

	// AfterPoll вызывается после каждого poll; false завершает Work (default: всегда true).
	AfterPoll func(activity bool) bool

	// Recorder — журнал исходов заданий (опционально).
	Recorder Recorder

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker и регистрирует соединения из cfg.
func New(cfg Config) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry()
	}

	beforePoll := cfg.BeforePoll
	if beforePoll == nil {
		beforePoll = func() bool { return true }
	}

	afterPoll := cfg.AfterPoll
	if afterPoll == nil {
		afterPoll = func(bool) bool { return true }
	}

	w := &Worker{
		connToHandler: make(map[Connection]CommandHandler),
		handlerToConn: make(map[CommandHandler]Connection),
		newHandler:    cfg.NewHandler,
		registry:      registry,
		clientID:      cfg.ClientID,
		poller:        cfg.Poller,
		beforePoll:    beforePoll,
		afterPoll:     afterPoll,
		recorder:      cfg.Recorder,
		logger:        logger,
	}

	for _, conn := range cfg.Connections {
		if err := w.AddConnection(conn); err != nil {
			return nil, err
		}
	}

	return w, nil
}

// --- Connections ---

// AddConnection добавляет соединение и создаёт для него CommandHandler.
//
// Новый handler сразу получает текущие abilities и client id.
func (w *Worker) AddConnection(conn Connection) error {
	if w.newHandler == nil {
		return fmt.Errorf("%w: no command handler factory", ErrInvalidWorkerState)
	}

	w.mu.Lock()
	_, exists := w.connToHandler[conn]
	w.mu.Unlock()
	if exists {
		return fmt.Errorf("%w: connection %s already added", ErrInvalidWorkerState, conn)
	}

	handler := w.newHandler(w, conn)

	w.mu.Lock()
	w.connections = append(w.connections, conn)
	w.connToHandler[conn] = handler
	w.handlerToConn[handler] = conn
	clientID := w.clientID
	w.mu.Unlock()

	handler.SetAbilities(w.registry.Names())
	if clientID != "" {
		handler.SetClientID(clientID)
	}

	w.logger.Debug("connection added", "conn", conn.String())
	return nil
}

// RemoveConnection окончательно удаляет соединение и его handler.
//
// Если handler удерживал job lock, lock освобождается. Соединение закрывается.
func (w *Worker) RemoveConnection(conn Connection) error {
	w.mu.Lock()
	handler, ok := w.connToHandler[conn]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("%w: unknown connection %s", ErrInvalidWorkerState, conn)
	}

	delete(w.connToHandler, conn)
	delete(w.handlerToConn, handler)
	w.connections = slices.DeleteFunc(w.connections, func(c Connection) bool { return c == conn })
	if w.lockHolder == handler {
		w.lockHolder = nil
	}
	w.mu.Unlock()

	if err := conn.Close(); err != nil {
		w.logger.Warn("failed to close removed connection", "conn", conn.String(), "error", err)
	}

	w.logger.Debug("connection removed", "conn", conn.String())
	return nil
}

// Connections возвращает копию набора соединений в порядке добавления.
func (w *Worker) Connections() []Connection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.connections)
}

// HandlerFor возвращает handler соединения.
func (w *Worker) HandlerFor(conn Connection) (CommandHandler, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	h, ok := w.connToHandler[conn]
	return h, ok
}

// handlers возвращает снимок всех handlers.
func (w *Worker) handlers() []CommandHandler {
	w.mu.Lock()
	defer w.mu.Unlock()

	hs := make([]CommandHandler, 0, len(w.connections))
	for _, conn := range w.connections {
		hs = append(hs, w.connToHandler[conn])
	}
	return hs
}

// --- Abilities ---

// RegisterFunction регистрирует callback для функции и рассылает
// полный список abilities всем handlers.
func (w *Worker) RegisterFunction(name string, fn JobFunc) string {
	w.registry.Register(name, fn)
	w.broadcastAbilities()

	w.logger.Info("function registered", "function", name)
	return name
}

// UnregisterFunction удаляет функцию (если есть) и рассылает обновлённый список.
func (w *Worker) UnregisterFunction(name string) string {
	w.registry.Unregister(name)
	w.broadcastAbilities()

	w.logger.Info("function unregistered", "function", name)
	return name
}

func (w *Worker) broadcastAbilities() {
	names := w.registry.Names()
	for _, h := range w.handlers() {
		h.SetAbilities(slices.Clone(names))
	}
}

// Abilities возвращает отсортированный список зарегистрированных функций.
func (w *Worker) Abilities() []string {
	return w.registry.Names()
}

// SetClientID сохраняет идентификатор воркера и рассылает его всем handlers.
func (w *Worker) SetClientID(id string) string {
	w.mu.Lock()
	w.clientID = id
	w.mu.Unlock()

	for _, h := range w.handlers() {
		h.SetClientID(id)
	}
	return id
}

// ClientID возвращает текущий идентификатор воркера.
func (w *Worker) ClientID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.clientID
}

// --- Supervisor ---

// AliveConnections возвращает перемешанный список живых соединений,
// предварительно попытавшись переподключить упавшие.
//
// Ошибка подключения не возвращается: соединение просто исключается из
// текущего цикла. Ни счётчика попыток, ни backoff нет.
func (w *Worker) AliveConnections(ctx context.Context) []Connection {
	shuffled := w.Connections()
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for _, conn := range shuffled {
		if conn.IsConnected() {
			continue
		}

		if err := conn.Connect(ctx); err != nil {
			telemetry.ReconnectAttempts.WithLabelValues("failed").Inc()
			w.logger.Warn("connect failed", "conn", conn.String(), "error", err)
			continue
		}
		telemetry.ReconnectAttempts.WithLabelValues("ok").Inc()

		handler, ok := w.HandlerFor(conn)
		if !ok {
			continue
		}
		if err := handler.OnConnect(ctx); err != nil {
			w.logger.Warn("connection handshake failed", "conn", conn.String(), "error", err)
			w.closeConnection(conn)
			continue
		}

		w.logger.Info("connected", "conn", conn.String())
	}

	alive := make([]Connection, 0, len(shuffled))
	for _, conn := range shuffled {
		if conn.IsConnected() {
			alive = append(alive, conn)
		}
	}
	return alive
}

// --- Loop ---

// Work выполняет задания со всех соединений до остановки.
//
// Итерация:
//  1. AliveConnections; пустой список → ErrServerUnavailable
//  2. BeforePoll; false → выход
//  3. Poll живых соединений с таймаутом pollTimeout
//  4. AfterPoll(activity); false → выход
//
// Отмена ctx равносильна BeforePoll == false. При любом выходе
// закрываются соединения, живые на начало последней итерации.
func (w *Worker) Work(ctx context.Context, pollTimeout time.Duration) error {
	if w.poller == nil {
		return fmt.Errorf("%w: no poller configured", ErrInvalidWorkerState)
	}
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}

	var alive []Connection
	defer func() {
		for _, conn := range alive {
			w.closeConnection(conn)
		}
	}()

	w.logger.Info("worker loop started",
		"connections", len(w.Connections()),
		"abilities", len(w.registry.Names()),
		"poll_timeout", pollTimeout,
	)

	for continueWorking := true; continueWorking; {
		if ctx.Err() != nil {
			w.logger.Info("worker loop cancelled")
			break
		}

		alive = w.AliveConnections(ctx)
		telemetry.AliveConnections.Set(float64(len(alive)))
		if len(alive) == 0 {
			return fmt.Errorf("%w: found no valid connections in list: %s",
				ErrServerUnavailable, w.describeConnections())
		}

		if !w.beforePoll() {
			w.logger.Info("worker loop stopped before poll")
			break
		}

		activity, err := w.poller.Poll(ctx, alive, pollTimeout)
		if err != nil {
			return fmt.Errorf("poll connections: %w", err)
		}
		telemetry.PollsTotal.WithLabelValues(strconv.FormatBool(activity)).Inc()

		continueWorking = w.afterPoll(activity)
	}

	w.logger.Info("worker loop finished")
	return nil
}

func (w *Worker) closeConnection(conn Connection) {
	if err := conn.Close(); err != nil {
		w.logger.Debug("close connection", "conn", conn.String(), "error", err)
	}
}

func (w *Worker) describeConnections() string {
	conns := w.Connections()
	names := make([]string, len(conns))
	for i, c := range conns {
		names[i] = c.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}
