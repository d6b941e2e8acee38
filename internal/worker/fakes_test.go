package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shaiso/Foreman/internal/domain"
)

// --- Fakes ---

type fakeConn struct {
	name       string
	connected  bool
	connectErr error
	closeErr   error

	connectCalls int
	closeCalls   int
}

func newFakeConn(name string, connected bool) *fakeConn {
	return &fakeConn{name: name, connected: connected}
}

func (c *fakeConn) Connect(_ context.Context) error {
	c.connectCalls++
	if c.connectErr != nil {
		return fmt.Errorf("%w: %v", ErrConnection, c.connectErr)
	}
	c.connected = true
	return nil
}

func (c *fakeConn) IsConnected() bool { return c.connected }

func (c *fakeConn) Close() error {
	c.closeCalls++
	c.connected = false
	return c.closeErr
}

func (c *fakeConn) String() string { return c.name }

// sentMessage — сообщение, отправленное через fakeHandler.
type sentMessage struct {
	kind   string
	handle string
	data   string
}

type fakeHandler struct {
	conn Connection

	abilities      []string
	abilitiesCalls int
	clientID       string
	onConnectErr   error
	onConnectCalls int

	sent []sentMessage
}

func (h *fakeHandler) OnConnect(_ context.Context) error {
	h.onConnectCalls++
	return h.onConnectErr
}

func (h *fakeHandler) SetAbilities(names []string) {
	h.abilitiesCalls++
	h.abilities = names
}

func (h *fakeHandler) SetClientID(id string) { h.clientID = id }

func (h *fakeHandler) SendJobStatus(job *Job, numerator, denominator int) {
	h.sent = append(h.sent, sentMessage{"status", job.Handle, fmt.Sprintf("%d/%d", numerator, denominator)})
}

func (h *fakeHandler) SendJobComplete(job *Job, data []byte) {
	h.sent = append(h.sent, sentMessage{"complete", job.Handle, string(data)})
}

func (h *fakeHandler) SendJobFailure(job *Job) {
	h.sent = append(h.sent, sentMessage{"fail", job.Handle, ""})
}

func (h *fakeHandler) SendJobData(job *Job, data []byte) {
	h.sent = append(h.sent, sentMessage{"data", job.Handle, string(data)})
}

func (h *fakeHandler) SendJobWarning(job *Job, data []byte) {
	h.sent = append(h.sent, sentMessage{"warning", job.Handle, string(data)})
}

func (h *fakeHandler) SendJobException(job *Job, data []byte) {
	h.sent = append(h.sent, sentMessage{"exception", job.Handle, string(data)})
}

func (h *fakeHandler) kinds() []string {
	kinds := make([]string, len(h.sent))
	for i, m := range h.sent {
		kinds[i] = m.kind
	}
	return kinds
}

// handlerSet запоминает handlers, созданные фабрикой.
type handlerSet map[Connection]*fakeHandler

func (s handlerSet) factory(_ *Worker, conn Connection) CommandHandler {
	h := &fakeHandler{conn: conn}
	s[conn] = h
	return h
}

type fakePoller struct {
	calls     int
	lastConns []Connection
	timeouts  []time.Duration
	poll      func(calls int) (bool, error)
}

func (p *fakePoller) Poll(_ context.Context, conns []Connection, timeout time.Duration) (bool, error) {
	p.calls++
	p.lastConns = conns
	p.timeouts = append(p.timeouts, timeout)
	if p.poll != nil {
		return p.poll(p.calls)
	}
	return false, nil
}

type fakeRecorder struct {
	results []*domain.JobResult
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, res *domain.JobResult) error {
	r.results = append(r.results, res)
	return r.err
}

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestWorker создаёт воркер с fake-соединениями.
func newTestWorker(t interface{ Fatalf(string, ...any) }, cfg Config, conns ...*fakeConn) (*Worker, handlerSet) {
	handlers := make(handlerSet)
	cfg.NewHandler = handlers.factory
	cfg.Logger = discardLogger()
	for _, c := range conns {
		cfg.Connections = append(cfg.Connections, c)
	}

	w, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return w, handlers
}
