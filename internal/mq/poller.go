package mq

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Foreman/internal/worker"
)

// Poller ждёт доставки сразу на всех живых соединениях.
//
// Poll выбирает первую доставку среди Events всех соединений, таймера
// и отмены ctx, выполняет её через handler соединения и затем
// обрабатывает доставки, уже накопленные в буферах.
type Poller struct {
	logger *slog.Logger
}

var _ worker.Poller = (*Poller)(nil)

// NewPoller создаёт новый Poller.
func NewPoller(logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{logger: logger}
}

// Poll реализует worker.Poller.
//
// Возвращает true, если была обработана хотя бы одна доставка.
// Отмена ctx не считается ошибкой: Work проверит ctx на следующей итерации.
func (p *Poller) Poll(ctx context.Context, conns []worker.Connection, timeout time.Duration) (bool, error) {
	mconns := make([]*Connection, 0, len(conns))
	for _, c := range conns {
		mc, ok := c.(*Connection)
		if !ok {
			return false, fmt.Errorf("%w: unsupported connection type %T", worker.ErrInvalidWorkerState, c)
		}
		mconns = append(mconns, mc)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	cases := make([]reflect.SelectCase, 0, len(mconns)+2)
	for _, c := range mconns {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(c.Events()),
		})
	}

	timerCase := len(cases)
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(timer.C)})

	doneCase := -1
	if done := ctx.Done(); done != nil {
		doneCase = len(cases)
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(done)})
	}

	chosen, value, ok := reflect.Select(cases)
	switch {
	case chosen == timerCase:
		return false, nil
	case chosen == doneCase:
		return false, nil
	case !ok:
		return false, fmt.Errorf("events of %s closed", mconns[chosen])
	}

	p.dispatch(ctx, mconns[chosen], value.Interface().(amqp.Delivery))
	p.drain(ctx, mconns)

	return true, nil
}

// drain обрабатывает уже буферизованные доставки без ожидания.
// За один вызов с соединения берётся не больше размера буфера.
func (p *Poller) drain(ctx context.Context, conns []*Connection) {
	for _, c := range conns {
	buffered:
		for range eventBuffer {
			if ctx.Err() != nil {
				return
			}

			select {
			case d := <-c.Events():
				p.dispatch(ctx, c, d)
			default:
				break buffered
			}
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, conn *Connection, d amqp.Delivery) {
	h := conn.Handler()
	if h == nil {
		p.logger.Warn("delivery without handler, requeue", "conn", conn.String(), "message_id", d.MessageId)
		if err := d.Nack(false, true); err != nil {
			p.logger.Warn("failed to nack delivery", "message_id", d.MessageId, "error", err)
		}
		return
	}

	h.HandleDelivery(ctx, d)
}
