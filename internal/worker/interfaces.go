package worker

import (
	"context"
	"time"
)

// Connection — транспортное соединение с одним сервером очереди.
//
// Воркер не кэширует состояние соединения: живость всегда читается через IsConnected.
type Connection interface {
	// Connect устанавливает соединение. Ошибка оборачивает ErrConnection.
	Connect(ctx context.Context) error

	// IsConnected сообщает, установлено ли соединение сейчас.
	IsConnected() bool

	// Close закрывает соединение.
	Close() error

	// String возвращает адрес сервера для логов и ошибок.
	String() string
}

// CommandHandler — протокольная state machine одного соединения.
//
// Handler превращает входящие события в вызовы CreateJob/OnJobExecute,
// а вызовы SendJob* — в сообщения протокола. Ошибки записи handler
// обрабатывает сам (обычно закрывая соединение), воркер увидит их
// только на следующем цикле AliveConnections.
type CommandHandler interface {
	OnConnect(ctx context.Context) error
	SetAbilities(names []string)
	SetClientID(id string)

	SendJobStatus(job *Job, numerator, denominator int)
	SendJobComplete(job *Job, data []byte)
	SendJobFailure(job *Job)
	SendJobData(job *Job, data []byte)
	SendJobWarning(job *Job, data []byte)
	SendJobException(job *Job, data []byte)
}

// Poller — мультиплексированное ожидание готовности сразу всех соединений.
//
// Poll блокируется не дольше timeout, обрабатывает события готовых
// соединений через их handlers и сообщает, была ли активность.
type Poller interface {
	Poll(ctx context.Context, conns []Connection, timeout time.Duration) (bool, error)
}

// HandlerFactory создаёт CommandHandler для нового соединения.
type HandlerFactory func(w *Worker, conn Connection) CommandHandler
