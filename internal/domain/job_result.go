package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobResult — запись журнала об исходе одного задания.
//
// Создаётся воркером после отправки результата серверу.
// Хранится в таблице job_results, если журнал включён.
type JobResult struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// Handle — идентификатор задания, назначенный сервером.
	Handle string `json:"handle"`

	// Function — имя выполненной функции.
	Function string `json:"function"`

	// Unique — уникальный идентификатор от клиента.
	Unique string `json:"unique,omitempty"`

	// ClientID — идентификатор воркера на момент выполнения.
	ClientID string `json:"client_id,omitempty"`

	// Server — адрес сервера, выдавшего задание.
	Server string `json:"server"`

	// Outcome — исход выполнения.
	Outcome JobOutcome `json:"outcome"`

	// Result — данные, отправленные в work complete.
	Result []byte `json:"result,omitempty"`

	// Error — текст ошибки callback. Серверу не передаётся.
	Error string `json:"error,omitempty"`

	// StartedAt — время начала выполнения callback.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время отправки результата.
	FinishedAt time.Time `json:"finished_at"`
}

// Duration возвращает продолжительность выполнения.
func (r *JobResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
