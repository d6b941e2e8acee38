package domain

// JobOutcome — исход выполнения задания воркером.
//
// Жизненный цикл задания на стороне воркера:
//
//	ASSIGNED → RUNNING → COMPLETED
//	                   ↘ FAILED
type JobOutcome string

const (
	// JobOutcomeCompleted — callback завершился нормально, отправлен work complete.
	JobOutcomeCompleted JobOutcome = "COMPLETED"

	// JobOutcomeFailed — callback вернул ошибку или запаниковал, отправлен work fail.
	JobOutcomeFailed JobOutcome = "FAILED"
)

// String возвращает строковое представление JobOutcome.
func (o JobOutcome) String() string {
	return string(o)
}

// IsSuccess возвращает true для успешного исхода.
func (o JobOutcome) IsSuccess() bool {
	return o == JobOutcomeCompleted
}

// ParseJobOutcome парсит строку в JobOutcome.
// Неизвестные значения считаются FAILED.
func ParseJobOutcome(s string) JobOutcome {
	switch s {
	case "COMPLETED":
		return JobOutcomeCompleted
	default:
		return JobOutcomeFailed
	}
}
