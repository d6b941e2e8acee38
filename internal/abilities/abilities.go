package abilities

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shaiso/Foreman/internal/worker"
)

// Reporter отправляет прогресс задания. Реализуется *worker.Worker.
type Reporter interface {
	SendJobStatus(job *worker.Job, numerator, denominator int)
}

// Registrar регистрирует функции заданий. Реализуется *worker.Worker.
type Registrar interface {
	RegisterFunction(name string, fn worker.JobFunc) string
}

// Target — воркер, в котором регистрируются abilities.
type Target interface {
	Registrar
	Reporter
}

// Defaults возвращает таблицу встроенных abilities.
//
// reporter может быть nil — тогда delay не сообщает прогресс.
func Defaults(reporter Reporter) map[string]worker.JobFunc {
	return map[string]worker.JobFunc{
		"echo":    Echo,
		"reverse": Reverse,
		"upper":   Upper,
		"delay":   Delay(reporter),
		"http":    HTTP(nil),
	}
}

// Names возвращает отсортированные имена встроенных abilities.
func Names() []string {
	names := make([]string, 0, 5)
	for name := range Defaults(nil) {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Register регистрирует в w встроенные abilities с указанными именами.
// Без имён регистрируются все.
//
// Неизвестное имя — ошибка ErrUnknownAbility; в этом случае ничего
// не регистрируется.
func Register(w Target, names ...string) error {
	table := Defaults(w)

	if len(names) == 0 {
		names = Names()
	}

	for _, name := range names {
		if _, ok := table[name]; !ok {
			return fmt.Errorf("%w: %s (available: %s)", ErrUnknownAbility, name, strings.Join(Names(), ", "))
		}
	}

	for _, name := range names {
		w.RegisterFunction(name, table[name])
	}
	return nil
}
