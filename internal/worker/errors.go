package worker

import "errors"

// Ошибки воркера.
var (
	// ErrConnection — не удалось установить соединение с сервером очереди.
	// Транзиентная ошибка: соединение просто исключается из текущего цикла.
	ErrConnection = errors.New("connection error")

	// ErrServerUnavailable — после попытки переподключения не осталось ни одного живого соединения.
	// Фатальна для Work.
	ErrServerUnavailable = errors.New("server unavailable")

	// ErrInvalidWorkerState — передан handler или соединение, неизвестные воркеру.
	ErrInvalidWorkerState = errors.New("invalid worker state")

	// ErrUnknownFunction — для функции задания не зарегистрирован callback.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrCallbackPanic — callback задания завершился паникой.
	ErrCallbackPanic = errors.New("job callback panicked")
)
