package abilities

import "errors"

// Ошибки abilities.
var (
	// ErrUnknownAbility — нет встроенной ability с таким именем.
	ErrUnknownAbility = errors.New("unknown ability")

	// ErrInvalidInput — данные задания не соответствуют формату ability.
	ErrInvalidInput = errors.New("invalid job input")

	// ErrHTTPRequest — HTTP-запрос завершился ошибкой.
	ErrHTTPRequest = errors.New("http request failed")

	// ErrHTTPStatus — сервер ответил кодом >= 400.
	ErrHTTPStatus = errors.New("http error status")
)
