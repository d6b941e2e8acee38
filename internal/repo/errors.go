package repo

import "errors"

// Ошибки журнала результатов заданий.
//
// Record возвращает ErrAlreadyExists при повторной записи строки с тем же
// ID (Postgres 23505). GetLatestByHandle возвращает ErrNotFound, если по
// handle ещё ничего не записано.
var (
	ErrNotFound      = errors.New("job result not found")
	ErrAlreadyExists = errors.New("job result already recorded")
)
