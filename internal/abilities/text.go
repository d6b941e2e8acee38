package abilities

import (
	"bytes"
	"context"
	"slices"

	"github.com/shaiso/Foreman/internal/worker"
)

// Echo возвращает данные задания без изменений.
func Echo(_ context.Context, job *worker.Job) ([]byte, error) {
	return bytes.Clone(job.Data), nil
}

// Reverse разворачивает строку по рунам.
func Reverse(_ context.Context, job *worker.Job) ([]byte, error) {
	r := []rune(string(job.Data))
	slices.Reverse(r)
	return []byte(string(r)), nil
}

// Upper переводит строку в верхний регистр.
func Upper(_ context.Context, job *worker.Job) ([]byte, error) {
	return bytes.ToUpper(job.Data), nil
}
