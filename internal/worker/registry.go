package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// JobFunc — callback, выполняющий задание.
//
// Возвращённые данные уходят серверу как результат (work complete).
// Ошибка или паника превращаются в work fail.
type JobFunc func(ctx context.Context, job *Job) ([]byte, error)

// Registry — таблица abilities: имя функции → callback.
//
// Потокобезопасен. Порядок имён не гарантируется, Names возвращает их отсортированными.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]JobFunc
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]JobFunc)}
}

// Register добавляет callback для функции.
// Если функция уже зарегистрирована, callback перезаписывается.
func (r *Registry) Register(name string, fn JobFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Unregister удаляет функцию. Отсутствие функции не считается ошибкой.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.funcs, name)
}

// Get возвращает callback для функции.
func (r *Registry) Get(name string) (JobFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return fn, nil
}

// Names возвращает отсортированный список зарегистрированных функций.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
