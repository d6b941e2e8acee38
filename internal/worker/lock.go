package worker

import "github.com/shaiso/Foreman/internal/telemetry"

// SetJobLock захватывает (lock=true) или освобождает (lock=false) job lock.
//
// Lock не блокирует и не ставит в очередь: конкурент сразу получает false.
// Возвращает false, если:
//   - handler неизвестен воркеру
//   - захват при уже занятом lock (в том числе самим handler)
//   - освобождение handler'ом, который lock не держит
func (w *Worker) SetJobLock(handler CommandHandler, lock bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.handlerToConn[handler]; !ok {
		return false
	}

	if lock && w.lockHolder != nil {
		telemetry.JobLockContention.Inc()
		return false
	}
	if !lock && w.lockHolder != handler {
		return false
	}

	if lock {
		w.lockHolder = handler
	} else {
		w.lockHolder = nil
	}
	return true
}

// CheckJobLock сообщает, держит ли handler job lock.
func (w *Worker) CheckJobLock(handler CommandHandler) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lockHolder != nil && w.lockHolder == handler
}
