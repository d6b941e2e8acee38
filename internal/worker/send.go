package worker

// handlerForJob возвращает handler соединения, доставившего задание.
func (w *Worker) handlerForJob(job *Job) (CommandHandler, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	h, ok := w.connToHandler[job.Conn]
	if !ok {
		w.logger.Error("no command handler for job connection",
			"job_handle", job.Handle,
			"function", job.Function,
		)
	}
	return h, ok
}

// SendJobStatus отправляет прогресс задания (numerator из denominator).
func (w *Worker) SendJobStatus(job *Job, numerator, denominator int) {
	if h, ok := w.handlerForJob(job); ok {
		h.SendJobStatus(job, numerator, denominator)
	}
}

// SendJobComplete отправляет успешный результат задания.
func (w *Worker) SendJobComplete(job *Job, data []byte) {
	if h, ok := w.handlerForJob(job); ok {
		h.SendJobComplete(job, data)
	}
}

// SendJobFailure отправляет неудачу задания.
// Для background-заданий сервер убирает задание из очереди.
func (w *Worker) SendJobFailure(job *Job) {
	if h, ok := w.handlerForJob(job); ok {
		h.SendJobFailure(job)
	}
}

// SendJobData отправляет промежуточные данные задания.
func (w *Worker) SendJobData(job *Job, data []byte) {
	if h, ok := w.handlerForJob(job); ok {
		h.SendJobData(job, data)
	}
}

// SendJobWarning отправляет предупреждение по заданию.
func (w *Worker) SendJobWarning(job *Job, data []byte) {
	if h, ok := w.handlerForJob(job); ok {
		h.SendJobWarning(job, data)
	}
}

// SendJobException отправляет данные исключения и следом work fail.
//
// Одно сообщение об исключении задание не завершает, поэтому
// failure отправляется всегда.
func (w *Worker) SendJobException(job *Job, data []byte) {
	h, ok := w.handlerForJob(job)
	if !ok {
		return
	}
	h.SendJobException(job, data)
	h.SendJobFailure(job)
}
