// Package worker — ядро воркера распределённой очереди заданий.
//
// # Обзор
//
// Worker держит пул соединений с серверами очереди, объявляет им набор
// abilities (имён функций, которые умеет выполнять), получает задания,
// выполняет зарегистрированные callbacks и отправляет результат обратно.
//
// Протокол (кадры, кодирование команд) и state machine соединения сюда
// не входят. Ядро работает с ними через интерфейсы:
//
//	type Connection interface     // Connect / IsConnected / Close
//	type CommandHandler interface // OnConnect, SetAbilities, SetClientID, SendJob*
//	type Poller interface         // Poll(ctx, conns, timeout) (activity, error)
//
// Реализация поверх RabbitMQ находится в пакете internal/mq.
//
// # Использование
//
//	w, err := worker.New(worker.Config{
//	    Connections: conns,
//	    NewHandler:  mq.NewHandlerFactory(mq.HandlerConfig{Logger: logger}),
//	    Poller:      mq.NewPoller(logger),
//	    BeforePoll:  policy.UntilDone(ctx),
//	    Logger:      logger,
//	})
//	if err != nil {
//	    return err
//	}
//
//	w.RegisterFunction("reverse", reverse)
//	if err := w.Work(ctx, worker.DefaultPollTimeout); err != nil {
//	    // errors.Is(err, worker.ErrServerUnavailable)
//	}
//
// # Цикл Work
//
//  1. AliveConnections: перемешать соединения, переподключить упавшие
//     (одна попытка за цикл, без backoff), вернуть живые
//  2. Нет живых соединений → ErrServerUnavailable, poll не выполняется
//  3. BeforePoll; false → выход
//  4. Poll с таймаутом (по умолчанию 60s)
//  5. AfterPoll(activity); false → выход
//
// При выходе закрываются все соединения, живые на начало последней итерации.
//
// # Job lock
//
// SetJobLock — неблокирующий мьютекс с try-семантикой: в каждый момент
// только один handler выполняет задание и пишет его результат.
// Повторный захват (в том числе тем же handler) и освобождение чужого
// lock возвращают false.
//
// # Ошибки
//
//   - ErrConnection — транзиентная, поглощается supervisor'ом
//   - ErrServerUnavailable — фатальна для Work
//   - ErrInvalidWorkerState — неизвестный handler или соединение
//   - ErrUnknownFunction — нет callback для функции задания, пробрасывается из OnJobExecute
//   - ошибка или паника callback — превращается в work fail, цикл продолжается
package worker
