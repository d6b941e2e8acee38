// Package mq — реализация транспорта воркера поверх RabbitMQ.
//
// Пакет предоставляет конкретные реализации интерфейсов ядра worker:
//   - connection.go — worker.Connection: соединение с одним брокером (без фонового reconnect,
//     переподключением управляет worker)
//   - handler.go    — worker.CommandHandler: consumers по abilities, приём заданий, отправка результатов
//   - poller.go     — worker.Poller: мультиплексированное ожидание событий всех соединений
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений (результаты, отправка заданий из CLI)
//   - messages.go   — JSON-конверт и payloads
//
// Типы сообщений:
//   - job.submit      — новое задание для функции
//   - work.status     — прогресс задания
//   - work.data       — промежуточные данные
//   - work.warning    — предупреждение
//   - work.exception  — данные исключения (всегда сопровождается work.fail)
//   - work.complete   — успешный результат
//   - work.fail       — неудача
//
// Exchanges:
//   - foreman.jobs     — задания, routing key = имя функции
//   - foreman.results  — результаты, routing key = <тип>.<функция>
//   - foreman.dlq      — dead letter queue
package mq
