package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeJobs    Exchange = "foreman.jobs"
	ExchangeResults Exchange = "foreman.results"
	ExchangeDLQ     Exchange = "foreman.dlq"
)

// Queues — имена общих очередей.
// Очереди функций создаются динамически: FunctionQueue(fn).
const (
	QueueResultsAll Queue = "results.all"
	QueueDLQJobs    Queue = "dlq.jobs"
)

// Routing keys.
const (
	RoutingKeyAllResults RoutingKey = "#"
	RoutingKeyDLQJobs    RoutingKey = "jobs"
)

// FunctionQueue возвращает имя очереди заданий для функции.
func FunctionQueue(function string) Queue {
	return Queue("jobs." + function)
}

// FunctionRoutingKey возвращает routing key заданий для функции.
func FunctionRoutingKey(function string) RoutingKey {
	return RoutingKey(function)
}

// ResultRoutingKey возвращает routing key результата: <тип>.<функция>.
func ResultRoutingKey(msgType MessageType, function string) RoutingKey {
	return RoutingKey(string(msgType) + "." + function)
}

// ResultPattern возвращает topic-шаблон всех результатов функции.
func ResultPattern(function string) RoutingKey {
	return RoutingKey("work.*." + function)
}

// SetupTopology объявляет общую топологию через соединение.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, declareTopology)
}

// declareTopology создаёт exchanges и общие очереди. Идемпотентна.
func declareTopology(ch *amqp.Channel) error {
	// 1. Создаём exchanges
	if err := declareExchanges(ch); err != nil {
		return err
	}

	// 2. Создаём общие queues и привязываем их
	return declareSharedQueues(ch)
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeJobs, "direct"},
		{ExchangeResults, "topic"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareSharedQueues создаёт очереди результатов и DLQ.
func declareSharedQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueResultsAll, RoutingKeyAllResults, ExchangeResults},
		{QueueDLQJobs, RoutingKeyDLQJobs, ExchangeDLQ},
	}

	for _, b := range bindings {
		if err := declareAndBind(ch, b.queue, b.routingKey, b.exchange, nil); err != nil {
			return err
		}
	}

	return nil
}

// DeclareFunctionQueue создаёт очередь заданий функции и привязывает её к foreman.jobs.
//
// Отклонённые задания (неизвестная функция) уходят в dlq.jobs.
func DeclareFunctionQueue(ch *amqp.Channel, function string) (Queue, error) {
	queue := FunctionQueue(function)
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQJobs),
	}

	if err := declareAndBind(ch, queue, FunctionRoutingKey(function), ExchangeJobs, dlqArgs); err != nil {
		return "", err
	}
	return queue, nil
}

func declareAndBind(ch *amqp.Channel, queue Queue, key RoutingKey, exchange Exchange, args amqp.Table) error {
	_, err := ch.QueueDeclare(
		string(queue), // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		args,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	err = ch.QueueBind(
		string(queue),    // queue name
		string(key),      // routing key
		string(exchange), // exchange
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", queue, exchange, err)
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Foreman RabbitMQ Topology:

    foreman.jobs (direct)
    └── jobs.<function> [routing: <function>]
            Consumer: Worker (one consumer per registered ability)
            DLQ: dlq.jobs

    foreman.results (topic)
    └── results.all [routing: #]
            Keys: work.{status,data,warning,exception,complete,fail}.<function>

    foreman.dlq (direct)
    └── dlq.jobs [routing: jobs]
            Manual processing
  `
}
