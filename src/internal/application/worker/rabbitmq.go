package worker

import (
	"context"

	"github.com/rabbitmq/amqp091-go"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

// MessageChannel is the slice of an AMQP channel the source consumes from.
type MessageChannel interface {
	Consume(queue string, consumer string, autoAck bool, exclusive bool, noLocal bool, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

var _ MessageSource = &RabbitMQSource{}

func NewRabbitMQSource(channel MessageChannel, queueName string) *RabbitMQSource {
	return &RabbitMQSource{
		channel:   channel,
		queueName: queueName,
	}
}

func NewRabbitMQSourceFromConnection(conn *amqp091.Connection, queueName string) (*RabbitMQSource, error) {
	rabbitChannel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, cerr.Wrap(err).Error("Failed to get channel")
	}

	queue, err := rabbitChannel.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = rabbitChannel.Close()
		return nil, cerr.Wrap(err).Error("Failed to declare queue")
	}

	// prefetch 1: the broker holds further messages while a job is in flight
	if err := rabbitChannel.Qos(1, 0, false); err != nil {
		_ = rabbitChannel.Close()
		return nil, cerr.Wrap(err).Error("Failed to set channel QoS")
	}

	return NewRabbitMQSource(rabbitChannel, queue.Name), nil
}

type RabbitMQSource struct {
	channel   MessageChannel
	queueName string
}

func (r *RabbitMQSource) Consume(ctx context.Context) (<-chan Delivery, error) {
	messageStream, err := r.channel.Consume(
		r.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, cerr.Field("queue_name", r.queueName).
			Wrap(err).Error("Failed to start consuming from channel")
	}

	deliveries := make(chan Delivery)

	go func() {
		defer close(deliveries)

		for message := range messageStream {
			message := message
			deliveries <- Delivery{
				Body: message.Body,
				Ack:  func() error { return message.Ack(false) },
				Nack: func() error { return message.Nack(false, true) },
			}
		}
	}()

	return deliveries, nil
}

func (r *RabbitMQSource) Close() error {
	return r.channel.Close()
}
