package publish

import (
	"context"
	"encoding/json"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/rabbitmq/amqp091-go"
	"github.com/resonate-audio/stem-worker/src/internal/application/jobs/job_message"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

const resultMessageType = "separation_result"

var _ Publisher = &RabbitMQPublisher{}

// RabbitMQPublisher publishes results to a durable queue, reconnecting its
// channel once if the broker closed it between jobs.
func NewRabbitMQPublisher(rabbitMQURL string, queueName string) (*RabbitMQPublisher, error) {
	publisher := &RabbitMQPublisher{
		rabbitMQURL: rabbitMQURL,
		queueName:   queueName,
	}

	if err := publisher.connectChannel(); err != nil {
		return nil, cerr.Wrap(err).Error("Failed to connect to RabbitMQ")
	}

	return publisher, nil
}

type RabbitMQPublisher struct {
	rabbitMQURL string
	queueName   string
	channel     *amqp091.Channel
}

func (r *RabbitMQPublisher) PublishResult(ctx context.Context, result job_message.Result) error {
	errctx := cerr.Fields(cerr.F{
		"job_id":     result.JobID,
		"release_id": result.ReleaseID,
		"status":     result.Status,
	})

	data, err := json.Marshal(result)
	if err != nil {
		return errctx.Wrap(err).Error("Failed to marshal the result message")
	}

	msg := amqp091.Publishing{
		Type:         resultMessageType,
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Headers: amqp091.Table{
			"jobId":     result.JobID,
			"releaseId": result.ReleaseID,
		},
		Body: data,
	}

	if err := r.publishOnce(ctx, msg); err != nil {
		publishErr := errctx.Wrap(err).Error("Failed to publish the result message")

		if !errors.Is(err, amqp091.ErrClosed) {
			return publishErr
		}

		if reconnectErr := r.connectChannel(); reconnectErr != nil {
			log.WithError(reconnectErr).Error("Unable to reconnect to the RabbitMQ channel")
			return publishErr
		}

		if retryErr := r.publishOnce(ctx, msg); retryErr != nil {
			return errctx.Wrap(retryErr).Error("Failed to publish the result message after reconnecting")
		}
	}

	return nil
}

func (r *RabbitMQPublisher) publishOnce(ctx context.Context, msg amqp091.Publishing) error {
	return r.channel.PublishWithContext(
		ctx,
		"",
		r.queueName,
		true,
		false,
		msg,
	)
}

func (r *RabbitMQPublisher) connectChannel() error {
	r.channel = nil

	conn, err := amqp091.Dial(r.rabbitMQURL)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to dial the RabbitMQ URL")
	}

	channel, err := conn.Channel()
	if err != nil {
		return cerr.Wrap(err).Error("Failed to create a RabbitMQ channel")
	}

	_, err = channel.QueueDeclare(
		r.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return cerr.Field("queue_name", r.queueName).
			Wrap(err).Error("Failed to declare the results queue")
	}

	r.channel = channel
	return nil
}
