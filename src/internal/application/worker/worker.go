package worker

import (
	"context"
	"sync"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/resonate-audio/stem-worker/src/internal/application/jobs/separate"
	"github.com/resonate-audio/stem-worker/src/internal/application/publish"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// Delivery is one inbound message with its settlement callbacks. Ack drops
// the message for good; Nack asks the broker to redeliver it.
type Delivery struct {
	Body []byte
	Ack  func() error
	Nack func() error
}

// MessageSource is the narrow surface the worker needs from a broker.
// The channel returned by Consume is closed when the source shuts down.
//
//counterfeiter:generate . MessageSource
type MessageSource interface {
	Consume(ctx context.Context) (<-chan Delivery, error)
	Close() error
}

// QueueWorker pulls separation jobs one at a time. The separation engine
// needs exclusive access to the accelerator, so a single in-flight message
// is the system's backpressure mechanism; the loop blocks on each job.
type QueueWorker struct {
	source     MessageSource
	sourceLock sync.Mutex
	handler    separate.SeparationJobHandler
	publisher  publish.Publisher
}

func NewQueueWorker(
	source MessageSource,
	handler separate.SeparationJobHandler,
	publisher publish.Publisher,
) QueueWorker {
	return QueueWorker{
		source:    source,
		handler:   handler,
		publisher: publisher,
	}
}

func (q *QueueWorker) Start(ctx context.Context) error {
	log.Info("Starting worker")

	q.sourceLock.Lock()
	if q.source == nil {
		q.sourceLock.Unlock()
		return cerr.Error("Worker has been stopped")
	}

	deliveries, err := q.source.Consume(ctx)
	q.sourceLock.Unlock()

	if err != nil {
		return cerr.Wrap(err).Error("Failed to start consuming from the message source")
	}

	for delivery := range deliveries {
		q.handleDelivery(ctx, delivery)
	}

	return nil
}

func (q *QueueWorker) Stop() {
	q.sourceLock.Lock()
	defer q.sourceLock.Unlock()

	if q.source == nil {
		return
	}

	_ = q.source.Close()
	q.source = nil
}

func (q *QueueWorker) handleDelivery(ctx context.Context, delivery Delivery) {
	log.Info("Handling message")

	result, err := q.handler.HandleSeparationJob(delivery.Body)

	if err != nil && errors.Is(err, separate.MalformedMessage) {
		// redelivery can never fix a malformed payload
		cerr.Log(cerr.Wrap(err).Error("Dropping malformed message"))
		q.settle(delivery.Ack, "ack")
		return
	}

	logger := log.WithFields(log.Fields{
		"job_id":     result.JobID,
		"release_id": result.ReleaseID,
		"track_id":   result.TrackID,
	})

	if err != nil {
		cerr.Log(cerr.Field("job_id", result.JobID).
			Wrap(err).Error("Failed to process separation job"))

		if publishErr := q.publisher.PublishResult(ctx, result); publishErr != nil {
			cerr.Log(cerr.Field("job_id", result.JobID).
				Wrap(publishErr).Error("Failed to publish failed result"))
		}

		q.settle(delivery.Nack, "nack")
		return
	}

	if publishErr := q.publisher.PublishResult(ctx, result); publishErr != nil {
		// without a published result the job is unfinished; let the broker
		// hand it back so the next attempt can complete it
		cerr.Log(cerr.Field("job_id", result.JobID).
			Wrap(publishErr).Error("Failed to publish completed result"))
		q.settle(delivery.Nack, "nack")
		return
	}

	logger.Info("Successfully processed separation job")
	q.settle(delivery.Ack, "ack")
}

func (q *QueueWorker) settle(settle func() error, name string) {
	if err := settle(); err != nil {
		log.WithError(err).Error("Failed to " + name + " message")
	}
}
