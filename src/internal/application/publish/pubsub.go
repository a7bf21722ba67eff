package publish

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/pubsub"
	"github.com/resonate-audio/stem-worker/src/internal/application/jobs/job_message"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

var _ Publisher = PubSubPublisher{}

// PubSubPublisher publishes results to a Pub/Sub topic with jobId/releaseId
// attributes so downstream subscribers can filter without unmarshalling.
func NewPubSubPublisher(topic *pubsub.Topic) PubSubPublisher {
	return PubSubPublisher{topic: topic}
}

type PubSubPublisher struct {
	topic *pubsub.Topic
}

func (p PubSubPublisher) PublishResult(ctx context.Context, result job_message.Result) error {
	errctx := cerr.Fields(cerr.F{
		"job_id":     result.JobID,
		"release_id": result.ReleaseID,
		"status":     result.Status,
	})

	data, err := json.Marshal(result)
	if err != nil {
		return errctx.Wrap(err).Error("Failed to marshal the result message")
	}

	publishResult := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"jobId":     result.JobID,
			"releaseId": result.ReleaseID,
		},
	})

	if _, err := publishResult.Get(ctx); err != nil {
		return errctx.Wrap(err).Error("Failed to publish the result message")
	}

	return nil
}
