package worker

import (
	"context"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/cockroachdb/errors"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

var _ MessageSource = &PubSubSource{}

// PubSubSource adapts a Pub/Sub subscription to the worker's pull-one
// shape. Receive settings are flow-controlled to a single outstanding
// message; the receive callback holds its slot until the worker settles
// the delivery, which is what serializes job processing.
func NewPubSubSource(subscription *pubsub.Subscription) *PubSubSource {
	subscription.ReceiveSettings.MaxOutstandingMessages = 1
	subscription.ReceiveSettings.NumGoroutines = 1

	return &PubSubSource{subscription: subscription}
}

type PubSubSource struct {
	subscription *pubsub.Subscription

	cancelLock sync.Mutex
	cancel     context.CancelFunc
}

func (p *PubSubSource) Consume(ctx context.Context) (<-chan Delivery, error) {
	receiveCtx, cancel := context.WithCancel(ctx)

	p.cancelLock.Lock()
	p.cancel = cancel
	p.cancelLock.Unlock()

	deliveries := make(chan Delivery)

	go func() {
		defer close(deliveries)

		err := p.subscription.Receive(receiveCtx, func(_ context.Context, message *pubsub.Message) {
			settled := make(chan struct{})

			deliveries <- Delivery{
				Body: message.Data,
				Ack: func() error {
					message.Ack()
					close(settled)
					return nil
				},
				Nack: func() error {
					message.Nack()
					close(settled)
					return nil
				},
			}

			<-settled
		})

		if err != nil && !errors.Is(err, context.Canceled) {
			cerr.Log(cerr.Field("subscription", p.subscription.String()).
				Wrap(err).Error("Pub/Sub receive loop terminated"))
		}
	}()

	return deliveries, nil
}

func (p *PubSubSource) Close() error {
	p.cancelLock.Lock()
	defer p.cancelLock.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	return nil
}
