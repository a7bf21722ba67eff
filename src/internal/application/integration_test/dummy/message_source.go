package dummy

import (
	"context"
	"sync"

	"github.com/resonate-audio/stem-worker/src/internal/application/worker"
)

var _ worker.MessageSource = &MessageSource{}

func NewDummyMessageSource() *MessageSource {
	return &MessageSource{
		Unavailable: false,
		deliveries:  make(chan worker.Delivery, 100),
	}
}

type MessageSource struct {
	Unavailable bool

	mutex       sync.Mutex
	ackCounter  int
	nackCounter int
	deliveries  chan worker.Delivery
}

// PublishJob enqueues one message body as if the broker delivered it.
func (m *MessageSource) PublishJob(body []byte) {
	m.deliveries <- worker.Delivery{
		Body: body,
		Ack: func() error {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			m.ackCounter++
			return nil
		},
		Nack: func() error {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			m.nackCounter++
			return nil
		},
	}
}

func (m *MessageSource) Consume(ctx context.Context) (<-chan worker.Delivery, error) {
	if m.Unavailable {
		return nil, NetworkFailure
	}

	return m.deliveries, nil
}

func (m *MessageSource) Close() error {
	close(m.deliveries)
	return nil
}

func (m *MessageSource) AckCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.ackCounter
}

func (m *MessageSource) NackCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.nackCounter
}
