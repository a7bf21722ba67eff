package dummy

import (
	"context"

	"github.com/resonate-audio/stem-worker/src/internal/application/jobs/job_message"
	"github.com/resonate-audio/stem-worker/src/internal/application/publish"
)

var _ publish.Publisher = &Publisher{}

func NewDummyPublisher() *Publisher {
	return &Publisher{
		Unavailable: false,
		Results:     make(chan job_message.Result, 100),
	}
}

type Publisher struct {
	Unavailable bool
	Results     chan job_message.Result
}

func (p *Publisher) PublishResult(ctx context.Context, result job_message.Result) error {
	if p.Unavailable {
		return NetworkFailure
	}

	p.Results <- result
	return nil
}
