package publish

import (
	"context"

	"github.com/resonate-audio/stem-worker/src/internal/application/jobs/job_message"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// Publisher delivers one terminal result per job to the results queue.
//
//counterfeiter:generate . Publisher
type Publisher interface {
	PublishResult(ctx context.Context, result job_message.Result) error
}
