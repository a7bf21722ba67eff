package dummy

import (
	"context"
	"sync"

	"github.com/resonate-audio/stem-worker/src/internal/application/progress"
)

var _ progress.Sink = &ProgressSink{}

func NewDummyProgressSink() *ProgressSink {
	return &ProgressSink{}
}

type ProgressSink struct {
	mutex    sync.Mutex
	reported []int
}

func (p *ProgressSink) ReportProgress(ctx context.Context, percentage int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.reported = append(p.reported, percentage)
}

func (p *ProgressSink) Reported() []int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	reported := make([]int, len(p.reported))
	copy(reported, p.reported)
	return reported
}
