package dummy

import (
	"sync"

	"github.com/resonate-audio/stem-worker/src/internal/application/jobs/job_message"
	"github.com/resonate-audio/stem-worker/src/internal/application/jobs/separate"
)

var _ separate.SeparationJobHandler = &JobHandler{}

func NewDummyJobHandler() *JobHandler {
	return &JobHandler{}
}

// JobHandler hands back a canned result so worker tests can steer the
// processing outcome without a real pipeline.
type JobHandler struct {
	Result job_message.Result
	Err    error

	mutex    sync.Mutex
	messages [][]byte
}

func (j *JobHandler) HandleSeparationJob(message []byte) (job_message.Result, error) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	j.messages = append(j.messages, message)
	return j.Result, j.Err
}

func (j *JobHandler) HandledMessages() [][]byte {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	messages := make([][]byte, len(j.messages))
	copy(messages, j.messages)
	return messages
}
