package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// Sink receives progress percentages for one job. Delivery is best effort:
// implementations never return an error because progress reporting must not
// be able to fail a job.
//
//counterfeiter:generate . Sink
type Sink interface {
	ReportProgress(ctx context.Context, percentage int)
}

var _ Sink = NoopSink{}

type NoopSink struct{}

func (NoopSink) ReportProgress(ctx context.Context, percentage int) {}

var _ Sink = CallbackSink{}

// CallbackSink POSTs each percentage to the job's ingestion progress
// endpoint. Failures are logged and swallowed.
func NewCallbackSink(baseURL string, releaseID string, trackID string) CallbackSink {
	endpoint := fmt.Sprintf("%s/ingestion/progress/%s/%s",
		strings.TrimSuffix(baseURL, "/"), releaseID, trackID)

	return CallbackSink{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: endpoint,
	}
}

type CallbackSink struct {
	client   *http.Client
	endpoint string
}

func (c CallbackSink) ReportProgress(ctx context.Context, percentage int) {
	payload, err := json.Marshal(map[string]int{"progress": percentage})
	if err != nil {
		cerr.Log(cerr.Wrap(err).Error("Failed to marshal progress payload"))
		return
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		cerr.Log(cerr.Field("endpoint", c.endpoint).
			Wrap(err).Error("Failed to create progress callback request"))
		return
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.client.Do(request)
	if err != nil {
		log.WithError(err).
			WithField("endpoint", c.endpoint).
			Warn("Failed to deliver progress callback")
		return
	}
	defer response.Body.Close()

	if response.StatusCode >= 400 {
		log.WithFields(log.Fields{
			"endpoint":    c.endpoint,
			"status_code": response.StatusCode,
		}).Warn("Progress callback was rejected")
	}
}
