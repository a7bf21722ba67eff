// Package job_message holds the broker payload shapes shared between this
// worker and the ingestion backend.
package job_message

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// OriginalStemMeta is pass-through metadata for re-assembly downstream; the
// worker never interprets it.
type OriginalStemMeta struct {
	ID              string  `json:"id,omitempty"`
	URI             string  `json:"uri,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	StorageProvider string  `json:"storageProvider,omitempty"`
}

// SeparationJob is the inbound payload on the separation queue.
type SeparationJob struct {
	JobID         string `json:"jobId"`
	ReleaseID     string `json:"releaseId"`
	ArtistID      string `json:"artistId,omitempty"`
	TrackID       string `json:"trackId"`
	TrackTitle    string `json:"trackTitle,omitempty"`
	TrackPosition int    `json:"trackPosition,omitempty"`

	OriginalStemURI string `json:"originalStemUri"`
	MimeType        string `json:"mimeType"`

	// CallbackURL is the backend base URL for progress delivery
	CallbackURL string `json:"callbackUrl,omitempty"`

	OriginalStemMeta *OriginalStemMeta `json:"originalStemMeta,omitempty"`
}

// Result is the outbound payload on the results queue. Exactly one is
// produced per accepted job.
type Result struct {
	JobID         string `json:"jobId"`
	ReleaseID     string `json:"releaseId"`
	ArtistID      string `json:"artistId"`
	TrackID       string `json:"trackId"`
	TrackTitle    string `json:"trackTitle,omitempty"`
	TrackPosition int    `json:"trackPosition,omitempty"`

	Status string            `json:"status"`
	Stems  map[string]string `json:"stems,omitempty"`
	Error  string            `json:"error,omitempty"`

	OriginalStemMeta *OriginalStemMeta `json:"originalStemMeta,omitempty"`
}

func CompletedResult(job SeparationJob, stems map[string]string) Result {
	result := resultFor(job)
	result.Status = StatusCompleted
	result.Stems = stems

	return result
}

func FailedResult(job SeparationJob, err error) Result {
	result := resultFor(job)
	result.Status = StatusFailed
	result.Error = err.Error()

	return result
}

func resultFor(job SeparationJob) Result {
	return Result{
		JobID:            job.JobID,
		ReleaseID:        job.ReleaseID,
		ArtistID:         job.ArtistID,
		TrackID:          job.TrackID,
		TrackTitle:       job.TrackTitle,
		TrackPosition:    job.TrackPosition,
		OriginalStemMeta: job.OriginalStemMeta,
	}
}
