package separate

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/resonate-audio/stem-worker/src/internal/application/jobs/job_message"
	"github.com/resonate-audio/stem-worker/src/internal/application/progress"
	"github.com/resonate-audio/stem-worker/src/internal/application/separation"
	"github.com/resonate-audio/stem-worker/src/internal/application/stem_storage"
	"github.com/resonate-audio/stem-worker/src/internal/lib/working_dir"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const JobType string = "separate_stems"
const ErrorMessage string = "Failed to separate the source audio into stems"

// MalformedMessage marks payloads that can never become parseable; the
// worker drops these instead of redelivering.
var MalformedMessage = errors.New("malformed job message")

//counterfeiter:generate . SeparationJobHandler
type SeparationJobHandler interface {
	HandleSeparationJob(message []byte) (job_message.Result, error)
}

func NewJobHandler(
	backend stem_storage.Backend,
	separator separation.TrackSeparator,
	workingDir working_dir.WorkingDir,
	callbackBaseURL string,
) JobHandler {
	return JobHandler{
		backend:         backend,
		separator:       separator,
		workingDir:      workingDir,
		callbackBaseURL: callbackBaseURL,
	}
}

type JobHandler struct {
	backend         stem_storage.Backend
	separator       separation.TrackSeparator
	workingDir      working_dir.WorkingDir
	callbackBaseURL string
}

// HandleSeparationJob runs one queue message to completion. On a processing
// failure the returned Result is the failed result to publish alongside the
// returned error; on a MalformedMessage error there is nothing to publish.
func (h JobHandler) HandleSeparationJob(message []byte) (job_message.Result, error) {
	job, err := unmarshalMessage(message)
	if err != nil {
		return job_message.Result{}, err
	}

	errctx := cerr.Fields(cerr.F{
		"job_id":     job.JobID,
		"release_id": job.ReleaseID,
		"track_id":   job.TrackID,
	})

	stems, err := h.processJob(context.Background(), job)
	if err != nil {
		failure := errctx.Wrap(err).Error(ErrorMessage)
		return job_message.FailedResult(job, failure), failure
	}

	return job_message.CompletedResult(job, stems), nil
}

// ProcessUpload runs the same pipeline for the direct HTTP path, where the
// input arrives as an upload stream instead of a storage reference.
func (h JobHandler) ProcessUpload(
	ctx context.Context,
	releaseID string,
	trackID string,
	fileName string,
	contents io.Reader,
	callbackURL string,
) (separation.StemReferences, error) {
	errctx := cerr.Fields(cerr.F{
		"release_id": releaseID,
		"track_id":   trackID,
		"file_name":  fileName,
	})

	scratchDir, cleanup, err := h.makeScratchDir()
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to create a scratch dir for the upload")
	}
	defer cleanup()

	inputPath := filepath.Join(scratchDir, filepath.Base(fileName))
	if err := writeStream(inputPath, contents); err != nil {
		return nil, errctx.Wrap(err).Error("Failed to save the uploaded file")
	}

	job := job_message.SeparationJob{
		JobID:           uuid.New().String(),
		ReleaseID:       releaseID,
		TrackID:         trackID,
		OriginalStemURI: inputPath,
		CallbackURL:     callbackURL,
	}

	return h.runSeparation(ctx, job, scratchDir, inputPath)
}

func (h JobHandler) processJob(ctx context.Context, job job_message.SeparationJob) (separation.StemReferences, error) {
	errctx := cerr.Field("original_stem_uri", job.OriginalStemURI)

	scratchDir, cleanup, err := h.makeScratchDir()
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to create a scratch dir for the job")
	}
	defer cleanup()

	inputPath, err := h.backend.Materialize(ctx, job.OriginalStemURI, scratchDir)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to materialize the input audio")
	}

	return h.runSeparation(ctx, job, scratchDir, inputPath)
}

func (h JobHandler) runSeparation(
	ctx context.Context,
	job job_message.SeparationJob,
	scratchDir string,
	inputPath string,
) (separation.StemReferences, error) {
	return h.separator.SeparateTrack(ctx, separation.Request{
		ReleaseID: job.ReleaseID,
		TrackID:   job.TrackID,
		InputPath: inputPath,
		OutRoot:   scratchDir,
		Sink:      h.sinkFor(job),
	})
}

func (h JobHandler) sinkFor(job job_message.SeparationJob) progress.Sink {
	baseURL := job.CallbackURL
	if baseURL == "" {
		baseURL = h.callbackBaseURL
	}

	if baseURL == "" {
		return progress.NoopSink{}
	}

	return progress.NewCallbackSink(baseURL, job.ReleaseID, job.TrackID)
}

func (h JobHandler) makeScratchDir() (string, func(), error) {
	scratchDir, err := os.MkdirTemp(h.workingDir.TempDir(), "separate-*")
	if err != nil {
		return "", nil, cerr.Field("temp_dir", h.workingDir.TempDir()).
			Wrap(err).Error("Failed to create a scratch dir")
	}

	scratchDir, err = filepath.Abs(scratchDir)
	if err != nil {
		return "", nil, cerr.Field("scratch_dir", scratchDir).
			Wrap(err).Error("Failed to turn scratch dir into absolute format")
	}

	return scratchDir, func() { _ = os.RemoveAll(scratchDir) }, nil
}

func writeStream(destPath string, contents io.Reader) error {
	destFile, err := os.Create(destPath)
	if err != nil {
		return cerr.Field("dest_path", destPath).
			Wrap(err).Error("Failed to create the destination file")
	}

	if _, err := io.Copy(destFile, contents); err != nil {
		_ = destFile.Close()
		return cerr.Field("dest_path", destPath).
			Wrap(err).Error("Failed to write the destination file")
	}

	return destFile.Close()
}

func unmarshalMessage(message []byte) (job_message.SeparationJob, error) {
	job := job_message.SeparationJob{}
	if err := json.Unmarshal(message, &job); err != nil {
		malformed := cerr.Wrap(err).Error("Failed to unmarshal message JSON")
		return job_message.SeparationJob{}, errors.Mark(malformed, MalformedMessage)
	}

	errctx := cerr.Field("job", job)

	if job.ReleaseID == "" {
		return job_message.SeparationJob{}, errors.Mark(errctx.Error("Missing release ID"), MalformedMessage)
	}

	if job.TrackID == "" {
		return job_message.SeparationJob{}, errors.Mark(errctx.Error("Missing track ID"), MalformedMessage)
	}

	if job.OriginalStemURI == "" {
		return job_message.SeparationJob{}, errors.Mark(errctx.Error("Missing original stem URI"), MalformedMessage)
	}

	return job, nil
}
