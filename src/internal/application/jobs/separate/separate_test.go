package separate_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/resonate-audio/stem-worker/src/internal/application/integration_test/dummy"
	"github.com/resonate-audio/stem-worker/src/internal/application/jobs/job_message"
	"github.com/resonate-audio/stem-worker/src/internal/application/jobs/separate"
	"github.com/resonate-audio/stem-worker/src/internal/application/separation"
	"github.com/resonate-audio/stem-worker/src/internal/application/stem_storage"
	"github.com/resonate-audio/stem-worker/src/internal/lib/working_dir"
)

var _ = Describe("JobHandler", func() {
	var (
		outputRoot string
		uploadRoot string

		demucsExecutor *dummy.DemucsExecutor
		ffmpegExecutor *dummy.FFmpegExecutor

		handler separate.JobHandler
	)

	BeforeEach(func() {
		outputRoot = GinkgoT().TempDir()
		uploadRoot = GinkgoT().TempDir()

		demucsExecutor = dummy.NewDummyDemucsExecutor()
		ffmpegExecutor = dummy.NewDummyFFmpegExecutor()
	})

	JustBeforeEach(func() {
		backend, err := stem_storage.NewLocalBackend(outputRoot)
		Expect(err).NotTo(HaveOccurred())

		workingDir, err := working_dir.NewWorkingDir(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		engine := separation.NewDemucsEngine("/somewhere/demucs", "", demucsExecutor)
		encoder := separation.NewFFmpegEncoder("/somewhere/ffmpeg", ffmpegExecutor)
		separator := separation.NewTrackSeparator(engine, encoder, backend, separation.FallbackStoreIntermediate)

		handler = separate.NewJobHandler(backend, separator, workingDir, "")
	})

	makeMessage := func(job job_message.SeparationJob) []byte {
		message, err := json.Marshal(job)
		Expect(err).NotTo(HaveOccurred())
		return message
	}

	Describe("Queue messages", func() {
		var (
			job       job_message.SeparationJob
			inputPath string
		)

		BeforeEach(func() {
			inputPath = filepath.Join(uploadRoot, "original.mp3")
			err := os.WriteFile(inputPath, []byte("cool jamz"), os.ModePerm)
			Expect(err).NotTo(HaveOccurred())

			job = job_message.SeparationJob{
				JobID:           "job-ID",
				ReleaseID:       "release-ID",
				TrackID:         "track-ID",
				OriginalStemURI: inputPath,
			}
		})

		Describe("Happy path", func() {
			It("returns a completed result carrying the stem references", func() {
				result, err := handler.HandleSeparationJob(makeMessage(job))
				Expect(err).NotTo(HaveOccurred())

				Expect(result.JobID).To(Equal("job-ID"))
				Expect(result.ReleaseID).To(Equal("release-ID"))
				Expect(result.TrackID).To(Equal("track-ID"))
				Expect(result.Status).To(Equal(job_message.StatusCompleted))
				Expect(result.Error).To(BeEmpty())

				Expect(result.Stems).To(HaveLen(6))
				Expect(result.Stems["vocals"]).To(Equal("release-ID/track-ID/vocals.mp3"))
			})
		})

		Describe("Malformed messages", func() {
			It("rejects garbage JSON", func() {
				_, err := handler.HandleSeparationJob([]byte("{"))
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, separate.MalformedMessage)).To(BeTrue())
			})

			It("rejects a message with no release ID", func() {
				job.ReleaseID = ""
				_, err := handler.HandleSeparationJob(makeMessage(job))
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, separate.MalformedMessage)).To(BeTrue())
			})

			It("rejects a message with no track ID", func() {
				job.TrackID = ""
				_, err := handler.HandleSeparationJob(makeMessage(job))
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, separate.MalformedMessage)).To(BeTrue())
			})

			It("rejects a message with no input reference", func() {
				job.OriginalStemURI = ""
				_, err := handler.HandleSeparationJob(makeMessage(job))
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, separate.MalformedMessage)).To(BeTrue())
			})
		})

		Describe("Processing failures", func() {
			BeforeEach(func() {
				demucsExecutor.ExitCode = 1
			})

			It("returns a failed result alongside the error", func() {
				result, err := handler.HandleSeparationJob(makeMessage(job))
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, separate.MalformedMessage)).To(BeFalse())

				Expect(result.JobID).To(Equal("job-ID"))
				Expect(result.Status).To(Equal(job_message.StatusFailed))
				Expect(result.Error).NotTo(BeEmpty())
				Expect(result.Stems).To(BeEmpty())
			})
		})

		Describe("Missing input", func() {
			BeforeEach(func() {
				Expect(os.Remove(inputPath)).To(Succeed())
			})

			It("returns a failed result", func() {
				result, err := handler.HandleSeparationJob(makeMessage(job))
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, stem_storage.StorageFailure)).To(BeTrue())
				Expect(result.Status).To(Equal(job_message.StatusFailed))
			})
		})
	})

	Describe("Direct uploads", func() {
		It("runs the same pipeline over the uploaded stream", func() {
			upload := bytes.NewReader([]byte("cool jamz"))

			stems, err := handler.ProcessUpload(context.Background(), "release-ID", "track-ID", "original.mp3", upload, "")
			Expect(err).NotTo(HaveOccurred())

			Expect(stems).To(HaveLen(6))
			Expect(stems["drums"]).To(Equal("release-ID/track-ID/drums.mp3"))

			storedContents, err := os.ReadFile(filepath.Join(outputRoot, stems["drums"]))
			Expect(err).NotTo(HaveOccurred())
			Expect(storedContents).To(Equal(dummy.TranscodedContent([]byte("drums audio data"))))
		})
	})
})
