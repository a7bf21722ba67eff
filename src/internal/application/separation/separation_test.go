package separation_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/resonate-audio/stem-worker/src/internal/application/integration_test/dummy"
	"github.com/resonate-audio/stem-worker/src/internal/application/separation"
	"github.com/resonate-audio/stem-worker/src/internal/application/stem_storage"
)

var _ = Describe("TrackSeparator", func() {
	var (
		outputRoot string
		scratchDir string
		inputPath  string

		demucsExecutor *dummy.DemucsExecutor
		ffmpegExecutor *dummy.FFmpegExecutor
		progressSink   *dummy.ProgressSink

		backend   stem_storage.LocalBackend
		separator separation.TrackSeparator
		fallback  separation.FallbackPolicy

		request separation.Request
	)

	BeforeEach(func() {
		outputRoot = GinkgoT().TempDir()
		scratchDir = GinkgoT().TempDir()
		fallback = separation.FallbackStoreIntermediate

		demucsExecutor = dummy.NewDummyDemucsExecutor()
		ffmpegExecutor = dummy.NewDummyFFmpegExecutor()
		progressSink = dummy.NewDummyProgressSink()

		inputPath = filepath.Join(scratchDir, "original.mp3")
		err := os.WriteFile(inputPath, []byte("cool jamz"), os.ModePerm)
		Expect(err).NotTo(HaveOccurred())

		backend, err = stem_storage.NewLocalBackend(outputRoot)
		Expect(err).NotTo(HaveOccurred())
	})

	JustBeforeEach(func() {
		engine := separation.NewDemucsEngine("/somewhere/demucs", "", demucsExecutor)
		encoder := separation.NewFFmpegEncoder("/somewhere/ffmpeg", ffmpegExecutor)
		separator = separation.NewTrackSeparator(engine, encoder, backend, fallback)

		request = separation.Request{
			ReleaseID: "release-ID",
			TrackID:   "track-ID",
			InputPath: inputPath,
			OutRoot:   scratchDir,
			Sink:      progressSink,
		}
	})

	Describe("Happy path", func() {
		It("stores every produced stem as an MP3", func() {
			references, err := separator.SeparateTrack(context.Background(), request)
			Expect(err).NotTo(HaveOccurred())

			By("returning a reference for each of the six stems", func() {
				Expect(references).To(HaveLen(6))
				for _, stemName := range separation.StemNames {
					Expect(references).To(HaveKey(stemName))
				}
			})

			By("storing transcoded stem content", func() {
				storedContents, err := os.ReadFile(filepath.Join(outputRoot, references["vocals"]))
				Expect(err).NotTo(HaveOccurred())
				Expect(storedContents).To(Equal(dummy.TranscodedContent([]byte("vocals audio data"))))
			})

			By("reporting deduplicated progress along the way", func() {
				Expect(progressSink.Reported()).To(Equal([]int{0, 50, 100}))
			})
		})

		It("stores only the stems the engine produced", func() {
			demucsExecutor.StemsToProduce = []string{"vocals", "piano"}

			references, err := separator.SeparateTrack(context.Background(), request)
			Expect(err).NotTo(HaveOccurred())

			Expect(references).To(HaveLen(2))
			Expect(references).To(HaveKey("vocals"))
			Expect(references).To(HaveKey("piano"))
		})

		It("succeeds with no references when the engine produced nothing", func() {
			demucsExecutor.StemsToProduce = nil

			references, err := separator.SeparateTrack(context.Background(), request)
			Expect(err).NotTo(HaveOccurred())
			Expect(references).To(BeEmpty())
		})
	})

	Describe("A chatty engine", func() {
		BeforeEach(func() {
			// a single unbroken run far past any line-oriented buffer size
			demucsExecutor.StdoutText = strings.Repeat("x", 300*1024)
		})

		It("drains stdout to EOF and still completes the job", func() {
			references, err := separator.SeparateTrack(context.Background(), request)
			Expect(err).NotTo(HaveOccurred())
			Expect(references).To(HaveLen(6))

			Expect(demucsExecutor.StdoutDrained()).To(BeTrue())
		})
	})

	Describe("Engine failure", func() {
		BeforeEach(func() {
			demucsExecutor.ExitCode = 1
		})

		It("fails the job and stores nothing", func() {
			_, err := separator.SeparateTrack(context.Background(), request)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, separation.SeparationFailed)).To(BeTrue())

			entries, readErr := os.ReadDir(outputRoot)
			Expect(readErr).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})
	})

	Describe("Output layout mismatch", func() {
		BeforeEach(func() {
			demucsExecutor.SkipOutput = true
		})

		It("fails the job when the engine exits cleanly but wrote no output", func() {
			_, err := separator.SeparateTrack(context.Background(), request)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, separation.OutputLayoutMismatch)).To(BeTrue())
		})
	})

	Describe("Transcode failure", func() {
		BeforeEach(func() {
			ffmpegExecutor.ExitCode = 1
			ffmpegExecutor.FailureOutput = "unsupported codec"
		})

		Describe("Storing the intermediate instead", func() {
			It("stores the uncompressed stems", func() {
				references, err := separator.SeparateTrack(context.Background(), request)
				Expect(err).NotTo(HaveOccurred())

				Expect(references).To(HaveLen(6))
				Expect(references["vocals"]).To(Equal("release-ID/track-ID/vocals.wav"))

				storedContents, err := os.ReadFile(filepath.Join(outputRoot, references["vocals"]))
				Expect(err).NotTo(HaveOccurred())
				Expect(storedContents).To(Equal([]byte("vocals audio data")))
			})
		})

		Describe("Omitting the stem", func() {
			BeforeEach(func() {
				fallback = separation.FallbackOmit
			})

			It("leaves the failed stems out without failing the job", func() {
				references, err := separator.SeparateTrack(context.Background(), request)
				Expect(err).NotTo(HaveOccurred())
				Expect(references).To(BeEmpty())
			})
		})

		Describe("A clean exit that produced no file", func() {
			BeforeEach(func() {
				ffmpegExecutor.ExitCode = 0
				ffmpegExecutor.SkipOutput = true
			})

			It("is treated the same as a failed transcode", func() {
				references, err := separator.SeparateTrack(context.Background(), request)
				Expect(err).NotTo(HaveOccurred())
				Expect(references["vocals"]).To(Equal("release-ID/track-ID/vocals.wav"))
			})
		})
	})
})
