package stem_storage_test

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/resonate-audio/stem-worker/src/internal/application/stem_storage"
)

var _ = Describe("LocalBackend", func() {
	var (
		outputRoot string
		scratchDir string
		backend    stem_storage.LocalBackend
	)

	BeforeEach(func() {
		outputRoot = GinkgoT().TempDir()
		scratchDir = GinkgoT().TempDir()

		var err error
		backend, err = stem_storage.NewLocalBackend(outputRoot)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Materialize", func() {
		It("returns an existing path untouched", func() {
			inputPath := filepath.Join(scratchDir, "input.mp3")
			err := os.WriteFile(inputPath, []byte("cool jamz"), os.ModePerm)
			Expect(err).NotTo(HaveOccurred())

			materialized, err := backend.Materialize(context.Background(), inputPath, scratchDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(materialized).To(Equal(inputPath))
		})

		It("fails with a storage failure for a missing path", func() {
			_, err := backend.Materialize(context.Background(), filepath.Join(scratchDir, "nope.mp3"), scratchDir)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, stem_storage.StorageFailure)).To(BeTrue())
		})
	})

	Describe("Persist", func() {
		It("copies the artifact under the release and track layout", func() {
			artifactPath := filepath.Join(scratchDir, "vocals.mp3")
			artifactContents := []byte("vocals audio data")
			err := os.WriteFile(artifactPath, artifactContents, os.ModePerm)
			Expect(err).NotTo(HaveOccurred())

			reference, err := backend.Persist(context.Background(), artifactPath, "release-ID", "track-ID", "vocals.mp3")
			Expect(err).NotTo(HaveOccurred())

			By("handing back a path relative to the output root", func() {
				Expect(reference).To(Equal("release-ID/track-ID/vocals.mp3"))
			})

			By("storing the artifact bytes unchanged", func() {
				storedContents, err := os.ReadFile(filepath.Join(outputRoot, reference))
				Expect(err).NotTo(HaveOccurred())
				Expect(storedContents).To(Equal(artifactContents))
			})
		})

		It("fails with a storage failure when the artifact is missing", func() {
			_, err := backend.Persist(context.Background(), filepath.Join(scratchDir, "nope.mp3"), "release-ID", "track-ID", "vocals.mp3")
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, stem_storage.StorageFailure)).To(BeTrue())
		})
	})
})
