package stem_storage_test

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/resonate-audio/stem-worker/src/internal/application/integration_test/dummy"
	"github.com/resonate-audio/stem-worker/src/internal/application/stem_storage"
)

var _ = Describe("RemoteBackend", func() {
	var (
		scratchDir string

		fileStore *dummy.FileStore
		backend   stem_storage.RemoteBackend

		bucketName  string
		storageHost string
	)

	BeforeEach(func() {
		scratchDir = GinkgoT().TempDir()
		bucketName = "bucket-head"
		storageHost = "https://storage.googleapis.com"

		fileStore = dummy.NewDummyFileStore()
		backend = stem_storage.NewRemoteBackend(fileStore, bucketName, storageHost)
	})

	Describe("Materialize", func() {
		var originalTrackData []byte

		BeforeEach(func() {
			originalTrackData = []byte("cool jamz")
			err := fileStore.WriteFile(context.Background(), bucketName, "uploads/original.mp3", originalTrackData)
			Expect(err).NotTo(HaveOccurred())
		})

		It("downloads a gs:// reference into the destination dir", func() {
			localPath, err := backend.Materialize(context.Background(), "gs://bucket-head/uploads/original.mp3", scratchDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(localPath).To(Equal(filepath.Join(scratchDir, "original.mp3")))

			contents, err := os.ReadFile(localPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(contents).To(Equal(originalTrackData))
		})

		It("downloads a gateway URL reference into the destination dir", func() {
			ref := "https://storage.googleapis.com/bucket-head/uploads/original.mp3"

			localPath, err := backend.Materialize(context.Background(), ref, scratchDir)
			Expect(err).NotTo(HaveOccurred())

			contents, err := os.ReadFile(localPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(contents).To(Equal(originalTrackData))
		})

		It("returns a schemeless reference as a local path", func() {
			inputPath := filepath.Join(scratchDir, "input.mp3")
			err := os.WriteFile(inputPath, []byte("local jamz"), os.ModePerm)
			Expect(err).NotTo(HaveOccurred())

			localPath, err := backend.Materialize(context.Background(), inputPath, scratchDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(localPath).To(Equal(inputPath))
		})

		It("fails with a storage failure for a malformed gs:// reference", func() {
			_, err := backend.Materialize(context.Background(), "gs://bucket-head", scratchDir)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, stem_storage.StorageFailure)).To(BeTrue())
		})

		It("fails with a storage failure when the object store is down", func() {
			fileStore.Unavailable = true

			_, err := backend.Materialize(context.Background(), "gs://bucket-head/uploads/original.mp3", scratchDir)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, stem_storage.StorageFailure)).To(BeTrue())
		})

		It("fails with a storage failure for a missing object", func() {
			_, err := backend.Materialize(context.Background(), "gs://bucket-head/uploads/missing.mp3", scratchDir)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, stem_storage.StorageFailure)).To(BeTrue())
		})
	})

	Describe("Persist", func() {
		var (
			artifactPath     string
			artifactContents []byte
		)

		BeforeEach(func() {
			artifactPath = filepath.Join(scratchDir, "vocals.mp3")
			artifactContents = []byte("vocals audio data")

			err := os.WriteFile(artifactPath, artifactContents, os.ModePerm)
			Expect(err).NotTo(HaveOccurred())
		})

		It("uploads the artifact and returns its public URL", func() {
			reference, err := backend.Persist(context.Background(), artifactPath, "release-ID", "track-ID", "vocals.mp3")
			Expect(err).NotTo(HaveOccurred())

			By("forming the URL against the storage host", func() {
				Expect(reference).To(Equal("https://storage.googleapis.com/bucket-head/stems/release-ID/track-ID/vocals.mp3"))
			})

			By("uploading the artifact bytes unchanged", func() {
				storedContents, ok := fileStore.GetFile(bucketName, "stems/release-ID/track-ID/vocals.mp3")
				Expect(ok).To(BeTrue())
				Expect(storedContents).To(Equal(artifactContents))
			})
		})

		It("round trips its own references through Materialize", func() {
			reference, err := backend.Persist(context.Background(), artifactPath, "release-ID", "track-ID", "vocals.mp3")
			Expect(err).NotTo(HaveOccurred())

			localPath, err := backend.Materialize(context.Background(), reference, scratchDir)
			Expect(err).NotTo(HaveOccurred())

			contents, err := os.ReadFile(localPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(contents).To(Equal(artifactContents))
		})

		It("fails with a storage failure when the object store is down", func() {
			fileStore.Unavailable = true

			_, err := backend.Persist(context.Background(), artifactPath, "release-ID", "track-ID", "vocals.mp3")
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, stem_storage.StorageFailure)).To(BeTrue())
		})
	})
})
