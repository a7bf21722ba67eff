package stem_storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/resonate-audio/stem-worker/src/internal/lib/storagepath"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

var _ Backend = LocalBackend{}

// LocalBackend persists artifacts under a shared volume root and hands out
// paths relative to it.
func NewLocalBackend(outputRoot string) (LocalBackend, error) {
	absRoot, err := filepath.Abs(outputRoot)
	if err != nil {
		return LocalBackend{}, cerr.Field("output_root", outputRoot).
			Wrap(err).Error("Failed to convert output root to absolute format")
	}

	if err := os.MkdirAll(absRoot, os.ModePerm); err != nil {
		return LocalBackend{}, cerr.Field("output_root", absRoot).
			Wrap(err).Error("Failed to create output root")
	}

	return LocalBackend{
		outputRoot:    absRoot,
		pathGenerator: storagepath.Generator{},
	}, nil
}

type LocalBackend struct {
	outputRoot    string
	pathGenerator storagepath.Generator
}

func (l LocalBackend) Materialize(ctx context.Context, ref string, destDir string) (string, error) {
	if _, err := os.Stat(ref); err != nil {
		markErr := cerr.Field("ref", ref).
			Wrap(err).Error("Input file does not exist on the shared volume")
		return "", errors.Mark(markErr, StorageFailure)
	}

	return ref, nil
}

func (l LocalBackend) Persist(ctx context.Context, localPath string, releaseID string, trackID string, fileName string) (string, error) {
	errctx := cerr.Fields(cerr.F{
		"local_path": localPath,
		"release_id": releaseID,
		"track_id":   trackID,
		"file_name":  fileName,
	})

	relPath := l.pathGenerator.GeneratePath(releaseID, trackID, fileName)
	destPath := filepath.Join(l.outputRoot, relPath)

	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return "", errors.Mark(
			errctx.Wrap(err).Error("Failed to create artifact directory"),
			StorageFailure)
	}

	contents, err := os.ReadFile(localPath)
	if err != nil {
		return "", errors.Mark(
			errctx.Wrap(err).Error("Failed to read stem artifact"),
			StorageFailure)
	}

	if err := os.WriteFile(destPath, contents, 0644); err != nil {
		return "", errors.Mark(
			errctx.Field("dest_path", destPath).
				Wrap(err).Error("Failed to write stem artifact to the output root"),
			StorageFailure)
	}

	return relPath, nil
}
