package stem_storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/resonate-audio/stem-worker/src/internal/application/cloud_storage/store"
	"github.com/resonate-audio/stem-worker/src/internal/lib/storagepath"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

const remoteKeyPrefix = "stems"

var _ Backend = RemoteBackend{}

// RemoteBackend stores artifacts in object storage and addresses them by
// their public gateway URL. Inbound references may use the native
// gs://bucket/key scheme or the gateway URL form; both resolve to the same
// bucket+key pair.
func NewRemoteBackend(fileStore store.FileStore, bucketName string, storageHost string) RemoteBackend {
	return RemoteBackend{
		fileStore:     fileStore,
		bucketName:    bucketName,
		storageHost:   strings.TrimSuffix(storageHost, "/"),
		pathGenerator: storagepath.Generator{Prefix: remoteKeyPrefix},
	}
}

type RemoteBackend struct {
	fileStore     store.FileStore
	bucketName    string
	storageHost   string
	pathGenerator storagepath.Generator
}

func (r RemoteBackend) Materialize(ctx context.Context, ref string, destDir string) (string, error) {
	errctx := cerr.Field("ref", ref)

	bucket, key, isRemote, err := parseObjectRef(ref)
	if err != nil {
		return "", errors.Mark(
			errctx.Wrap(err).Error("Failed to resolve the input reference"),
			StorageFailure)
	}

	// an already-local input (the HTTP upload path) needs no download
	if !isRemote {
		if _, statErr := os.Stat(ref); statErr != nil {
			return "", errors.Mark(
				errctx.Wrap(statErr).Error("Input reference is neither a remote object nor a local file"),
				StorageFailure)
		}
		return ref, nil
	}

	contents, err := r.fileStore.ReadFile(ctx, bucket, key)
	if err != nil {
		return "", errors.Mark(
			errctx.Field("bucket", bucket).Field("key", key).
				Wrap(err).Error("Failed to download the input object"),
			StorageFailure)
	}

	localPath := filepath.Join(destDir, path.Base(key))
	if err := os.WriteFile(localPath, contents, 0644); err != nil {
		return "", errors.Mark(
			errctx.Field("local_path", localPath).
				Wrap(err).Error("Failed to write the downloaded input to disk"),
			StorageFailure)
	}

	return localPath, nil
}

func (r RemoteBackend) Persist(ctx context.Context, localPath string, releaseID string, trackID string, fileName string) (string, error) {
	errctx := cerr.Fields(cerr.F{
		"local_path": localPath,
		"release_id": releaseID,
		"track_id":   trackID,
		"file_name":  fileName,
	})

	contents, err := os.ReadFile(localPath)
	if err != nil {
		return "", errors.Mark(
			errctx.Wrap(err).Error("Failed to read stem artifact"),
			StorageFailure)
	}

	key := r.pathGenerator.GeneratePath(releaseID, trackID, fileName)

	if err := r.fileStore.WriteFile(ctx, r.bucketName, key, contents); err != nil {
		return "", errors.Mark(
			errctx.Field("key", key).
				Wrap(err).Error("Failed to upload stem artifact"),
			StorageFailure)
	}

	return fmt.Sprintf("%s/%s/%s", r.storageHost, r.bucketName, key), nil
}

// parseObjectRef normalizes the two supported remote addressing forms to a
// bucket+key pair. isRemote is false for references with no URL scheme,
// which are treated as local filesystem paths.
func parseObjectRef(ref string) (bucket string, key string, isRemote bool, err error) {
	if strings.HasPrefix(ref, "gs://") {
		trimmed := strings.TrimPrefix(ref, "gs://")
		bucket, key, found := strings.Cut(trimmed, "/")
		if !found || bucket == "" || key == "" {
			return "", "", false, cerr.Field("ref", ref).Error("Malformed gs:// object reference")
		}
		return bucket, key, true, nil
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		parsed, parseErr := url.Parse(ref)
		if parseErr != nil {
			return "", "", false, cerr.Field("ref", ref).
				Wrap(parseErr).Error("Malformed object URL")
		}

		bucket, key, found := strings.Cut(strings.TrimPrefix(parsed.Path, "/"), "/")
		if !found || bucket == "" || key == "" {
			return "", "", false, cerr.Field("ref", ref).Error("Object URL is missing a bucket or key")
		}
		return bucket, key, true, nil
	}

	return "", "", false, nil
}
