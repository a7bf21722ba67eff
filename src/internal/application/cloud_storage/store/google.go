package store

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
	"google.golang.org/api/option"
)

var _ FileStore = GoogleFileStore{}

func NewGoogleFileStore(jsonKey string) (GoogleFileStore, error) {
	client, err := storage.NewClient(
		context.Background(),
		option.WithCredentialsJSON([]byte(jsonKey)),
	)
	if err != nil {
		return GoogleFileStore{}, cerr.Wrap(err).Error("Failed to create Google Cloud Storage client")
	}

	return GoogleFileStore{client: client}, nil
}

type GoogleFileStore struct {
	client *storage.Client
}

func (g GoogleFileStore) ReadFile(ctx context.Context, bucket string, key string) ([]byte, error) {
	errctx := cerr.Fields(cerr.F{"bucket": bucket, "key": key})

	reader, err := g.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to open object for reading")
	}
	defer reader.Close()

	contents, err := io.ReadAll(reader)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to read object contents")
	}

	return contents, nil
}

func (g GoogleFileStore) WriteFile(ctx context.Context, bucket string, key string, contents []byte) error {
	errctx := cerr.Fields(cerr.F{"bucket": bucket, "key": key})

	writer := g.client.Bucket(bucket).Object(key).NewWriter(ctx)

	if _, err := writer.Write(contents); err != nil {
		_ = writer.Close()
		return errctx.Wrap(err).Error("Failed to write object contents")
	}

	// the upload isn't durable until Close returns without error
	if err := writer.Close(); err != nil {
		return errctx.Wrap(err).Error("Failed to finalize object write")
	}

	return nil
}
