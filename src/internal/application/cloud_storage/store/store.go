package store

import "context"

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// FileStore is the narrow surface the worker needs from object storage.
//
//counterfeiter:generate . FileStore
type FileStore interface {
	ReadFile(ctx context.Context, bucket string, key string) ([]byte, error)
	WriteFile(ctx context.Context, bucket string, key string, contents []byte) error
}
