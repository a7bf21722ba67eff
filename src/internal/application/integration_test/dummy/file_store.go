package dummy

import (
	"context"
	"fmt"
	"sync"

	"github.com/resonate-audio/stem-worker/src/internal/application/cloud_storage/store"
)

var _ store.FileStore = &FileStore{}

func NewDummyFileStore() *FileStore {
	return &FileStore{
		Unavailable: false,
		State:       make(map[string][]byte),
	}
}

type FileStore struct {
	Unavailable bool
	State       map[string][]byte
	mutex       sync.RWMutex
}

func (f *FileStore) ReadFile(ctx context.Context, bucket string, key string) ([]byte, error) {
	if f.Unavailable {
		return nil, NetworkFailure
	}

	f.mutex.RLock()
	defer f.mutex.RUnlock()

	contents, ok := f.State[objectName(bucket, key)]
	if !ok {
		return nil, NotFound
	}

	return contents, nil
}

func (f *FileStore) WriteFile(ctx context.Context, bucket string, key string, contents []byte) error {
	if f.Unavailable {
		return NetworkFailure
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.State[objectName(bucket, key)] = contents
	return nil
}

// GetFile is a test convenience that bypasses the Unavailable switch.
func (f *FileStore) GetFile(bucket string, key string) ([]byte, bool) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	contents, ok := f.State[objectName(bucket, key)]
	return contents, ok
}

func objectName(bucket string, key string) string {
	return fmt.Sprintf("%s/%s", bucket, key)
}
