package config

import (
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

type ProcessingMode string

const (
	ProcessingModeHTTP  ProcessingMode = "http"
	ProcessingModeQueue ProcessingMode = "queue"
)

func ParseProcessingMode(value string) (ProcessingMode, error) {
	switch value {
	case string(ProcessingModeHTTP):
		return ProcessingModeHTTP, nil
	case string(ProcessingModeQueue):
		return ProcessingModeQueue, nil
	default:
		return "", cerr.Field("processing_mode", value).Error("Value does not match any processing mode")
	}
}

type StorageMode string

const (
	StorageModeLocal  StorageMode = "local"
	StorageModeRemote StorageMode = "remote"
)

func ParseStorageMode(value string) (StorageMode, error) {
	switch value {
	case string(StorageModeLocal):
		return StorageModeLocal, nil
	case string(StorageModeRemote):
		return StorageModeRemote, nil
	default:
		return "", cerr.Field("storage_mode", value).Error("Value does not match any storage mode")
	}
}

type QueueBackend string

const (
	QueueBackendPubSub   QueueBackend = "pubsub"
	QueueBackendRabbitMQ QueueBackend = "rabbitmq"
)

func ParseQueueBackend(value string) (QueueBackend, error) {
	switch value {
	case string(QueueBackendPubSub):
		return QueueBackendPubSub, nil
	case string(QueueBackendRabbitMQ):
		return QueueBackendRabbitMQ, nil
	default:
		return "", cerr.Field("queue_backend", value).Error("Value does not match any queue backend")
	}
}

// CloudStorage describes the remote object storage target. StorageHost is
// the public gateway that persisted object URLs are formed against.
type CloudStorage struct {
	StorageHost string
	SecretKey   string
	BucketName  string
}
