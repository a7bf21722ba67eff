package envvar

import (
	"fmt"
	"os"
)

const (
	ENVIRONMENT     = "ENVIRONMENT"
	PROCESSING_MODE = "PROCESSING_MODE"
	STORAGE_MODE    = "STORAGE_MODE"
	QUEUE_BACKEND   = "QUEUE_BACKEND"

	OUTPUT_DIR         = "OUTPUT_DIR"
	WORKING_DIR_PATH   = "WORKING_DIR_PATH"
	DEMUCS_BIN_PATH    = "DEMUCS_BIN_PATH"
	FFMPEG_BIN_PATH    = "FFMPEG_BIN_PATH"
	DEMUCS_MODEL       = "DEMUCS_MODEL"
	TRANSCODE_FALLBACK = "TRANSCODE_FALLBACK"
	CALLBACK_BASE_URL  = "CALLBACK_BASE_URL"
	PORT               = "PORT"

	GOOGLE_CLOUD_PROJECT             = "GOOGLE_CLOUD_PROJECT"
	GOOGLE_CLOUD_KEY                 = "GOOGLE_CLOUD_KEY"
	GOOGLE_CLOUD_STORAGE_BUCKET_NAME = "GOOGLE_CLOUD_STORAGE_BUCKET_NAME"
	PUBSUB_SUBSCRIPTION              = "PUBSUB_SUBSCRIPTION"
	PUBSUB_RESULTS_TOPIC             = "PUBSUB_RESULTS_TOPIC"

	RABBITMQ_URL                = "RABBITMQ_URL"
	RABBITMQ_QUEUE_NAME         = "RABBITMQ_QUEUE_NAME"
	RABBITMQ_RESULTS_QUEUE_NAME = "RABBITMQ_RESULTS_QUEUE_NAME"
)

func MustGet(key string) string {
	val, isSet := os.LookupEnv(key)
	if !isSet {
		panic(fmt.Sprintf("No env variable found for key %s", key))
	}

	if val == "" {
		panic(fmt.Sprintf("Env variable is empty for key %s", key))
	}

	return val
}

func GetDefault(key string, fallback string) string {
	val, isSet := os.LookupEnv(key)
	if !isSet || val == "" {
		return fallback
	}

	return val
}
