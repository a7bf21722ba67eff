package main

import (
	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"github.com/joho/godotenv"
	"github.com/resonate-audio/stem-worker/src/application"
	"github.com/resonate-audio/stem-worker/src/internal/application/separation"
	"github.com/resonate-audio/stem-worker/src/shared/config"
	"github.com/resonate-audio/stem-worker/src/shared/config/dev"
	"github.com/resonate-audio/stem-worker/src/shared/config/envvar"
	"github.com/resonate-audio/stem-worker/src/shared/config/prod"
	"github.com/resonate-audio/stem-worker/src/shared/lib/env"
)

func main() {
	_ = godotenv.Load()

	var appConfig application.Config

	switch env.Get() {
	case env.Production:
		log.SetHandler(json.Default)

		appConfig = application.Config{
			ProcessingMode: mustParseProcessingMode(envvar.MustGet(envvar.PROCESSING_MODE)),
			StorageMode:    mustParseStorageMode(envvar.MustGet(envvar.STORAGE_MODE)),
			QueueBackend:   mustParseQueueBackend(envvar.GetDefault(envvar.QUEUE_BACKEND, string(config.QueueBackendPubSub))),
			CloudStorage: config.CloudStorage{
				StorageHost: prod.GOOGLE_STORAGE_HOST,
				SecretKey:   envvar.MustGet(envvar.GOOGLE_CLOUD_KEY),
				BucketName:  envvar.MustGet(envvar.GOOGLE_CLOUD_STORAGE_BUCKET_NAME),
			},
			OutputDir:         envvar.MustGet(envvar.OUTPUT_DIR),
			WorkingDirPath:    envvar.MustGet(envvar.WORKING_DIR_PATH),
			DemucsBinPath:     envvar.MustGet(envvar.DEMUCS_BIN_PATH),
			FFmpegBinPath:     envvar.MustGet(envvar.FFMPEG_BIN_PATH),
			DemucsModel:       envvar.GetDefault(envvar.DEMUCS_MODEL, separation.DefaultModel),
			TranscodeFallback: mustParseFallback(envvar.GetDefault(envvar.TRANSCODE_FALLBACK, string(separation.FallbackStoreIntermediate))),
			CallbackBaseURL:   envvar.GetDefault(envvar.CALLBACK_BASE_URL, ""),
			PubSub: application.PubSubConfig{
				ProjectID:      envvar.MustGet(envvar.GOOGLE_CLOUD_PROJECT),
				SubscriptionID: envvar.MustGet(envvar.PUBSUB_SUBSCRIPTION),
				ResultsTopicID: envvar.MustGet(envvar.PUBSUB_RESULTS_TOPIC),
			},
			RabbitMQ: application.RabbitMQConfig{
				URL:              envvar.GetDefault(envvar.RABBITMQ_URL, ""),
				QueueName:        envvar.GetDefault(envvar.RABBITMQ_QUEUE_NAME, ""),
				ResultsQueueName: envvar.GetDefault(envvar.RABBITMQ_RESULTS_QUEUE_NAME, ""),
			},
			Port: envvar.MustGet(envvar.PORT),
		}

	case env.Development:
		log.SetHandler(text.Default)

		appConfig = application.Config{
			ProcessingMode: mustParseProcessingMode(envvar.GetDefault(envvar.PROCESSING_MODE, string(config.ProcessingModeHTTP))),
			StorageMode:    mustParseStorageMode(envvar.GetDefault(envvar.STORAGE_MODE, string(config.StorageModeLocal))),
			QueueBackend:   mustParseQueueBackend(envvar.GetDefault(envvar.QUEUE_BACKEND, string(config.QueueBackendRabbitMQ))),
			CloudStorage: config.CloudStorage{
				StorageHost: prod.GOOGLE_STORAGE_HOST,
				SecretKey:   envvar.GetDefault(envvar.GOOGLE_CLOUD_KEY, ""),
				BucketName:  envvar.GetDefault(envvar.GOOGLE_CLOUD_STORAGE_BUCKET_NAME, ""),
			},
			OutputDir:         envvar.GetDefault(envvar.OUTPUT_DIR, dev.OutputDir),
			WorkingDirPath:    envvar.GetDefault(envvar.WORKING_DIR_PATH, dev.WorkingDirPath),
			DemucsBinPath:     demucsBinPath(),
			FFmpegBinPath:     ffmpegBinPath(),
			DemucsModel:       envvar.GetDefault(envvar.DEMUCS_MODEL, separation.DefaultModel),
			TranscodeFallback: mustParseFallback(envvar.GetDefault(envvar.TRANSCODE_FALLBACK, string(separation.FallbackStoreIntermediate))),
			CallbackBaseURL:   envvar.GetDefault(envvar.CALLBACK_BASE_URL, ""),
			PubSub: application.PubSubConfig{
				ProjectID:      envvar.GetDefault(envvar.GOOGLE_CLOUD_PROJECT, dev.PubSubProjectID),
				SubscriptionID: envvar.GetDefault(envvar.PUBSUB_SUBSCRIPTION, dev.PubSubSubscriptionID),
				ResultsTopicID: envvar.GetDefault(envvar.PUBSUB_RESULTS_TOPIC, dev.PubSubResultsTopicID),
			},
			RabbitMQ: application.RabbitMQConfig{
				URL:              envvar.GetDefault(envvar.RABBITMQ_URL, dev.RabbitMQHost),
				QueueName:        envvar.GetDefault(envvar.RABBITMQ_QUEUE_NAME, dev.RabbitMQQueueName),
				ResultsQueueName: envvar.GetDefault(envvar.RABBITMQ_RESULTS_QUEUE_NAME, dev.RabbitMQResultsQueueName),
			},
			Port: envvar.GetDefault(envvar.PORT, dev.Port),
		}

	default:
		panic("Unexpected environment")
	}

	app := application.NewApp(appConfig)
	if err := app.Start(); err != nil {
		panic(err)
	}
}

func demucsBinPath() string {
	if binPath := envvar.GetDefault(envvar.DEMUCS_BIN_PATH, ""); binPath != "" {
		return binPath
	}

	return config.DemucsPath()
}

func ffmpegBinPath() string {
	if binPath := envvar.GetDefault(envvar.FFMPEG_BIN_PATH, ""); binPath != "" {
		return binPath
	}

	return config.FFmpegPath()
}

func mustParseProcessingMode(value string) config.ProcessingMode {
	mode, err := config.ParseProcessingMode(value)
	if err != nil {
		panic(err)
	}
	return mode
}

func mustParseStorageMode(value string) config.StorageMode {
	mode, err := config.ParseStorageMode(value)
	if err != nil {
		panic(err)
	}
	return mode
}

func mustParseQueueBackend(value string) config.QueueBackend {
	backend, err := config.ParseQueueBackend(value)
	if err != nil {
		panic(err)
	}
	return backend
}

func mustParseFallback(value string) separation.FallbackPolicy {
	policy, err := separation.ParseFallbackPolicy(value)
	if err != nil {
		panic(err)
	}
	return policy
}
