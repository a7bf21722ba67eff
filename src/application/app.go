package application

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/apex/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rabbitmq/amqp091-go"
	"github.com/resonate-audio/stem-worker/src/internal/application/cloud_storage/store"
	"github.com/resonate-audio/stem-worker/src/internal/application/executor"
	"github.com/resonate-audio/stem-worker/src/internal/application/gateway"
	"github.com/resonate-audio/stem-worker/src/internal/application/jobs/separate"
	"github.com/resonate-audio/stem-worker/src/internal/application/publish"
	"github.com/resonate-audio/stem-worker/src/internal/application/separation"
	"github.com/resonate-audio/stem-worker/src/internal/application/stem_storage"
	"github.com/resonate-audio/stem-worker/src/internal/application/worker"
	"github.com/resonate-audio/stem-worker/src/internal/lib/working_dir"
	sharedconfig "github.com/resonate-audio/stem-worker/src/shared/config"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
	"google.golang.org/api/option"
)

type PubSubConfig struct {
	ProjectID      string
	SubscriptionID string
	ResultsTopicID string
}

type RabbitMQConfig struct {
	URL              string
	QueueName        string
	ResultsQueueName string
}

type Config struct {
	ProcessingMode sharedconfig.ProcessingMode
	StorageMode    sharedconfig.StorageMode
	QueueBackend   sharedconfig.QueueBackend

	CloudStorage sharedconfig.CloudStorage

	OutputDir      string
	WorkingDirPath string

	DemucsBinPath     string
	FFmpegBinPath     string
	DemucsModel       string
	TranscodeFallback separation.FallbackPolicy

	CallbackBaseURL string

	PubSub   PubSubConfig
	RabbitMQ RabbitMQConfig

	Port string
}

type App struct {
	config Config
	echo   *echo.Echo
	worker *worker.QueueWorker
}

func NewApp(config Config) App {
	app := App{
		config: config,
		echo:   echo.New(),
	}

	handler := makeJobHandler(config)

	webGateway := gateway.NewGateway(handler, config.StorageMode, config.ProcessingMode)
	app.echo.Use(middleware.Logger())
	app.echo.Use(middleware.Recover())
	app.echo.GET("/health", webGateway.Health)

	if config.ProcessingMode == sharedconfig.ProcessingModeQueue {
		queueWorker := makeQueueWorker(config, handler)
		app.worker = &queueWorker
	} else {
		app.echo.POST("/separate/:releaseId/:trackId", webGateway.Separate)
	}

	return app
}

// Start blocks until the relevant surface stops. In queue mode the web
// server only serves the health endpoint and runs alongside the worker loop.
func (a App) Start() error {
	if a.worker != nil {
		go func() {
			if err := a.echo.Start(a.config.Port); err != nil {
				log.WithError(err).Info("Web server stopped")
			}
		}()

		return a.worker.Start(context.Background())
	}

	return a.echo.Start(a.config.Port)
}

func makeJobHandler(config Config) separate.JobHandler {
	workingDir, err := working_dir.NewWorkingDir(config.WorkingDirPath)
	ensureOk(err)

	backend := makeStorageBackend(config)

	engine := separation.NewDemucsEngine(
		config.DemucsBinPath,
		config.DemucsModel,
		executor.BinaryFileExecutor{},
	)

	encoder := separation.NewFFmpegEncoder(
		config.FFmpegBinPath,
		executor.BinaryFileExecutor{},
	)

	separator := separation.NewTrackSeparator(engine, encoder, backend, config.TranscodeFallback)

	return separate.NewJobHandler(backend, separator, workingDir, config.CallbackBaseURL)
}

func makeStorageBackend(config Config) stem_storage.Backend {
	switch config.StorageMode {
	case sharedconfig.StorageModeRemote:
		fileStore, err := store.NewGoogleFileStore(config.CloudStorage.SecretKey)
		ensureOk(err)

		return stem_storage.NewRemoteBackend(
			fileStore,
			config.CloudStorage.BucketName,
			config.CloudStorage.StorageHost,
		)

	default:
		backend, err := stem_storage.NewLocalBackend(config.OutputDir)
		ensureOk(err)
		return backend
	}
}

func makeQueueWorker(config Config, handler separate.JobHandler) worker.QueueWorker {
	switch config.QueueBackend {
	case sharedconfig.QueueBackendPubSub:
		source, publisher := makePubSubPair(config)
		return worker.NewQueueWorker(source, handler, publisher)

	default:
		source, publisher := makeRabbitMQPair(config)
		return worker.NewQueueWorker(source, handler, publisher)
	}
}

func makePubSubPair(config Config) (worker.MessageSource, publish.Publisher) {
	ctx := context.Background()

	clientOptions := []option.ClientOption{}
	if config.CloudStorage.SecretKey != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(config.CloudStorage.SecretKey)))
	}

	client, err := pubsub.NewClient(ctx, config.PubSub.ProjectID, clientOptions...)
	ensureOk(err)

	source := worker.NewPubSubSource(client.Subscription(config.PubSub.SubscriptionID))
	publisher := publish.NewPubSubPublisher(client.Topic(config.PubSub.ResultsTopicID))

	return source, publisher
}

func makeRabbitMQPair(config Config) (worker.MessageSource, publish.Publisher) {
	conn, err := amqp091.Dial(config.RabbitMQ.URL)
	ensureOk(err)

	source, err := worker.NewRabbitMQSourceFromConnection(conn, config.RabbitMQ.QueueName)
	ensureOk(err)

	publisher, err := publish.NewRabbitMQPublisher(config.RabbitMQ.URL, config.RabbitMQ.ResultsQueueName)
	ensureOk(err)

	return source, publisher
}

func ensureOk(err error) {
	if err != nil {
		cerr.Log(err)
		panic(fmt.Sprintf("Unexpected error occurred during app initialization: %v", err))
	}
}
