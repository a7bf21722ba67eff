package dev

// RabbitMQ
const (
	RabbitMQHost             = "amqp://localhost:5672"
	RabbitMQQueueName        = "stem-separate-dev"
	RabbitMQResultsQueueName = "stem-results-dev"
)

// Pub/Sub (emulator)
const (
	PubSubProjectID      = "stem-worker-dev"
	PubSubSubscriptionID = "stem-separate-worker-dev"
	PubSubResultsTopicID = "stem-results-dev"
)

const (
	OutputDir      = "./outputs"
	WorkingDirPath = "./wd/separate"
	Port           = ":8000"
)
