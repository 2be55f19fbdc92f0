// Package kafka provides the Kafka-backed event channel used in
// production deployments.
package kafka

import (
	"errors"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

// CreateChannel builds a Kafka publisher and subscriber pair. Brokers come
// from the KAFKA_BROKERS environment variable; the service name becomes the
// sarama client id and the base of the consumer group, so multiple botflow
// services can share a cluster without stealing each other's offsets.
func CreateChannel(logger watermill.LoggerAdapter, serviceName string) (*kafka.Publisher, *kafka.Subscriber, error) {
	brokers := brokerList(os.Getenv("KAFKA_BROKERS"))
	if len(brokers) == 0 {
		return nil, nil, errors.New("KAFKA_BROKERS environment variable is not set or empty")
	}

	subscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	subscriberConfig.ClientID = serviceName
	subscriberConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: subscriberConfig,
			ConsumerGroup:         serviceName + "-events",
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	publisherConfig := sarama.NewConfig()
	publisherConfig.ClientID = serviceName
	publisherConfig.Producer.Return.Successes = true

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: publisherConfig,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	return publisher, subscriber, nil
}

// brokerList splits the comma-separated broker string, dropping empty and
// whitespace-only entries.
func brokerList(raw string) []string {
	var brokers []string

	for _, broker := range strings.Split(raw, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}
