package app

import (
	"context"
	"philo-chat-go/internal/config"
	"philo-chat-go/internal/pipeline"
	"philo-chat-go/pkg/kafka"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherFor(t *testing.T) {
	kafkaCfg := config.KafkaConfig{Brokers: "localhost:9092", Topic: "chat-turns", GroupID: "indexer"}
	processor := pipeline.NewProcessor(nil)

	t.Run("kafka without search index publishes nothing", func(t *testing.T) {
		events, closer := publisherFor(kafkaCfg, nil)
		assert.Nil(t, events)
		assert.Nil(t, closer)
	})

	t.Run("no kafka and no search index", func(t *testing.T) {
		events, closer := publisherFor(config.KafkaConfig{}, nil)
		assert.Nil(t, events)
		assert.Nil(t, closer)
	})

	t.Run("search index without kafka indexes inline", func(t *testing.T) {
		events, closer := publisherFor(config.KafkaConfig{}, processor)
		assert.IsType(t, inlinePublisher{}, events)
		assert.Nil(t, closer)
	})

	t.Run("search index with kafka uses the producer", func(t *testing.T) {
		events, closer := publisherFor(kafkaCfg, processor)
		require.NotNil(t, closer)
		assert.IsType(t, &kafka.Producer{}, events)
		assert.NoError(t, closer.Close())
	})
}

func TestRunIndexerReturnsWithoutSearchIndex(t *testing.T) {
	a := &App{cfg: config.Config{Kafka: config.KafkaConfig{Brokers: "localhost:9092"}}}
	// 没有索引流水线时不启动消费者，立即返回
	a.RunIndexer(context.Background())
}
