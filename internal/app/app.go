// Package app 根据配置组装各层依赖，供 HTTP 服务与控制台客户端共用。
package app

import (
	"context"
	"fmt"
	"io"
	"philo-chat-go/internal/config"
	"philo-chat-go/internal/pipeline"
	"philo-chat-go/internal/repository"
	"philo-chat-go/internal/service"
	"philo-chat-go/pkg/database"
	"philo-chat-go/pkg/es"
	"philo-chat-go/pkg/kafka"
	"philo-chat-go/pkg/llm"
	"philo-chat-go/pkg/log"
	"philo-chat-go/pkg/prompt"
	"philo-chat-go/pkg/storage"
	"philo-chat-go/pkg/tasks"
	"time"
)

// App 持有组装完成的服务及需要在退出时释放的资源。
type App struct {
	SessionService service.SessionService
	// SearchService 在未配置 Elasticsearch 时为 nil。
	SearchService service.SearchService

	cfg       config.Config
	processor *pipeline.Processor
	closers   []io.Closer
}

// New 按配置初始化存储、LLM 客户端与业务服务。配置为空的外部依赖使用进程内实现代替。
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{cfg: cfg}

	// 1. 加载哲学家目录与引导模板
	philosophers, err := repository.LoadPhilosophers(cfg.Catalog.PhilosophersPath)
	if err != nil {
		return nil, fmt.Errorf("加载哲学家目录失败: %w", err)
	}
	renderer, err := prompt.LoadRenderer(cfg.Prompt.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("加载引导模板失败: %w", err)
	}

	// 2. 初始化数据库和 Redis
	users := repository.NewMemoryUserRepository()
	if cfg.Database.MySQL.DSN != "" {
		db, err := database.InitMySQL(cfg.Database.MySQL.DSN)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB)
		}
		users = repository.NewUserRepository(db)
	} else {
		log.Info("未配置 MySQL，用户数据仅保存在内存中")
	}

	sessionTTL := time.Duration(cfg.JWT.SessionExpireHours) * time.Hour
	sessions := repository.NewMemorySessionRepository(sessionTTL)
	if cfg.Database.Redis.Addr != "" {
		rdb, err := database.InitRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb)
		sessions = repository.NewSessionRepository(rdb, sessionTTL)
	} else {
		log.Info("未配置 Redis，登录会话保存在进程内")
	}

	// 3. 初始化对象存储
	var store storage.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		store, err = storage.NewMinIOStore(ctx, cfg.MinIO)
	} else {
		store, err = storage.NewLocalStore(cfg.Storage.LocalDir)
	}
	if err != nil {
		return nil, err
	}

	// 4. 初始化 LLM 客户端
	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	if c, ok := llmClient.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	// 5. 初始化搜索索引与事件发布
	var esClient *es.Client
	if cfg.Elasticsearch.Addresses != "" {
		esClient, err = es.InitES(cfg.Elasticsearch)
		if err != nil {
			return nil, err
		}
		a.processor = pipeline.NewProcessor(esClient)
	}
	events, closer := publisherFor(cfg.Kafka, a.processor)
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	// 6. 初始化 Service (依赖注入)
	a.SessionService, err = service.NewSessionService(ctx, service.SessionDeps{
		Users:        users,
		Sessions:     sessions,
		Philosophers: philosophers,
		LLM:          llmClient,
		Generation:   llm.ParamsFromConfig(cfg.LLM.Generation),
		Prompt:       renderer,
		Store:        store,
		Events:       events,
	})
	if err != nil {
		return nil, err
	}
	if esClient != nil {
		a.SearchService = service.NewSearchService(esClient, a.SessionService)
	}
	return a, nil
}

// publisherFor 决定对话事件的去向。没有索引流水线时不发布事件，Kafka 配置会被忽略。
func publisherFor(kafkaCfg config.KafkaConfig, processor *pipeline.Processor) (service.EventPublisher, io.Closer) {
	if processor == nil {
		if kafkaCfg.Brokers != "" {
			log.Warnf("已配置 Kafka(%s) 但未配置 Elasticsearch，对话事件不会被消费，已停用事件发布", kafkaCfg.Brokers)
		}
		return nil, nil
	}
	if kafkaCfg.Brokers == "" {
		// 未配置 Kafka 时在进程内直接建立索引
		return inlinePublisher{processor: processor}, nil
	}
	producer := kafka.NewProducer(kafkaCfg)
	return producer, producer
}

// RunIndexer 在同时配置了 Kafka 与 Elasticsearch 时消费对话事件并建立索引，阻塞直到 ctx 被取消。
func (a *App) RunIndexer(ctx context.Context) {
	if a.processor == nil || a.cfg.Kafka.Brokers == "" {
		return
	}
	kafka.StartConsumer(ctx, a.cfg.Kafka, a.processor)
}

// Close 按初始化的逆序释放资源。
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Errorf("释放资源失败: %v", err)
		}
	}
}

// inlinePublisher 把对话事件同步交给索引流水线。
type inlinePublisher struct {
	processor *pipeline.Processor
}

func (p inlinePublisher) PublishIndexTask(ctx context.Context, task tasks.ChatIndexTask) error {
	return p.processor.Process(ctx, task)
}
