package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"civic-chat-be/internal/config"
	"civic-chat-be/internal/controller"
	"civic-chat-be/internal/pkg/logger"
	"civic-chat-be/internal/repository/implementation"
	"civic-chat-be/internal/repository/memory"
	"civic-chat-be/internal/service"
	"civic-chat-be/pkg/embedding"
	"civic-chat-be/pkg/embedding/jina"
	"civic-chat-be/pkg/llm/factory"
	"civic-chat-be/pkg/metadata"
	"civic-chat-be/pkg/retrieval/structured"
	"civic-chat-be/pkg/retrieval/unstructured"
	"civic-chat-be/pkg/router/classifier"
	"civic-chat-be/pkg/router/gateway"
	"civic-chat-be/pkg/router/judge"
	"civic-chat-be/pkg/router/pipeline"
	"civic-chat-be/pkg/sqlexec"

	pktNats "civic-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController   controller.IChatController
	LogController    controller.ILogController
	EventsController controller.IEventsController
	HealthController controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Infrastructure handles main.go needs for shutdown
	NatsPublisher *pktNats.Publisher
	SysLogger     *logger.ZapLogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// Initialize Embedding Provider based on Config
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = jina.NewJinaProvider(cfg.Keys.Jina)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	// Initialize LLM Provider based on Config
	llmKey := cfg.Keys.GoogleGemini
	if cfg.Ai.LLMProvider == "huggingface" {
		llmKey = cfg.Keys.HuggingFace
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		llmBaseURL(cfg),
		llmKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// 3. Router Core
	routerLogger := initRouterLogger()

	temps := gateway.Temperatures{
		PlanReuse:    cfg.Router.TempPlanReuse,
		ClassifyMode: cfg.Router.TempClassifyMode,
		DraftSQL:     cfg.Router.TempDraftSQL,
		DraftAnswer:  cfg.Router.TempDraftAnswer,
		Merge:        cfg.Router.TempMerge,
	}
	gw := gateway.NewLLMGateway(llmProvider, temps, routerLogger)

	catalog := metadata.NewCatalogProvider(db, rdb, time.Duration(cfg.Router.SchemaCacheMinutes)*time.Minute)
	executor := sqlexec.NewExecutor(db)
	docEmbeddingRepo := implementation.NewDocumentEmbeddingRepository(db)

	structuredRetriever := structured.NewRetriever(gw, catalog, executor, cfg.Router.RowLimit, routerLogger)
	unstructuredRetriever := unstructured.NewRetriever(
		gw,
		embeddingProvider,
		docEmbeddingRepo,
		cfg.Router.KDefault,
		cfg.Router.KMax,
		cfg.Router.MaxDistance,
		routerLogger,
	)

	sessionCache := memory.NewSessionCache(
		time.Duration(cfg.Router.IdleTTLMinutes)*time.Minute,
		cfg.Router.MaxSessions,
	)
	reuseJudge := judge.NewJudge(gw, routerLogger)
	modeClassifier := classifier.NewClassifier(gw, routerLogger)

	turnPipeline := pipeline.NewPipeline(
		gw,
		reuseJudge,
		modeClassifier,
		structuredRetriever,
		unstructuredRetriever,
		sessionCache,
		catalog,
		pipeline.Options{
			TurnDeadline:  time.Duration(cfg.Router.TurnDeadlineSeconds) * time.Second,
			HistoryWindow: cfg.Router.HistoryWindow,
		},
		routerLogger,
	)

	// 4. Services
	interactionLogRepo := implementation.NewInteractionLogRepository(db)
	weeklyEventRepo := implementation.NewWeeklyEventRepository(db)

	publisherService := service.NewPublisherService(cfg.Keys.InteractionLogTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.InteractionLogTopic,
		interactionLogRepo,
		natsPub,
	)

	chatService := service.NewChatService(turnPipeline, publisherService, cfg.App.ApiVersion, routerLogger)
	logService := service.NewLogService(interactionLogRepo, natsPub, cfg.App.ApiVersion)
	eventsService := service.NewEventsService(weeklyEventRepo)
	healthService := service.NewHealthService(db, cfg.App.ApiVersion)

	// 5. Controllers
	return &Container{
		ChatController:   controller.NewChatController(chatService),
		LogController:    controller.NewLogController(logService),
		EventsController: controller.NewEventsController(eventsService),
		HealthController: controller.NewHealthController(healthService),

		ConsumerService: consumerService,
		NatsPublisher:   natsPub,
		SysLogger:       sysLogger,
	}
}

func llmBaseURL(cfg *config.Config) string {
	if cfg.Ai.LLMBaseURL != "" {
		return cfg.Ai.LLMBaseURL
	}
	return cfg.Ai.OllamaBaseURL
}

// initRouterLogger writes router traces to a dedicated file so chat
// debugging does not drown the main log.
func initRouterLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_router.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[ROUTER] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
