package di

import (
	"context"

	"phone-sim-demo/backend/chat"
	contactrepo "phone-sim-demo/backend/contact/repository"
	contactservice "phone-sim-demo/backend/contact/service"
	conversationrepo "phone-sim-demo/backend/conversation/repository"
	conversationservice "phone-sim-demo/backend/conversation/service"
	"phone-sim-demo/backend/conversation/store"
	lorerepo "phone-sim-demo/backend/lore/repository"
	loreservice "phone-sim-demo/backend/lore/service"
	"phone-sim-demo/backend/pkg/config"
	"phone-sim-demo/backend/pkg/jwt"
	"phone-sim-demo/backend/pkg/logger"
	"phone-sim-demo/backend/pkg/secrets"
	"phone-sim-demo/backend/shared/observability"
	sharedredis "phone-sim-demo/backend/shared/redis"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB            *gorm.DB
	Logger        *logger.Logger
	Config        *config.Config
	Redis         *sharedredis.Client
	JWTService    *jwt.Service
	Store         *store.Store
	Contacts      *contactservice.ContactService
	Lore          *loreservice.LoreService
	Conversations *conversationservice.ConversationService
	Pipeline      *chat.Service
	Metrics       *observability.PipelineMetrics
}

// New creates a new dependency injection container
func New(db *gorm.DB) (*Container, error) {
	cfg := config.Get()

	log := logger.New(logger.Config{
		Level: cfg.Logging.Level,
		JSON:  cfg.Logging.Format == "json",
	})
	logger.SetGlobal(log)

	if err := secrets.Init(log); err != nil {
		log.Warn("secrets manager unavailable, using environment only", "error", err)
	}

	var jwtService *jwt.Service
	if cfg.JWT.Enabled {
		jwtService = jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)
	}

	st := store.NewStore()
	contacts := contactservice.NewContactService(contactrepo.NewGormContactRepository(db))
	lore := loreservice.NewLoreService(
		lorerepo.NewGormLoreRepository(db),
		lorerepo.NewGormForbiddenWordRepository(db),
	)
	conversations := conversationservice.NewConversationService(
		st,
		conversationrepo.NewGormMessageRepository(db),
		log.WithComponent("conversation"),
	)

	var redisClient *sharedredis.Client
	var moods chat.MoodStore
	if cfg.Redis.Enabled {
		redisClient = sharedredis.NewClient()
		moods = chat.NewRedisMoodStore(redisClient)
	} else {
		moods = chat.NewCacheMoodStore()
	}

	apiKey := cfg.Chat.GatewayAPIKey
	if cfg.Chat.GatewayKeyPath != "" {
		apiKey = secrets.GetSecretWithDefault(context.Background(), cfg.Chat.GatewayKeyPath, apiKey)
	}
	gateway := chat.NewGatewayClient(chat.GatewayOptions{
		BaseURL: cfg.Chat.GatewayBaseURL,
		APIKey:  apiKey,
		Model:   cfg.Chat.GatewayModel,
		Timeout: cfg.Chat.GatewayTimeout,
	})

	metrics := observability.NewPipelineMetrics()

	pipeline := chat.NewService(chat.ServiceOptions{
		Store:     st,
		Contacts:  contacts,
		Lore:      lore,
		Composer:  chat.NewComposer(cfg.Chat.HistoryWindow, cfg.Chat.MinFragments),
		Generator: gateway,
		Segmenter: chat.NewSegmenter(cfg.Chat.MinFragments),
		Scheduler: chat.NewScheduler(cfg.Chat.ReplyDelayBase, cfg.Chat.ReplyDelayRand),
		Claims:    chat.NewClaimScheduler(st, cfg.Chat.ClaimDelayBase, cfg.Chat.ClaimDelayRand),
		Moods:     moods,
		Metrics:   metrics,
	})

	return &Container{
		DB:            db,
		Logger:        log,
		Config:        cfg,
		Redis:         redisClient,
		JWTService:    jwtService,
		Store:         st,
		Contacts:      contacts,
		Lore:          lore,
		Conversations: conversations,
		Pipeline:      pipeline,
		Metrics:       metrics,
	}, nil
}

// Shutdown stops background work owned by the container.
func (c *Container) Shutdown() {
	c.Pipeline.Shutdown()
	c.Conversations.StopPersistence()
}
