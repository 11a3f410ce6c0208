package router

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/saylink/backend/internal/handlers"
	"github.com/anonto42/saylink/backend/internal/middleware"
	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/realtime"
	"github.com/anonto42/saylink/backend/internal/repositories"
	"github.com/anonto42/saylink/backend/internal/services"
	"github.com/anonto42/saylink/backend/internal/storage/memory"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Options carries everything SetupRoutes wires together. With Postgres and
// Mongo both nil the in-memory stores are used. With FirebaseAuth nil
// requests authenticate with JWTs signed by JWTSecret.
type Options struct {
	Postgres       *gorm.DB
	Mongo          *mongo.Database
	FirebaseAuth   *auth.Client
	Presence       realtime.Presence
	JWTSecret      string
	MetricsEnabled bool
	WSSendBuffer   int
	Logger         *slog.Logger
}

// Stores groups the repositories behind the engine
type Stores struct {
	Users         repositories.UserRepository
	Follows       repositories.FollowRepository
	Notifications repositories.NotificationRepository
	Posts         repositories.PostRepository
	Likes         repositories.LikeRepository
	Comments      repositories.CommentRepository
	SavedPosts    repositories.SavedPostRepository
	Stories       repositories.StoryRepository
	Conversations repositories.ConversationRepository
	Messages      repositories.MessageRepository
}

// NewDatabaseStores migrates PostgreSQL, indexes MongoDB and returns the
// repositories backed by them
func NewDatabaseStores(ctx context.Context, pgdb *gorm.DB, mdb *mongo.Database, logger *slog.Logger) (*Stores, error) {
	err := pgdb.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.FollowRequest{},
		&models.Notification{},
		&models.Like{},
		&models.Comment{},
		&models.SavedPost{},
	)
	if err != nil {
		return nil, fmt.Errorf("auto migrate models: %w", err)
	}
	logger.Info("PostgreSQL auto-migrations completed for all models")

	if err := repositories.EnsureIndexes(ctx, mdb); err != nil {
		return nil, err
	}
	logger.Info("MongoDB indexes ensured")

	return &Stores{
		Users:         repositories.NewPostgresUserRepository(pgdb),
		Follows:       repositories.NewPostgresFollowRepository(pgdb),
		Notifications: repositories.NewPostgresNotificationRepository(pgdb),
		Posts:         repositories.NewMongoPostRepository(mdb),
		Likes:         repositories.NewPostgresLikeRepository(pgdb),
		Comments:      repositories.NewPostgresCommentRepository(pgdb),
		SavedPosts:    repositories.NewPostgresSavedPostRepository(pgdb),
		Stories:       repositories.NewStoryRepository(mdb),
		Conversations: repositories.NewMongoConversationRepository(mdb),
		Messages:      repositories.NewMongoMessageRepository(mdb),
	}, nil
}

// NewMemoryStores returns process-local stores that vanish on exit
func NewMemoryStores() *Stores {
	return &Stores{
		Users:         memory.NewUserStore(),
		Follows:       memory.NewFollowStore(),
		Notifications: memory.NewNotificationStore(),
		Posts:         memory.NewPostStore(),
		Likes:         memory.NewLikeStore(),
		Comments:      memory.NewCommentStore(),
		SavedPosts:    memory.NewSavedPostStore(),
		Stories:       memory.NewStoryStore(),
		Conversations: memory.NewConversationStore(),
		Messages:      memory.NewMessageStore(),
	}
}

// SetupRoutes configures all application routes and injects dependencies.
// The returned hub owns every live connection.
func SetupRoutes(e *echo.Echo, stores *Stores, opts Options) *realtime.Hub {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)
	if opts.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	// --- Engine ---
	hub := realtime.NewHub(opts.Presence, logger.With("component", "realtime"))
	ledger := services.NewLedger(stores.Notifications, stores.Users, hub, logger)
	graph := services.NewGraphService(stores.Users, stores.Follows, ledger, logger)
	visibility := services.NewVisibilityService(stores.Users, graph, stores.Posts, stores.Likes, stores.SavedPosts, stores.Stories, hub, logger)
	conversations := services.NewConversationService(stores.Users, graph, stores.Conversations, stores.Messages, stores.Posts, stores.Stories, hub, logger)
	content := services.NewContentService(stores.Users, stores.Posts, stores.Likes, stores.SavedPosts, stores.Comments, stores.Stories, visibility, ledger, logger)
	accounts := services.NewAccountService(stores.Users, hub.Presence(), logger)

	// --- Protected routes ---
	var authMiddleware echo.MiddlewareFunc
	if opts.FirebaseAuth != nil {
		authMiddleware = middleware.FirebaseAuthMiddleware(opts.FirebaseAuth, accounts)
		logger.Info("Firebase authentication middleware selected")
	} else {
		authMiddleware = middleware.JWTAuthMiddleware(opts.JWTSecret)
		logger.Info("JWT authentication middleware selected")
	}

	realtimeHandler := handlers.NewRealtimeHandler(hub, conversations, opts.WSSendBuffer, logger)
	e.GET("/ws", realtimeHandler.ServeWS, authMiddleware)

	api := e.Group("/api/v1")
	api.Use(authMiddleware)

	handlers.NewUserHandler(accounts).RegisterProfileRoutes(api)
	handlers.NewFollowHandler(graph).RegisterFollowRoutes(api)
	handlers.NewFeedHandler(visibility).RegisterFeedRoutes(api)
	handlers.NewPostHandler(content).RegisterPostRoutes(api)
	handlers.NewLikeHandler(content).RegisterLikeRoutes(api)
	handlers.NewCommentHandler(content).RegisterCommentRoutes(api)
	handlers.NewSavedPostHandler(content).RegisterSavedPostRoutes(api)
	handlers.NewStoryHandler(content, visibility, conversations).RegisterStoryRoutes(api)
	handlers.NewConversationHandler(conversations).RegisterConversationRoutes(api)
	handlers.NewNotificationHandler(ledger).RegisterNotificationRoutes(api)

	logger.Info("All routes configured", "routes", len(e.Routes()))
	return hub
}
