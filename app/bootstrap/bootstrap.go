package bootstrap

import (
	"log"
	"time"

	"github.com/aihub/chat-go/app/controllers"
	"github.com/aihub/chat-go/internal/auth"
	"github.com/aihub/chat-go/internal/config"
	"github.com/aihub/chat-go/internal/database"
	"github.com/aihub/chat-go/internal/gateway"
	"github.com/aihub/chat-go/internal/kafka"
	"github.com/aihub/chat-go/internal/logger"
	"github.com/aihub/chat-go/internal/prefs"
	"github.com/aihub/chat-go/internal/repository"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error
}

// Init bootstraps configuration, logger, database connections and other shared
// infrastructure components required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}

	app := &App{}
	cfg := config.AppConfig

	// Initialize database.
	db, err := database.InitDB()
	if err != nil {
		return nil, err
	}
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		return database.CloseDB()
	})

	// Initialize Redis (optional). Failure shouldn't block the app.
	if _, err := database.InitRedis(); err != nil {
		logger.Warn("Failed to initialize Redis, preferences fall back to in-memory storage", zap.Error(err))
	} else {
		app.cleanupTasks = append(app.cleanupTasks, func() error {
			return database.CloseRedis()
		})
	}

	// Initialize Kafka (optional). Failure shouldn't block the app.
	if cfg.Kafka.Enabled {
		if err := kafka.InitProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			logger.Warn("Failed to initialize Kafka producer", zap.Error(err))
		} else {
			app.cleanupTasks = append(app.cleanupTasks, func() error {
				producer := kafka.GetProducer()
				if producer != nil {
					return producer.Close()
				}
				return nil
			})
		}
	}

	// 凭证校验服务
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, 24*time.Hour)
	controllers.InitAuth(jwtService)

	// 对话仓库
	controllers.InitConversations(repository.NewConversationRepository(db))

	// 用户偏好（redis不可用时退化为进程内存储）
	controllers.InitPreferences(prefs.NewService(database.RedisClient))

	// 上游补全客户端与协商器
	upstream := gateway.NewUpstreamClient(&cfg.AI)
	if !upstream.Ready() {
		logger.Warn("Upstream API key not configured, completion requests will be rejected")
	}
	controllers.InitChatGateway(upstream, gateway.NewNegotiator(upstream))

	return app, nil
}

// Shutdown flushes/logs and closes resources gracefully.
func (a *App) Shutdown() {
	// Execute cleanup tasks in reverse order (best effort).
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}

	// Flush logger buffers.
	logger.Sync()
}
