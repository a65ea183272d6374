package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialhub_backend/internal/config"
	"socialhub_backend/internal/controller"
	"socialhub_backend/internal/repository"
	"socialhub_backend/internal/service"
	"socialhub_backend/pkg/configwatcher"
	"socialhub_backend/pkg/database"
	"socialhub_backend/pkg/logger"
	"socialhub_backend/pkg/monitoring"
	"socialhub_backend/pkg/security"
	"socialhub_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	rateLimiter     *security.IPRateLimiter
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	relationship *repository.RelationshipRepository
	conversation *repository.ConversationRepository
	message      *repository.MessageRepository
	notification *repository.NotificationRepository
	community    *repository.CommunityRepository
}

type services struct {
	storage      *service.StorageService
	hub          *service.RealtimeHub
	notification *service.NotificationService
	relationship *service.RelationshipService
	conversation *service.ConversationService
	message      *service.MessageService
	unread       *service.UnreadService
	user         *service.UserService
	community    *service.CommunityService
}

type controllers struct {
	relationship *controller.RelationshipController
	chat         *controller.ChatController
	notification *controller.NotificationController
	user         *controller.UserController
	community    *controller.CommunityController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		relationship: repository.NewRelationshipRepository(db, rdb),
		conversation: repository.NewConversationRepository(db, rdb),
		message:      repository.NewMessageRepository(db, rdb),
		notification: repository.NewNotificationRepository(db),
		community:    repository.NewCommunityRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)

	s.hub = service.NewRealtimeHub(rdb, repos.conversation, repos.relationship)
	go s.hub.Run()

	s.notification = service.NewNotificationService(repos.notification, repos.relationship, s.hub)
	s.relationship = service.NewRelationshipService(repos.relationship, repos.user, s.notification)
	s.conversation = service.NewConversationService(db, repos.conversation, repos.message, repos.relationship, repos.user, s.hub)
	s.message = service.NewMessageService(db, repos.message, repos.conversation, s.storage, s.hub, s.notification)
	s.unread = service.NewUnreadService(repos.conversation, repos.message)
	s.user = service.NewUserService(repos.user, repos.relationship, s.storage)
	s.community = service.NewCommunityService(repos.community, repos.user, s.storage, s.notification)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		relationship: controller.NewRelationshipController(s.relationship),
		chat:         controller.NewChatController(s.conversation, s.message, s.unread, s.hub),
		notification: controller.NewNotificationController(s.notification),
		user:         controller.NewUserController(s.user, s.relationship),
		community:    controller.NewCommunityController(s.community),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	// AuthMiddleware 从上下文取配置解析令牌
	router.Use(func(c *gin.Context) {
		c.Set("config", cfg)
		c.Next()
	})

	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.rateLimiter = security.NewIPRateLimiter(
		cfg.RateLimit.MaxRequests,
		time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute,
	)
	router.Use(a.rateLimiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Log.Info("Database migrations completed")
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb)
	svcs := app.initServices(repos, cfg, db, rdb)
	app.services = svcs
	ctrls := app.initControllers(svcs, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("socialhub", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, ctrls, svcs, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	// 配置热更新：回调里只调参，不重建连接
	app.RegisterConfigCallback(func(c *config.Config) {
		logger.SetMode(c.Server.Mode)
		app.rateLimiter.Update(
			c.RateLimit.MaxRequests,
			time.Duration(c.RateLimit.WindowMinutes)*time.Minute,
		)
	})

	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(newCfg interface{}) {
		c, ok := newCfg.(*config.Config)
		if !ok {
			return
		}
		app.Config = c
		for _, cb := range app.configCallbacks {
			cb(c)
		}
		logger.Log.Info("Config reloaded")
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 清理 WebSocket连接和Redis在线状态
	if a.services != nil && a.services.hub != nil {
		a.services.hub.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
