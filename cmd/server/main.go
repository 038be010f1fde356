package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/minds-hub/backend/config"
	"github.com/minds-hub/backend/internal/activities"
	"github.com/minds-hub/backend/internal/analytics"
	"github.com/minds-hub/backend/internal/auth"
	"github.com/minds-hub/backend/internal/booking"
	"github.com/minds-hub/backend/internal/middleware"
	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/internal/notifications"
	"github.com/minds-hub/backend/internal/realtime"
	"github.com/minds-hub/backend/internal/registrations"
	"github.com/minds-hub/backend/pkg/database"
	"github.com/minds-hub/backend/pkg/queue"
	"github.com/minds-hub/backend/pkg/redis"
	"github.com/minds-hub/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns:        int32(cfg.Database.MaxConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, cfg.Server.StaffSignupCode, logger)

	// Notifications
	sender, err := notifications.NewSender(cfg.Notifications.Mock, notifications.TwilioConfig{
		AccountSID:     cfg.Twilio.AccountSID,
		AuthToken:      cfg.Twilio.AuthToken,
		SMSFrom:        cfg.Twilio.SMSFrom,
		WhatsAppFrom:   cfg.Twilio.WhatsAppFrom,
		DefaultCountry: cfg.Twilio.DefaultCountry,
	}, logger)
	if err != nil {
		logger.Fatal("notification sender", zap.Error(err))
	}
	var enqueuer notifications.Enqueuer
	if cfg.Notifications.Queue {
		enqueuer = queue.NewQueue(rdb.Client, logger)
	}
	activityRepo := activities.NewRepository(pool)
	notificationRepo := notifications.NewRepository(pool)
	dispatcher := notifications.NewDispatcher(notificationRepo, authRepo, activityRepo, enqueuer, sender, logger)
	notificationHandler := notifications.NewHandler(notificationRepo, dispatcher, logger)

	// Live capacity feed
	bookingOpts := []booking.Option{booking.WithDispatchTimeout(cfg.Notifications.DispatchTimeout)}
	var (
		hub          *realtime.Hub
		activityFeed activities.CapacityFeed
	)
	if cfg.Realtime.Enabled {
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, pubsub, pubsub)
		defer hub.Close()
		activityFeed = hub
		bookingOpts = append(bookingOpts, booking.WithCapacityFeed(hub))
	}

	// Activities, registrations and matches
	activityHandler := activities.NewHandler(activityRepo, authRepo, activityFeed, logger)
	bookingService := booking.NewService(registrations.NewStore(pool), dispatcher, logger, bookingOpts...)
	registrationHandler := registrations.NewHandler(bookingService, registrations.NewRepository(pool), authRepo, logger)

	analyticsHandler := analytics.NewHandler(analytics.NewRepository(pool), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", health(pool, rdb))
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	staff := middleware.RequireRole(models.RoleStaff)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/me", authHandler.Me)
		api.PATCH("/me", authHandler.UpdateProfile)
		api.GET("/me/registrations", registrationHandler.ListForUser)
		api.GET("/me/matches", registrationHandler.ListMatchesForUser)
		api.GET("/me/notifications", notificationHandler.List)

		api.GET("/users", staff, authHandler.List)
		api.PATCH("/users/:user_id/membership", staff, authHandler.UpdateMembership)
		api.GET("/users/:user_id/registrations", registrationHandler.ListForUser)
		api.GET("/users/:user_id/matches", registrationHandler.ListMatchesForUser)
		api.GET("/users/:user_id/notifications", notificationHandler.List)
		api.POST("/users/:user_id/notifications", staff, notificationHandler.Send)

		api.GET("/activities", activityHandler.List)
		api.GET("/activities/:id", activityHandler.GetByID)
		api.POST("/activities", staff, activityHandler.Create)
		api.PUT("/activities/:id", staff, activityHandler.Update)
		api.DELETE("/activities/:id", staff, activityHandler.Delete)
		api.GET("/activities/:id/registrations", staff, registrationHandler.ListForActivity)
		api.GET("/activities/:id/matches", staff, registrationHandler.ListMatchesForActivity)
		api.POST("/activities/:id/reminders", staff, notificationHandler.Remind)
		api.GET("/volunteer/activities", middleware.RequireRole(models.RoleVolunteer), activityHandler.Available)

		api.POST("/registrations", middleware.RequireRole(models.RoleParticipant, models.RoleStaff), registrationHandler.Create)
		api.POST("/registrations/:id/cancel", registrationHandler.Cancel)
		api.POST("/matches", middleware.RequireRole(models.RoleVolunteer, models.RoleStaff), registrationHandler.CreateMatch)
		api.POST("/matches/:id/cancel", registrationHandler.CancelMatch)

		api.POST("/notifications/bulk", staff, notificationHandler.SendBulk)

		api.GET("/analytics/summary", staff, analyticsHandler.Summary)
		api.GET("/analytics/attendance", staff, analyticsHandler.Attendance)
		api.GET("/analytics/trends", staff, analyticsHandler.Trends)
	}

	// WebSocket (token in query; no Authorization header required)
	if hub != nil {
		router.GET("/ws", realtime.ServeWs(hub, jwtService, logger))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// Let in-flight notifications finish before the pool closes.
		bookingService.Wait()
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("server", zap.Error(err))
	}
	logger.Info("server stopped")
}

func health(pool *pgxpool.Pool, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if err := rdb.Healthy(ctx); err != nil {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
