package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/yourusername/lms-api/internal/config"
	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/handler"
	"github.com/yourusername/lms-api/internal/middleware"
	"github.com/yourusername/lms-api/internal/pubsub"
	minioRepo "github.com/yourusername/lms-api/internal/repository/minio"
	pgRepo "github.com/yourusername/lms-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/lms-api/internal/repository/redis"
	"github.com/yourusername/lms-api/internal/service"
	"github.com/yourusername/lms-api/pkg/auth"
	"github.com/yourusername/lms-api/pkg/auth/manager"
	"github.com/yourusername/lms-api/pkg/database"
)

const cleanupInterval = time.Hour

func main() {
	// Environment from .env, when present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to read .env: %v", err)
	}

	// Configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Loading configuration from %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}
	isProduction := gin.Mode() == gin.ReleaseMode

	// PostgreSQL and schema
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), !isProduction)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Redis: cache, idle tracking, rate limits and pub/sub
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Root context for background goroutines, cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repositories
	userRepo := pgRepo.NewUserRepo(db)
	educatorRepo := pgRepo.NewEducatorRepo(db)
	studentRepo := pgRepo.NewStudentRepo(db)
	moduleRepo := pgRepo.NewModuleRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	exerciseRepo := pgRepo.NewVoiceExerciseRepo(db)
	testRepo := pgRepo.NewComprehensionTestRepo(db)
	historyRepo := pgRepo.NewHistoryRepo(db)
	auditRepo := pgRepo.NewAuditLogRepo(db)
	otpRepo := pgRepo.NewOTPRepo(db)
	invalidTokenRepo := pgRepo.NewInvalidTokenRepo(db)

	refreshTokenRepo, err := pgRepo.NewRefreshTokenRepo(db)
	if err != nil {
		log.Printf("Failed to initialize RefreshTokenRepo: %v", err)
		os.Exit(1)
	}

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Object storage is optional
	var mediaRepo *minioRepo.MediaRepo
	if cfg.Storage.Endpoint != "" {
		mediaRepo, err = minioRepo.NewMediaRepo(ctx, minioRepo.Config{
			Endpoint:      cfg.Storage.Endpoint,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			Bucket:        cfg.Storage.Bucket,
			UseSSL:        cfg.Storage.UseSSL,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			log.Printf("Failed to initialize media storage: %v", err)
			os.Exit(1)
		}
	} else {
		log.Println("Storage endpoint not configured, uploads are disabled")
	}

	// Tokens
	jwtService, err := auth.NewJWTService(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenMinutes)*time.Minute,
		time.Duration(cfg.JWT.ResetTokenMinutes)*time.Minute,
		invalidTokenRepo,
		cfg.JWT.CleanupInterval,
		ctx,
	)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Token invalidations are shared between instances over Redis
	var invalidationPubSub pubsub.Provider = pubsub.NoOp{}
	if redisPubSub, err := pubsub.NewRedis(redisClient); err != nil {
		log.Printf("Redis pub/sub unavailable, invalidations stay local: %v", err)
	} else {
		invalidationPubSub = redisPubSub
	}
	if err := jwtService.SyncInvalidations(invalidationPubSub); err != nil {
		log.Printf("Failed to subscribe to token invalidation events: %v", err)
	}

	tokenManager, err := manager.NewTokenManager(jwtService, refreshTokenRepo, userRepo)
	if err != nil {
		log.Printf("Failed to initialize TokenManager: %v", err)
		os.Exit(1)
	}
	tokenManager.SetRefreshTokenExpiry(time.Duration(cfg.Auth.RefreshTokenLifetime) * time.Hour)
	tokenManager.SetMaxRefreshTokensPerUser(cfg.Auth.SessionLimit)
	tokenManager.SetSecureCookies(cfg.Auth.SecureCookies)

	// Services
	auditService := service.NewAuditService(auditRepo)
	sessionService := service.NewSessionService(cacheRepo, tokenManager, cfg.Auth.IdleTimeout,
		time.Duration(cfg.Auth.RefreshTokenLifetime)*time.Hour)

	authService, err := service.NewAuthService(userRepo, jwtService, tokenManager, sessionService, auditService)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}

	// Email delivery
	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.Email.Enabled {
		resendService, err := service.NewResendEmailService(cfg.Email.APIKey, cfg.Email.From, cfg.Email.AppName, cfg.Auth.OTPTTL)
		if err != nil {
			log.Printf("Failed to initialize email service: %v", err)
			os.Exit(1)
		}
		emailService = resendService
	} else {
		log.Println("Email disabled, password reset codes will not be delivered")
	}

	otpService, err := service.NewOTPService(userRepo, otpRepo, emailService, jwtService,
		cfg.Auth.OTPTTL, cfg.Auth.OTPResendCooldown, cfg.Auth.OTPMaxAttempts, cfg.Auth.OTPPepper)
	if err != nil {
		log.Printf("Failed to initialize OTPService: %v", err)
		os.Exit(1)
	}
	authService.SetResetCodePurger(otpService)

	userService := service.NewUserService(userRepo, educatorRepo, studentRepo, tokenManager, auditService)
	moduleService := service.NewModuleService(moduleRepo, questionRepo, educatorRepo, cacheRepo, auditService)
	voiceService := service.NewVoiceService(exerciseRepo, testRepo, educatorRepo, auditService)
	attemptService := service.NewAttemptService(moduleRepo, exerciseRepo, studentRepo, historyRepo, auditService)
	historyService := service.NewHistoryService(studentRepo, historyRepo)
	dashboardService := service.NewDashboardService(userRepo, educatorRepo, studentRepo, moduleRepo, exerciseRepo, historyRepo, auditService)

	// Uploads and media cleanup only with storage configured
	var mediaService *service.MediaService
	if mediaRepo != nil {
		mediaService = service.NewMediaService(mediaRepo, cfg.Storage.MaxUploadMB<<20, auditService)
		moduleService.SetMediaCleaner(mediaService)
	}

	// Background cleanup of expired tokens and codes
	go runCleanup(ctx, tokenManager, otpService, cfg.Auth.OTPTTL)

	// Handlers and middleware
	authHandler := handler.NewAuthHandler(authService, otpService, tokenManager)
	userHandler := handler.NewUserHandler(userService)
	moduleHandler := handler.NewModuleHandler(moduleService, mediaService)
	voiceHandler := handler.NewVoiceHandler(voiceService)
	attemptHandler := handler.NewAttemptHandler(attemptService, historyService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Health checks
	healthChecks := []handler.HealthCheck{
		{Name: "postgres", Check: func() error { return database.Ping(db) }},
		{Name: "redis", Check: cacheRepo.Ping},
	}
	if mediaRepo != nil {
		healthChecks = append(healthChecks, handler.HealthCheck{Name: "storage", Check: func() error {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer pingCancel()
			return mediaRepo.Ping(pingCtx)
		}})
	}
	healthHandler := handler.NewHealthHandler(healthChecks...)

	authMiddleware := middleware.NewAuthMiddleware(jwtService, tokenManager, sessionService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Router
	router := gin.Default()

	// c.ClientIP() only honours X-Forwarded-For from these proxies
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Printf("Warning: failed to set trusted proxies: %v", err)
	}

	allowedOrigins := cfg.CORS.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", manager.CSRFHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler.Healthz)

	api := router.Group("/api")
	{
		// Public auth endpoints, rate limited
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", rateLimiter.LimitByIP(middleware.StrictAuthRateLimitConfig()), authHandler.Login)
			authGroup.POST("/refresh", rateLimiter.Limit(middleware.DefaultAuthRateLimitConfig()), authHandler.Refresh)
			authGroup.POST("/send-otp", rateLimiter.LimitByIP(middleware.OTPRateLimitConfig()), authHandler.SendOTP)
			authGroup.POST("/verify-otp", rateLimiter.LimitByIP(middleware.OTPRateLimitConfig()), authHandler.VerifyOTP)
			authGroup.POST("/reset-password", rateLimiter.Limit(middleware.StrictAuthRateLimitConfig()), authHandler.ResetPassword)

			authedAuth := authGroup.Group("")
			authedAuth.Use(authMiddleware.RequireAuth(), authMiddleware.RequireCSRF())
			{
				authedAuth.POST("/logout", authHandler.Logout)
				authedAuth.GET("/me", authMiddleware.EnforceIdleTimeout(), authHandler.Me)
				authedAuth.POST("/change-password", authMiddleware.EnforceIdleTimeout(), authHandler.ChangePassword)
			}
		}

		// Everything below needs a live, non-idle session
		authed := api.Group("")
		authed.Use(authMiddleware.RequireAuth(), authMiddleware.EnforceIdleTimeout(), authMiddleware.RequireCSRF())

		// Admin only
		admin := authed.Group("")
		admin.Use(authMiddleware.RequireRole(entity.RoleAdmin))
		{
			admin.POST("/create-user", userHandler.CreateUser)
			admin.GET("/fetchusers", userHandler.ListUsers)
			admin.GET("/users/:id", middleware.ExtractUintParam("id", "userID"), userHandler.GetUser)
			admin.PUT("/edit-user", userHandler.UpdateUser)
			admin.DELETE("/delete-user", userHandler.DeleteUser)

			admin.GET("/dashboard/admin", dashboardHandler.Admin)
			admin.GET("/fetch-audit-logs", auditHandler.ListLogs)
			admin.GET("/export-audit-logs", auditHandler.ExportLogs)
		}

		// Admins and educators manage content
		staff := authed.Group("")
		staff.Use(authMiddleware.RequireRole(entity.RoleAdmin, entity.RoleEducator))
		{
			staff.GET("/fetcheducators", userHandler.ListEducators)
			staff.GET("/fetchstudents", userHandler.ListStudents)

			staff.POST("/create-module", moduleHandler.CreateModule)
			staff.PUT("/edit-module", moduleHandler.UpdateModule)
			staff.DELETE("/delete-module", moduleHandler.DeleteModule)
			staff.POST("/create-question", moduleHandler.CreateQuestion)
			staff.PUT("/edit-question", moduleHandler.UpdateQuestion)
			staff.DELETE("/delete-question", moduleHandler.DeleteQuestion)
			if mediaService != nil {
				staff.POST("/upload", moduleHandler.Upload)
			}

			staff.POST("/create-voice-exercise", voiceHandler.CreateExercise)
			staff.PUT("/edit-voice-exercise", voiceHandler.UpdateExercise)
			staff.DELETE("/delete-voice-exercise", voiceHandler.DeleteExercise)
			staff.POST("/create-comprehension-test", voiceHandler.CreateTest)
			staff.PUT("/edit-comprehension-test", voiceHandler.UpdateTest)
			staff.DELETE("/delete-comprehension-test", voiceHandler.DeleteTest)
		}

		educator := authed.Group("")
		educator.Use(authMiddleware.RequireRole(entity.RoleEducator))
		{
			educator.GET("/dashboard/educator", dashboardHandler.Educator)
		}

		student := authed.Group("")
		student.Use(authMiddleware.RequireRole(entity.RoleStudent))
		{
			student.POST("/submit-quiz", attemptHandler.SubmitQuiz)
			student.POST("/submit-voice-exercise", attemptHandler.SubmitVoice)
			student.POST("/submit-comprehension", attemptHandler.SubmitComprehension)
			student.GET("/dashboard/student", dashboardHandler.Student)
		}

		// Readable by every role; answers and foreign histories are filtered per role
		authed.GET("/fetchmodules", moduleHandler.ListModules)
		authed.GET("/modules/:id", middleware.ExtractUintParam("id", "moduleID"), moduleHandler.GetModule)
		authed.GET("/fetchquestions", moduleHandler.ListQuestions)
		authed.GET("/fetch-voice-exercises", voiceHandler.ListExercises)
		authed.GET("/voice-exercises/:id", middleware.ExtractUintParam("id", "voiceExerciseID"), voiceHandler.GetExercise)
		authed.GET("/fetch-comprehension-tests", voiceHandler.ListTests)
		authed.GET("/get-quiz-history", attemptHandler.QuizHistory)
		authed.GET("/get-voice-history", attemptHandler.VoiceHistory)
		authed.GET("/get-comprehension-history", attemptHandler.ComprehensionHistory)
		authed.GET("/export-quiz-history", attemptHandler.ExportQuizHistory)
	}

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for an interrupt, then shut down gracefully
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop background goroutines first
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}
	// Release connections
	if err := invalidationPubSub.Close(); err != nil {
		log.Printf("Error closing pub/sub: %v", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("Server exited properly")
}

// runCleanup purges expired refresh tokens and spent one-time codes until ctx is done.
func runCleanup(ctx context.Context, tokenManager *manager.TokenManager, otpService *service.OTPService, otpTTL time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	log.Printf("Starting periodic cleanup of refresh tokens and reset codes (every %v)", cleanupInterval)
	for {
		select {
		case <-ticker.C:
			if err := tokenManager.CleanupExpiredTokens(ctx); err != nil {
				log.Printf("Error cleaning up refresh tokens: %v", err)
			}
			// codes stay for a day past expiry
			removed, err := otpService.Cleanup(time.Now().Add(-otpTTL - 24*time.Hour))
			if err != nil {
				log.Printf("Error cleaning up reset codes: %v", err)
			} else if removed > 0 {
				log.Printf("Removed %d expired reset codes", removed)
			}
		case <-ctx.Done():
			log.Println("Stopping cleanup goroutine")
			return
		}
	}
}
