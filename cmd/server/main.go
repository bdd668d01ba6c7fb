package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ktanui/circulate/internal/config"
	"github.com/ktanui/circulate/internal/database"
	"github.com/ktanui/circulate/internal/handlers"
	"github.com/ktanui/circulate/internal/middleware"
	"github.com/ktanui/circulate/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	gin.SetMode(cfg.Server.Mode)

	db, err := database.New(cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redis, err := database.NewRedis(cfg)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redis.Close()

	store := database.NewStore(db.Pool)

	// Use RSA keys if available, otherwise generate fallback keys
	jwtPrivateKey := cfg.JWT.PrivateKey
	refreshPrivateKey := cfg.JWT.RefreshPrivateKey
	if jwtPrivateKey == "" {
		jwtPrivateKey = getDefaultRSAPrivateKey()
	}
	if refreshPrivateKey == "" {
		refreshPrivateKey = getDefaultRSAPrivateKey()
	}

	authService, err := services.NewAuthService(
		store,
		jwtPrivateKey,
		refreshPrivateKey,
		time.Duration(cfg.JWT.ExpiryHours)*time.Hour,
		7*24*time.Hour, // refresh token lifetime
		logger,
		redis.Client,
	)
	if err != nil {
		slog.Error("Failed to initialize auth service", "error", err)
		os.Exit(1)
	}

	settingsService := services.NewSettingsService(store, logger)
	notificationService := services.NewNotificationService(store, logger)
	lendingService := services.NewLendingService(store, store, settingsService, notificationService, logger)
	bookService := services.NewBookService(store, logger)
	userService := services.NewUserService(store, authService, logger)
	alertService := services.NewAlertService(store, logger)

	r := gin.New()

	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders())

	rateLimiter := middleware.NewRateLimiter(redis.Client)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	healthHandler := handlers.NewHealthHandler(db, redis)
	authHandler := handlers.NewAuthHandler(authService, userService)
	bookHandler := handlers.NewBookHandler(bookService)
	lendingHandler := handlers.NewLendingHandler(lendingService)
	userHandler := handlers.NewUserHandler(userService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	alertHandler := handlers.NewAlertHandler(alertService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)

	// Public routes
	public := r.Group("/api/v1")
	{
		public.GET("/ping", healthHandler.Ping)
		public.GET("/health", healthHandler.Health)

		auth := public.Group("/auth")
		auth.Use(rateLimiter.AuthLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/student/login", authHandler.StudentLogin)
			auth.POST("/admin/login", authHandler.AdminLogin)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.POST("/verify-email", authHandler.VerifyEmail)
		}
	}

	// Authenticated routes
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware.RequireAuth())
	protected.Use(rateLimiter.APILimit())
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/me", userHandler.Me)
		protected.PATCH("/me", userHandler.UpdateMe)

		protected.GET("/books", bookHandler.ListBooks)
		protected.GET("/books/:id", bookHandler.GetBook)
		protected.GET("/alerts", alertHandler.List)

		// Student lending surface
		student := protected.Group("/student")
		student.Use(authMiddleware.RequireStudent())
		{
			student.POST("/requests", rateLimiter.SubmitLimit(), lendingHandler.RequestIssue)
			student.POST("/requests/reissue", rateLimiter.SubmitLimit(), lendingHandler.RequestReissue)
			student.DELETE("/requests/:id", lendingHandler.CancelRequest)
			student.GET("/loans", lendingHandler.MyLoans)
			student.GET("/notifications", notificationHandler.List)
			student.POST("/notifications/read", notificationHandler.MarkAllRead)
		}

		// Admin surface
		admin := protected.Group("/admin")
		admin.Use(authMiddleware.RequireAdmin())
		{
			admin.POST("/books", bookHandler.AddBook)
			admin.PATCH("/books/:id", bookHandler.UpdateBook)
			admin.POST("/books/:id/restock", bookHandler.RestockBook)
			admin.DELETE("/books/:id", bookHandler.DeleteBook)
			admin.GET("/books/stats", bookHandler.Stats)

			admin.GET("/requests", lendingHandler.PendingRequests)
			admin.GET("/requests/:id", lendingHandler.GetRequest)
			admin.POST("/requests/:id/approve", lendingHandler.ApproveIssue)
			admin.POST("/requests/:id/reject", lendingHandler.Reject)
			admin.POST("/reissues/:id/approve", lendingHandler.ApproveReissue)
			admin.POST("/loans", lendingHandler.DirectIssue)
			admin.POST("/loans/:id/return", lendingHandler.Return)
			admin.GET("/loans/stats", lendingHandler.Stats)
			admin.GET("/loans/active", lendingHandler.ActiveLoans)
			admin.GET("/loans/overdue", lendingHandler.OverdueLoans)
			admin.GET("/loans/returned", lendingHandler.ReturnHistory)

			admin.POST("/students", userHandler.CreateStudent)
			admin.GET("/students", userHandler.ListStudents)
			admin.GET("/students/:id", userHandler.GetUser)
			admin.POST("/students/:id/status", userHandler.SetStatus)
			admin.DELETE("/students/:id", userHandler.DeleteUser)

			admin.POST("/alerts", alertHandler.Post)
			admin.DELETE("/alerts/:id", alertHandler.Delete)

			admin.GET("/settings", settingsHandler.Get)
			admin.PUT("/settings", settingsHandler.Update)
		}
	}

	// Root health check
	r.GET("/health", healthHandler.Health)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", port, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// getDefaultRSAPrivateKey generates a development-only RSA key. Production
// deployments must provide keys through configuration.
func getDefaultRSAPrivateKey() string {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		slog.Error("Failed to generate RSA key", "error", err)
		os.Exit(1)
	}

	privateKeyPEM := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}

	return string(pem.EncodeToMemory(privateKeyPEM))
}
