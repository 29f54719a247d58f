package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"faceattend/internal/attendance"
	"faceattend/internal/auth"
	"faceattend/internal/cloudinary"
	"faceattend/internal/config"
	"faceattend/internal/face"
	"faceattend/internal/httpmiddleware"
	"faceattend/internal/location"
	"faceattend/internal/metrics"
	"faceattend/internal/queue"
	"faceattend/internal/schedule"
	"faceattend/internal/store"
	"faceattend/internal/student"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	migrator, err := store.NewMigrator(db.Client, "migrations")
	if err != nil {
		log.Fatalf("migrator init failed: %v", err)
	}
	if err := migrator.Up(); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid timezone %q: %v", cfg.Timezone, err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	var codes auth.CodeStore
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
		codes = auth.NewMemoryCodeStore()
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "faceattend:notifications")
		codes = auth.NewRedisCodeStore(redisClient.Client, "")
	}

	var extractor face.Extractor
	if cfg.FaceSkip {
		log.Println("FACE_SKIP set, using stub extractor")
		extractor = &face.StubExtractor{}
	} else {
		client := face.NewClient(cfg.FaceServiceURL)
		if err := client.Health(context.Background()); err != nil {
			log.Printf("warning: face service not available: %v", err)
		}
		extractor = client
	}

	// Photo storage is optional; enrollment works without it.
	var photos student.PhotoUploader
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		photos = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	matcher := face.NewMatcher(cfg.FaceTolerance)
	resolver := schedule.NewResolver(loc)

	studentRepo := student.NewRepository(db.Client)
	subjectRepo := schedule.NewRepository(db.Client)
	locationRepo := location.NewRepository(db.Client)
	attendanceRepo := attendance.NewRepository(db.Client)
	authRepo := auth.NewRepository(db.Client)

	if err := seedDefaultAdmin(authRepo); err != nil {
		log.Fatalf("seed default admin failed: %v", err)
	}

	studentSvc := student.NewService(studentRepo, extractor, photos, logger)
	attendanceSvc := attendance.NewService(studentRepo, subjectRepo, attendanceRepo, extractor, matcher, resolver, nil, m, logger)
	authSvc := auth.NewService(authRepo, codes, q, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.ResetCodeTTL, logger)

	authHandler := auth.NewHandler(authSvc, logger)
	studentHandler := student.NewHandler(studentSvc, logger, m)
	scheduleHandler := schedule.NewHandler(subjectRepo, resolver, nil, logger)
	locationHandler := location.NewHandler(locationRepo, logger)
	attendanceHandler := attendance.NewHandler(attendanceSvc, attendanceRepo, loc, nil, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	authHandler.RegisterRoutes(r)

	authed := r.Group("/v1", auth.Bearer(cfg.JWTSigningKey, cfg.JWTIssuer))
	attendanceHandler.RegisterRoutes(authed)
	scheduleHandler.RegisterRoutes(authed)

	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))
	studentHandler.RegisterRoutes(admin)
	scheduleHandler.RegisterAdminRoutes(admin)
	locationHandler.RegisterRoutes(admin)
	attendanceHandler.RegisterAdminRoutes(admin)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// seedDefaultAdmin mirrors the bootstrap admin the deployment docs assume.
// An existing admin row always wins.
func seedDefaultAdmin(repo *auth.Repository) error {
	username := os.Getenv("DEFAULT_ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("DEFAULT_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return repo.EnsureAdmin(context.Background(), username, string(hash))
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
