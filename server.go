package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/tomaszgubala/car-dealer/config"
	"github.com/tomaszgubala/car-dealer/connectors"
	"github.com/tomaszgubala/car-dealer/mailer"
	"github.com/tomaszgubala/car-dealer/middlewares"
	"github.com/tomaszgubala/car-dealer/models"
	"github.com/tomaszgubala/car-dealer/utils"
)

const defaultPort = "8080"

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		gin.SetMode(gin.ReleaseMode)
	}

	importer := connectors.NewImporter()
	scheduler := connectors.NewScheduler(importer)
	mail := mailer.NewMailer()

	r := buildRouter(importer, scheduler, mail)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// The listener is up before the database is; Cloud Run health checks
	// pass while the retry loops below do their work.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	if config.BoolFromEnv("IMPORT_SCHEDULER_ENABLED", true) {
		go scheduler.Run(sigCtx)
	}

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

func buildRouter(importer *connectors.Importer, scheduler *connectors.Scheduler, mail *mailer.Mailer) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationIdMiddleware())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.Use(cors.New(corsConfig()))
	r.Use(middlewares.RequestLogMiddleware())
	r.Use(gin.Recovery())
	r.Use(middlewares.AuthMiddleware())

	// Public catalog and lead capture.
	r.GET("/api/vehicles", listVehiclesHandler())
	r.GET("/api/vehicles/:slug", vehicleDetailHandler())
	r.GET("/api/filters", filterOptionsHandler())
	r.POST("/api/leads", createLeadHandler(mail))
	r.POST("/api/stats/event", recordEventHandler())

	// Infrastructure-triggered import.
	r.GET("/api/import/cron", connectors.CronHandler(scheduler))

	// Staff endpoints. Editors manage inventory; user management and
	// import control stay admin-only via RequireRole defaults.
	r.POST("/api/auth/login", loginHandler())

	staff := r.Group("/api/admin", middlewares.RequireRole(models.UserRoleEditor))
	{
		staff.GET("/vehicles", adminListVehiclesHandler())
		staff.GET("/vehicles/:id", adminVehicleHandler())
		staff.POST("/vehicles", createVehicleHandler())
		staff.PUT("/vehicles/:id", updateVehicleHandler())
		staff.DELETE("/vehicles/:id", deactivateVehicleHandler())
		staff.POST("/uploads/image", uploadImageHandler())
		staff.GET("/leads", listLeadsHandler())
		staff.GET("/stats", dashboardStatsHandler())
		staff.GET("/stats/export", exportStatsHandler())
	}

	admin := r.Group("/api/admin", middlewares.RequireRole())
	{
		admin.POST("/import/run", connectors.RunImportHandler(importer))
		admin.GET("/import/jobs", connectors.JobHistoryHandler())
		admin.GET("/users", listUsersHandler())
		admin.POST("/users", createUserHandler())
		admin.PUT("/users/:id", updateUserHandler())
		admin.DELETE("/users/:id", deleteUserHandler())
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

func corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		corsConfig.AllowOrigins = utils.SplitAndTrim(allowedOrigins)
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length", "X-Correlation-Id")
	corsConfig.AllowCredentials = true
	return corsConfig
}
