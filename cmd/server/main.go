package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brigadeops/core/internal/analytics"
	"github.com/brigadeops/core/internal/config"
	"github.com/brigadeops/core/internal/httpmw"
	"github.com/brigadeops/core/internal/live"
	"github.com/brigadeops/core/internal/routing"
	"github.com/brigadeops/core/internal/scheduling"
	"github.com/brigadeops/core/internal/store"
	"github.com/brigadeops/core/internal/vision/camera"
	"github.com/brigadeops/core/internal/vision/classifier"
	"github.com/brigadeops/core/internal/webhook"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)

	if err := godotenv.Load(); err != nil {
		log.Warn(".env file not found, relying on process environment")
	}
}

func main() {
	cfg := config.FromEnv()

	db, err := openDB(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	st := store.New(db, log)
	if err := st.AutoMigrate(); err != nil {
		log.WithError(err).Fatal("auto migrate failed")
	}
	log.Info("auto migrate completed")

	hub := live.New(log)
	st.SetBroadcaster(hub)

	mapper := classifier.NewMapper()
	client := classifier.NewClient(cfg.ClassifierEndpoint)
	dispatcher := classifier.New(st, client, mapper, log, cfg)
	supervisor := camera.NewSupervisor(st, dispatcher, mapper, cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	restaurants, err := listRestaurantsForStartup(db)
	if err != nil {
		log.WithError(err).Warn("could not list restaurants at startup, no camera workers started")
	}
	for _, restaurantID := range restaurants {
		if err := supervisor.StartAll(ctx, restaurantID); err != nil {
			log.WithError(err).WithField("restaurant_id", restaurantID).Warn("failed to start camera workers")
		}
	}

	restaurantLocks := store.NewRestaurantLocks()
	scheduleLocks := store.NewScheduleLocks()
	router := routing.New(st, restaurantLocks, cfg, log)
	engine := scheduling.New(st, scheduleLocks, log)
	roller := analytics.New(db)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginLogger(log))
	r.Use(httpmw.CORS())
	r.Use(httpmw.SecurityHeaders())
	r.Use(httpmw.NewRateLimiter(20, 40).Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	webhook.NewHandler(st, log).Register(r.Group("/"))
	webhook.NewOperationsHandler(router, engine, roller).Register(r.Group("/"))
	webhook.NewLiveHandler(hub, log).Register(r.Group("/"))
	webhook.NewCameraHandler(supervisor).Register(r.Group("/"))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutdown signal received")
	supervisor.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func openDB(cfg config.Snapshot) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if cfg.DBDriver == "mysql" {
		return gorm.Open(mysql.Open(cfg.DBDSN), gormCfg)
	}
	return gorm.Open(sqlite.Open(cfg.DBDSN), gormCfg)
}

// listRestaurantsForStartup returns every restaurant id so the camera
// supervisor can start one worker per registered camera, following
// §4.6's "parallel workers, one per camera" across the whole install.
func listRestaurantsForStartup(db *gorm.DB) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.Table("restaurants").Pluck("id", &ids).Error
	return ids, err
}

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Info("request")
	}
}
