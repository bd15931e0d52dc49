// shipment-sync-service consumes material-dispatch events and records the
// resulting shipments. It serves a Pub/Sub push endpoint and, when
// PUBSUB_DISPATCH_PULL=true, also runs a pull subscriber.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modaflow/atelier_backend/config"
	"github.com/modaflow/atelier_backend/middlewares"
	"github.com/modaflow/atelier_backend/models"
	"github.com/modaflow/atelier_backend/shipmentsync"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8081"

func main() {
	port := os.Getenv("SHIPMENT_SYNC_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
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
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.Use(gin.Recovery())

	r.POST("/pubsub/dispatch", func(c *gin.Context) {
		worker := &shipmentsync.Worker{DB: config.GetDB(), Logger: logger}
		worker.PushHandler()(c)
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable(db)
	}

	pullCtx, cancelPull := context.WithCancel(context.Background())
	defer cancelPull()
	if strings.EqualFold(strings.TrimSpace(os.Getenv("PUBSUB_DISPATCH_PULL")), "true") {
		worker := &shipmentsync.Worker{DB: db, Logger: logger}
		go func() {
			if err := worker.Run(pullCtx); err != nil {
				logger.WithFields(logrus.Fields{"field": "shipmentsync"}).Error("pull subscriber stopped: " + err.Error())
			}
		}()
	}

	select {
	case <-sigCtx.Done():
		cancelPull()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}
