package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"mangashelf/internal/auth"
	"mangashelf/internal/catalog"
	"mangashelf/internal/invalidate"
	"mangashelf/internal/series"
	"mangashelf/internal/volume"
	"mangashelf/pkg/database"
	"mangashelf/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Invalidation feed: websocket endpoint plus a TCP line server.
	hub := invalidate.NewHub()
	router.GET("/ws", invalidate.WSHandler(hub))
	tcpSrv := invalidate.NewServer(":7070", hub)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Everything below requires a resolved caller identity.
	protected := router.Group("/users")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo))

	authHandler.RegisterProfileRoutes(protected)

	seriesRepo := series.NewRepo(db)
	seriesHandler := series.NewHandler(seriesRepo, hub)
	seriesHandler.RegisterRoutes(protected)

	volumeRepo := volume.NewRepo(db)
	volumeHandler := volume.NewHandler(volumeRepo, hub)
	volumeHandler.RegisterRoutes(protected)

	catalogHandler := catalog.NewHandler(catalog.NewClient())
	catalogHandler.RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("HTTP API server listening on :8080")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
