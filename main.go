// Package main, menuqr-sync daemon'ının giriş noktasıdır.
//
// Bu dosyanın görevi: Dependency Injection "wire-up":
//
//	 1. Config'i yükle
//	 2. Logger'ı kur
//	 3. Credential backend'ini başlat
//	 4. Service'leri oluştur (store, refresh coordinator, gateway)
//	 5. Realtime bağlantıları oluştur
//	 6. Projeksiyonları oluştur
//	 7. Poller'ları oluştur
//	 8. Callback'leri bağla
//	 9. Handler ve middleware'ları oluştur
//	10. HTTP router'ı kur
//	11. CORS yapılandır
//	12. Arka plan işlerini ve HTTP server'ı başlat
//	13. Graceful shutdown
//
// Global değişken YOK; her şey burada oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/HusseinTALL/menuqr-sync/config"
	"github.com/HusseinTALL/menuqr-sync/middleware"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
)

func main() {
	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	// ─── 2. Logger ───
	root := logger.New(cfg.Log.Level, cfg.Log.Format)
	log := logger.Component(root, "main")
	log.WithField("api", cfg.API.BaseURL).Info("menuqr-sync starting")

	// ─── 3. Credential Backend ───
	repos, err := initRepositories(cfg, root)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize credential backend")
	}
	defer repos.Close()

	// ─── 4. Service Layer ───
	svcs := initServices(cfg, repos, root)

	// ─── 5. Realtime ───
	rt := initRealtime(cfg, svcs, root)

	// ─── 6. Projections ───
	proj := initProjections(cfg, rt)

	// ─── 7. Pollers ───
	initPollers(cfg, svcs, proj, root)

	// ─── 8. Callbacks ───
	unbind := registerCallbacks(cfg, rt, proj, svcs, root)

	// ─── 9. Handlers & Middleware ───
	h := initHandlers(cfg, svcs, rt, proj)
	tokenMw := middleware.NewLocalTokenMiddleware(cfg.LocalAPI.Token)

	// ─── 10. HTTP Router ───
	mux := http.NewServeMux()
	initRoutes(mux, h, tokenMw)

	// ─── 11. CORS ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.LocalAPI.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	})
	handler := middleware.RequestLog(root)(corsHandler.Handler(mux))

	// ─── 12. Background Work & HTTP Server ───
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := svcs.Credentials.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("credential change feed stopped")
		}
	}()
	rt.Start(ctx)
	svcs.Notifications.Start()
	svcs.Alerts.Start()

	srv := &http.Server{
		Addr:         cfg.LocalAPI.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.LocalAPI.Addr()).Info("local api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// ─── 13. Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done
	log.Info("shutting down...")

	// Önce HTTP server: yeni komut (ack, konum) gelmesin.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}

	svcs.Alerts.Stop()
	svcs.Notifications.Stop()
	unbind()
	rt.Close()
	proj.KDS.Close()
	cancel()

	log.Info("stopped gracefully")
}
