// Package main: Service katmanı başlatma.
//
// Sıralama:
//  1. CredentialStore → repository üzerinde
//  2. TokenRefreshCoordinator → store + refresh client
//  3. Gateway → store + coordinator
//  4. Poller'lar → gateway + projeksiyonlar (initPollers, projeksiyonlardan SONRA)
package main

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/HusseinTALL/menuqr-sync/config"
	"github.com/HusseinTALL/menuqr-sync/gateway"
	"github.com/HusseinTALL/menuqr-sync/pkg/email"
	"github.com/HusseinTALL/menuqr-sync/services"
)

// Services, service instance'larını tutan container struct.
type Services struct {
	Credentials   services.CredentialStore
	Refresh       services.TokenRefreshCoordinator
	Gateway       *gateway.Gateway
	Notifications services.NotificationService
	Alerts        services.AlertPoller
}

func initServices(cfg *config.Config, repos *Repositories, log logrus.FieldLogger) *Services {
	httpClient := &http.Client{Timeout: cfg.API.Timeout}

	store := services.NewCredentialStore(repos.Credentials, log)
	refreshClient := gateway.NewRefreshClient(cfg.API.BaseURL, httpClient)
	coordinator := services.NewTokenRefreshCoordinator(store, refreshClient, cfg.Auth.RefreshLeadTime, log)

	return &Services{
		Credentials: store,
		Refresh:     coordinator,
		Gateway:     gateway.New(cfg.API.BaseURL, httpClient, store, coordinator, log),
	}
}

// initPollers, realtime'dan bağımsız periyodik çekimleri kurar.
// Resend ayarlı değilse kritik uyarılar sadece loglanır.
func initPollers(cfg *config.Config, svcs *Services, proj *Projections, log logrus.FieldLogger) {
	var sender email.AlertSender
	if cfg.Email.ResendAPIKey != "" {
		s, err := email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromEmail, cfg.Email.AlertRecipients, cfg.Email.DashboardURL)
		if err != nil {
			log.WithError(err).Warn("critical alert e-mail disabled")
		} else {
			sender = s
		}
	}

	svcs.Notifications = services.NewNotificationService(svcs.Gateway, proj.Notifications, staffActor(cfg), cfg.Polling.NotificationInterval, log)
	svcs.Alerts = services.NewAlertPoller(svcs.Gateway, proj.Alerts, sender, cfg.Polling.AlertInterval, log)
}
