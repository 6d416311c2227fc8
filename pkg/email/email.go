// Package email, kritik sistem uyarıları için e-posta gönderim soyutlaması sağlar.
//
// AlertSender interface'i ile gönderim detayları soyutlanır. Şu anki implementasyon
// Resend API kullanır. AlertPoller kritik uyarı sayısı arttığında bu interface'i çağırır;
// realtime kapalı olsa bile polling bu yolu besler.
package email

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/resend/resend-go/v3"
)

// AlertSender, kritik uyarı e-postası gönderimi için interface.
type AlertSender interface {
	// SendCriticalAlert, kritik uyarı sayısı arttığında alıcılara özet gönderir.
	SendCriticalAlert(ctx context.Context, critical, unresolved, last24h int) error
}

type resendSender struct {
	client     *resend.Client
	fromEmail  string
	recipients []string
	dashboard  string
}

// NewResendSender, Resend API client'ı ile yeni bir AlertSender oluşturur.
//
// recipients boşsa hata döner; alıcısız escalation anlamsız.
// dashboardURL e-postadaki link için kullanılır, boş olabilir.
func NewResendSender(apiKey, fromEmail string, recipients []string, dashboardURL string) (AlertSender, error) {
	if apiKey == "" {
		return nil, errors.New("resend api key is required")
	}
	if len(recipients) == 0 {
		return nil, errors.New("at least one alert recipient is required")
	}
	return &resendSender{
		client:     resend.NewClient(apiKey),
		fromEmail:  fromEmail,
		recipients: recipients,
		dashboard:  dashboardURL,
	}, nil
}

func (s *resendSender) SendCriticalAlert(ctx context.Context, critical, unresolved, last24h int) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("MenuQR Alerts <%s>", s.fromEmail),
		To:      s.recipients,
		Subject: fmt.Sprintf("[MenuQR] %d critical system alert(s)", critical),
		Html:    renderAlertHTML(critical, unresolved, last24h, s.dashboard),
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send critical alert email: %w", err)
	}
	return nil
}

func renderAlertHTML(critical, unresolved, last24h int, dashboard string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"></head>`)
	b.WriteString(`<body style="margin:0;padding:24px;background-color:#111827;font-family:Arial,Helvetica,sans-serif;">`)
	b.WriteString(`<h2 style="color:#f87171;margin:0 0 16px 0;">Critical system alerts</h2>`)
	fmt.Fprintf(&b, `<p style="color:#e5e7eb;font-size:15px;">Critical: <strong>%d</strong></p>`, critical)
	fmt.Fprintf(&b, `<p style="color:#e5e7eb;font-size:15px;">Unresolved: %d</p>`, unresolved)
	fmt.Fprintf(&b, `<p style="color:#e5e7eb;font-size:15px;">Last 24h: %d</p>`, last24h)
	if dashboard != "" {
		esc := html.EscapeString(dashboard)
		fmt.Fprintf(&b, `<p><a href="%s" style="color:#818cf8;">Open the alerts dashboard</a></p>`, esc)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}
