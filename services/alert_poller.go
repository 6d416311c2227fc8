package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/HusseinTALL/menuqr-sync/gateway"
	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/pkg/email"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
	"github.com/HusseinTALL/menuqr-sync/projections"
)

// AlertPoller, sistem uyarısı sayaçlarının periyodik çekimi.
//
// Realtime bağlantıdan bağımsız çalışır: soket tamamen kapalıyken de sayaçlar
// interval aralığında güncellenir. system:alert event'i Invalidate ile erken
// bir çekim ister; üst üste gelen istekler tek çekimde birleşir.
type AlertPoller interface {
	Start()
	Stop()
	// Invalidate, en kısa sürede bir çekim ister. Bloklamaz.
	Invalidate()
	// Poll, tek bir çekim.
	Poll(ctx context.Context) error
}

type alertPoller struct {
	api      APIClient
	feed     *projections.AlertFeed
	sender   email.AlertSender // nil olabilir
	actor    models.ActorKind
	interval time.Duration
	log      logrus.FieldLogger

	invalidate chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewAlertPoller, constructor. sender verilirse kritik sayı arttığında e-posta gönderilir.
func NewAlertPoller(api APIClient, feed *projections.AlertFeed, sender email.AlertSender, interval time.Duration, log logrus.FieldLogger) AlertPoller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &alertPoller{
		api:        api,
		feed:       feed,
		sender:     sender,
		actor:      models.ActorSuperAdmin,
		interval:   interval,
		log:        logger.Component(log, "alerts"),
		invalidate: make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}
}

func (p *alertPoller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.log.WithField("interval", p.interval).Info("starting alert polling")

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.pollLogged(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.pollLogged(ctx)
			case <-p.invalidate:
				p.pollLogged(ctx)
				ticker.Reset(p.interval)
			case <-p.stopCh:
				return
			}
		}
	}()
}

func (p *alertPoller) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.stopped = true
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stopCh)
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Info("alert polling stopped")
}

func (p *alertPoller) Invalidate() {
	select {
	case p.invalidate <- struct{}{}:
	default:
	}
}

func (p *alertPoller) pollLogged(ctx context.Context) {
	if err := p.Poll(ctx); err != nil {
		entry := p.log.WithError(err)
		if errors.Is(err, pkg.ErrAuth) || errors.Is(err, context.Canceled) {
			entry.Debug("alert poll skipped")
			return
		}
		entry.Warn("alert poll failed")
	}
}

func (p *alertPoller) Poll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	var stats models.AlertStats
	err := p.api.CallJSON(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/admin/alerts/stats",
		Auth:   p.actor,
	}, &stats)
	if err != nil {
		return err
	}
	stats.UpdatedAt = time.Now().UTC()

	prev, hadPrev := p.feed.Set(stats)

	// İlk çekim taban çizgisidir; yeniden başlatmada e-posta yağmuru olmasın.
	if hadPrev && stats.Critical > prev.Critical {
		p.escalate(ctx, stats)
	}
	return nil
}

func (p *alertPoller) escalate(ctx context.Context, stats models.AlertStats) {
	log := p.log.WithFields(logrus.Fields{"critical": stats.Critical, "unresolved": stats.Unresolved})
	log.Warn("critical alert count increased")
	if p.sender == nil {
		return
	}
	if err := p.sender.SendCriticalAlert(ctx, stats.Critical, stats.Unresolved, stats.Last24h); err != nil {
		log.WithError(err).Error("failed to send critical alert email")
	}
}
