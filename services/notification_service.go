package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/HusseinTALL/menuqr-sync/gateway"
	"github.com/HusseinTALL/menuqr-sync/models"
	"github.com/HusseinTALL/menuqr-sync/pkg"
	"github.com/HusseinTALL/menuqr-sync/pkg/logger"
	"github.com/HusseinTALL/menuqr-sync/projections"
)

// APIClient, poller'ların gateway'den ihtiyaç duyduğu kısım.
type APIClient interface {
	CallJSON(ctx context.Context, req gateway.Request, out any) error
}

// pollTimeout, tek bir çekimin üst sınırı.
const pollTimeout = 30 * time.Second

// NotificationService, personel bildirim akışının periyodik tam yenilemesi.
//
// Realtime notification:new event'leri akışa anında eklenir; bu servis belirli
// aralıklarla sunucudaki listeyi çekip birleştirir (okundu bilgisi, kaçırılan event'ler).
type NotificationService interface {
	// Start, ilk yenilemeyi hemen yapar, sonra interval aralığında tekrarlar.
	Start()
	// Stop, döngüyü durdurur ve bekler. Stop sonrası yenileme yapılmaz.
	Stop()
	// Refresh, tek bir tam yenileme.
	Refresh(ctx context.Context) error
	// MarkRead, bildirimi sunucuda ve yerelde okundu işaretler.
	MarkRead(ctx context.Context, id string) error
}

type notificationService struct {
	api      APIClient
	feed     *projections.NotificationFeed
	actor    models.ActorKind
	interval time.Duration
	log      logrus.FieldLogger

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewNotificationService, constructor. actor: bildirimleri çeken aktör (staff veya superAdmin).
func NewNotificationService(api APIClient, feed *projections.NotificationFeed, actor models.ActorKind, interval time.Duration, log logrus.FieldLogger) NotificationService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &notificationService{
		api:      api,
		feed:     feed,
		actor:    actor,
		interval: interval,
		log:      logger.Component(log, "notifications"),
		stopCh:   make(chan struct{}),
	}
}

func (s *notificationService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.log.WithField("interval", s.interval).Info("starting notification refresh")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.refreshLogged(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.refreshLogged(ctx)
			case <-s.stopCh:
				return
			}
		}
	}()
}

func (s *notificationService) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.stopped = true
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("notification refresh stopped")
}

func (s *notificationService) refreshLogged(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		entry := s.log.WithError(err)
		if errors.Is(err, pkg.ErrAuth) || errors.Is(err, context.Canceled) {
			entry.Debug("notification refresh skipped")
			return
		}
		entry.Warn("notification refresh failed")
	}
}

// notificationList, /notifications yanıtı: düz liste veya {notifications: [...]}.
type notificationList struct {
	Notifications []models.NotificationEntry `json:"notifications"`
}

func (s *notificationService) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	var raw json.RawMessage
	err := s.api.CallJSON(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/notifications",
		Query:  url.Values{"limit": {strconv.Itoa(projections.NotificationCap)}},
		Auth:   s.actor,
	}, &raw)
	if err != nil {
		return err
	}

	entries, err := decodeNotifications(raw)
	if err != nil {
		return err
	}
	s.feed.Merge(entries)
	return nil
}

func decodeNotifications(raw json.RawMessage) ([]models.NotificationEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []models.NotificationEntry
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped notificationList
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return wrapped.Notifications, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: notification id required", pkg.ErrBadRequest)
	}
	err := s.api.CallJSON(ctx, gateway.Request{
		Method: http.MethodPatch,
		Path:   "/notifications/" + url.PathEscape(id) + "/read",
		Auth:   s.actor,
	}, nil)
	if err != nil {
		return err
	}
	s.feed.MarkRead(id)
	return nil
}
