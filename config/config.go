// Package config, sync daemon'ın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Config struct'ı tüm ayarları tek bir yerde toplar; her alt bölüm ayrı bir struct
// olarak tek bir concern'ü temsil eder (backend API, realtime, credential saklama…).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Credential backend seçenekleri.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config, daemon'ın tüm konfigürasyon değerlerini taşır.
type Config struct {
	API      APIConfig
	Realtime RealtimeConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Polling  PollingConfig
	KDS      KDSConfig
	Driver   DriverConfig
	LocalAPI LocalAPIConfig
	Log      LogConfig
	Email    EmailConfig
}

// APIConfig, REST backend ayarları.
type APIConfig struct {
	BaseURL string // ör: https://api.menuqr.app/api/v1
	Timeout time.Duration
}

// RealtimeConfig, push kanalı ayarları.
// StaffURL ve DriverURL boşsa BaseURL'den türetilir (http→ws, https→wss).
type RealtimeConfig struct {
	StaffURL          string
	DriverURL         string
	ReconnectAttempts int           // kopmadan sonra otomatik deneme sayısı
	ReconnectDelay    time.Duration // denemeler arası sabit bekleme
	HandshakeTimeout  time.Duration
	HeartbeatInterval time.Duration
	CustomerTenantID  string // boş değilse müşteri bağlantısı açılır (sipariş takibi)
	StaffActor        string // personel bağlantısı ve poller'ların kimliği: staff veya superAdmin
}

// AuthConfig, credential yenileme ve saklama ayarları.
type AuthConfig struct {
	RefreshLeadTime   time.Duration // exp'ten bu kadar önce proaktif yenile
	CredentialBackend string        // sqlite | redis | memory
	CredentialSecret  string        // boş değilse saklanan payload AES-GCM ile şifrelenir
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string
}

// RedisConfig, paylaşılan credential backend'i (çok ekranlı mutfaklar için).
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// PollingConfig, realtime'dan bağımsız çalışan periyodik çekimler.
type PollingConfig struct {
	NotificationInterval time.Duration
	AlertInterval        time.Duration
}

// KDSConfig, mutfak ekranı ayarları. RestaurantID boşsa KDS odasına katılınmaz.
type KDSConfig struct {
	RestaurantID string
	SoundTTL     time.Duration
}

// DriverConfig, sürücü cihazı ayarları.
type DriverConfig struct {
	LocationMinInterval time.Duration
}

// LocalAPIConfig, yerel UI'a snapshot sunan loopback HTTP API.
type LocalAPIConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	Token          string // boş değilse her request Bearer token ister
}

// LogConfig, logrus ayarları.
type LogConfig struct {
	Level  string
	Format string // text | json
}

// EmailConfig, kritik uyarı e-postaları. ResendAPIKey boşsa escalation kapalıdır.
type EmailConfig struct {
	ResendAPIKey    string
	FromEmail       string
	AlertRecipients []string
	DashboardURL    string
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler; yoksa sessizce devam eder.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	intVar := func(key, fallback string) int {
		v, err := strconv.Atoi(getEnv(key, fallback))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}
	durVar := func(key, fallback string) time.Duration {
		v, err := time.ParseDuration(getEnv(key, fallback))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("API_BASE_URL", ""), "/"),
			Timeout: durVar("API_TIMEOUT", "15s"),
		},
		Realtime: RealtimeConfig{
			StaffURL:          getEnv("REALTIME_STAFF_URL", ""),
			DriverURL:         getEnv("REALTIME_DRIVER_URL", ""),
			ReconnectAttempts: intVar("REALTIME_RECONNECT_ATTEMPTS", "5"),
			ReconnectDelay:    durVar("REALTIME_RECONNECT_DELAY", "2s"),
			HandshakeTimeout:  durVar("REALTIME_HANDSHAKE_TIMEOUT", "10s"),
			HeartbeatInterval: durVar("REALTIME_HEARTBEAT_INTERVAL", "30s"),
			CustomerTenantID:  getEnv("REALTIME_CUSTOMER_TENANT", ""),
			StaffActor:        getEnv("REALTIME_STAFF_ACTOR", "staff"),
		},
		Auth: AuthConfig{
			RefreshLeadTime:   durVar("AUTH_REFRESH_LEAD_TIME", "5m"),
			CredentialBackend: strings.ToLower(getEnv("CREDENTIAL_BACKEND", BackendSQLite)),
			CredentialSecret:  getEnv("CREDENTIAL_SECRET", ""),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/menuqr-sync.db"),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        intVar("REDIS_DB", "0"),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "menuqr:"),
		},
		Polling: PollingConfig{
			NotificationInterval: durVar("NOTIFICATION_POLL_INTERVAL", "60s"),
			AlertInterval:        durVar("ALERT_POLL_INTERVAL", "30s"),
		},
		KDS: KDSConfig{
			RestaurantID: getEnv("KDS_RESTAURANT_ID", ""),
			SoundTTL:     durVar("KDS_SOUND_TTL", "10m"),
		},
		Driver: DriverConfig{
			LocationMinInterval: durVar("DRIVER_LOCATION_MIN_INTERVAL", "3s"),
		},
		LocalAPI: LocalAPIConfig{
			Host:           getEnv("LOCAL_API_HOST", "127.0.0.1"),
			Port:           intVar("LOCAL_API_PORT", "7070"),
			AllowedOrigins: splitList(getEnv("LOCAL_API_ALLOWED_ORIGINS", "http://localhost:5173")),
			Token:          getEnv("LOCAL_API_TOKEN", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Email: EmailConfig{
			ResendAPIKey:    getEnv("RESEND_API_KEY", ""),
			FromEmail:       getEnv("RESEND_FROM_EMAIL", "alerts@menuqr.app"),
			AlertRecipients: splitList(getEnv("ALERT_EMAIL_RECIPIENTS", "")),
			DashboardURL:    getEnv("ALERT_DASHBOARD_URL", ""),
		},
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := cfg.resolveRealtimeURLs(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate, birbirine bağlı alanları kontrol eder.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("API_BASE_URL environment variable is required")
	}
	if c.Realtime.ReconnectAttempts < 0 {
		return errors.New("REALTIME_RECONNECT_ATTEMPTS must be >= 0")
	}
	switch c.Realtime.StaffActor {
	case "staff", "superAdmin":
	default:
		return fmt.Errorf("REALTIME_STAFF_ACTOR must be staff or superAdmin, got %q", c.Realtime.StaffActor)
	}
	if c.Auth.RefreshLeadTime <= 0 {
		return errors.New("AUTH_REFRESH_LEAD_TIME must be positive")
	}
	switch c.Auth.CredentialBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown CREDENTIAL_BACKEND %q", c.Auth.CredentialBackend)
	}
	if c.Polling.AlertInterval <= 0 || c.Polling.NotificationInterval <= 0 {
		return errors.New("polling intervals must be positive")
	}
	return nil
}

// resolveRealtimeURLs, boş realtime URL'lerini API base URL'den türetir.
func (c *Config) resolveRealtimeURLs() error {
	if c.API.BaseURL == "" || (c.Realtime.StaffURL != "" && c.Realtime.DriverURL != "") {
		return nil
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid API_BASE_URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = ""

	if c.Realtime.StaffURL == "" {
		c.Realtime.StaffURL = u.String() + "/realtime"
	}
	if c.Realtime.DriverURL == "" {
		c.Realtime.DriverURL = u.String() + "/realtime/driver"
	}
	return nil
}

// Addr, loopback API'nin dinleyeceği adres (ör: "127.0.0.1:7070").
func (c *LocalAPIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
