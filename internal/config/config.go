package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config carries every tunable the service reads at startup. All values are
// optional; defaults keep a local sqlite + no-CRM setup working out of the box.
type Config struct {
	HTTP  HTTPConfig
	DB    DBConfig
	Redis RedisConfig
	Attio AttioConfig
	Sync  SyncConfig
	Audit AuditConfig
}

type HTTPConfig struct {
	Addr string
}

type DBConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string
	DSN    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AttioConfig configures the external CRM client. Endpoint paths are
// configurable because record listing shapes vary per workspace setup.
type AttioConfig struct {
	BaseURL              string
	APIKey               string
	WorkspaceMembersPath string
	DealsPath            string
	DealsQueryInclude    []string
	WonForecastOptionID  string
	OnlyWon              bool
	PurgeNonWon          bool
}

type SyncConfig struct {
	// Interval between scheduled sync runs. Zero disables the scheduler loop.
	Interval time.Duration
	// LockTTL bounds how long a crashed run can hold the sync lock.
	LockTTL time.Duration
}

type AuditConfig struct {
	RetentionDays int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "payline.db")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ATTIO_API_BASE_URL", "https://api.attio.com/v2")
	v.SetDefault("ATTIO_API_KEY", "")
	v.SetDefault("ATTIO_WORKSPACE_MEMBERS_PATH", "/workspace_members")
	v.SetDefault("ATTIO_DEALS_PATH", "/objects/deals/records/query")
	v.SetDefault("ATTIO_DEALS_QUERY_INCLUDE", "")
	v.SetDefault("ATTIO_WON_FORECAST_OPTION_ID", "")
	v.SetDefault("ATTIO_DEALS_ONLY_WON", true)
	v.SetDefault("ATTIO_PURGE_NON_WON", false)

	v.SetDefault("SYNC_INTERVAL", "1h")
	v.SetDefault("SYNC_LOCK_TTL", "15m")
	v.SetDefault("AUDIT_RETENTION_DAYS", 365)

	interval, err := time.ParseDuration(v.GetString("SYNC_INTERVAL"))
	if err != nil {
		interval = time.Hour
	}
	lockTTL, err := time.ParseDuration(v.GetString("SYNC_LOCK_TTL"))
	if err != nil {
		lockTTL = 15 * time.Minute
	}

	return Config{
		HTTP: HTTPConfig{
			Addr: v.GetString("HTTP_ADDR"),
		},
		DB: DBConfig{
			Driver: strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:    v.GetString("DB_DSN"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Attio: AttioConfig{
			BaseURL:              strings.TrimRight(v.GetString("ATTIO_API_BASE_URL"), "/"),
			APIKey:               v.GetString("ATTIO_API_KEY"),
			WorkspaceMembersPath: v.GetString("ATTIO_WORKSPACE_MEMBERS_PATH"),
			DealsPath:            v.GetString("ATTIO_DEALS_PATH"),
			DealsQueryInclude:    splitCSV(v.GetString("ATTIO_DEALS_QUERY_INCLUDE")),
			WonForecastOptionID:  strings.TrimSpace(v.GetString("ATTIO_WON_FORECAST_OPTION_ID")),
			OnlyWon:              v.GetBool("ATTIO_DEALS_ONLY_WON"),
			PurgeNonWon:          v.GetBool("ATTIO_PURGE_NON_WON"),
		},
		Sync: SyncConfig{
			Interval: interval,
			LockTTL:  lockTTL,
		},
		Audit: AuditConfig{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
	}, nil
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
