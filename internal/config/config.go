package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"aquarium_dashboard/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Prefs backends.
const (
	PrefsSQLite = "sqlite"
	PrefsRedis  = "redis"
)

const envPrefix = "AQUA"

// Config is the process configuration.
type Config struct {
	Port string

	Log struct {
		Level  string
		Format string
	}

	API struct {
		BaseURL       string
		PredictionURL string
		Timeout       time.Duration
	}

	TankID   string
	DeviceID string

	Poll struct {
		RefreshInterval time.Duration
		RetryDelay      time.Duration
		InitRetryDelay  time.Duration
	}

	Dashboard struct {
		View     models.View
		Timeline models.Timeline
	}

	Feeding struct {
		HistoryLimit int
	}

	Prefs struct {
		Backend       string
		SQLitePath    string
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		RedisPrefix   string
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("api.base_url", "http://localhost:3000")
	v.SetDefault("api.prediction_url", "")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("tank.id", "tank-1")
	v.SetDefault("device.id", "device-1")
	v.SetDefault("poll.refresh_interval", "60s")
	v.SetDefault("poll.retry_delay", "60s")
	v.SetDefault("poll.init_retry_delay", "5s")
	v.SetDefault("dashboard.view", string(models.ViewMonitoring))
	v.SetDefault("dashboard.timeline", string(models.TimelineDay))
	v.SetDefault("feeding.history_limit", 20)
	v.SetDefault("prefs.backend", PrefsSQLite)
	v.SetDefault("prefs.sqlite_path", "prefs.db")
	v.SetDefault("prefs.redis_addr", "localhost:6379")
	v.SetDefault("prefs.redis_password", "")
	v.SetDefault("prefs.redis_db", 0)
	v.SetDefault("prefs.redis_prefix", "aquadash:prefs:")
}

// Load reads configs/config.yml (optional), then .env (optional), then
// AQUA_* environment variables, in increasing precedence.
func Load(configPaths ...string) (*Config, error) {
	_ = godotenv.Load() // ignore missing file

	v := viper.New()
	setDefaults(v)

	if len(configPaths) == 0 {
		configPaths = []string{"configs"}
	}
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	cfg.Port = v.GetString("port")
	cfg.Log.Level = strings.ToLower(v.GetString("log.level"))
	cfg.Log.Format = strings.ToLower(v.GetString("log.format"))

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(v.GetString("api.base_url")), "/")
	if cfg.API.BaseURL == "" {
		return nil, errors.New("api.base_url is required")
	}
	cfg.API.PredictionURL = strings.TrimSpace(v.GetString("api.prediction_url"))
	if cfg.API.PredictionURL == "" {
		cfg.API.PredictionURL = cfg.API.BaseURL + "/predict"
	}

	cfg.TankID = strings.TrimSpace(v.GetString("tank.id"))
	cfg.DeviceID = strings.TrimSpace(v.GetString("device.id"))
	if cfg.TankID == "" || cfg.DeviceID == "" {
		return nil, errors.New("tank.id and device.id are required")
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"api.timeout", &cfg.API.Timeout},
		{"poll.refresh_interval", &cfg.Poll.RefreshInterval},
		{"poll.retry_delay", &cfg.Poll.RetryDelay},
		{"poll.init_retry_delay", &cfg.Poll.InitRetryDelay},
	}
	for _, d := range durations {
		val, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if val <= 0 {
			return nil, fmt.Errorf("invalid %s: must be positive", d.key)
		}
		*d.dst = val
	}

	view, err := models.ParseView(v.GetString("dashboard.view"))
	if err != nil {
		return nil, err
	}
	cfg.Dashboard.View = view
	tl, err := models.ParseTimeline(v.GetString("dashboard.timeline"))
	if err != nil {
		return nil, err
	}
	cfg.Dashboard.Timeline = tl

	cfg.Feeding.HistoryLimit = v.GetInt("feeding.history_limit")
	if cfg.Feeding.HistoryLimit <= 0 {
		return nil, fmt.Errorf("invalid feeding.history_limit: %d", cfg.Feeding.HistoryLimit)
	}

	cfg.Prefs.Backend = strings.ToLower(v.GetString("prefs.backend"))
	switch cfg.Prefs.Backend {
	case PrefsSQLite, PrefsRedis:
	default:
		return nil, fmt.Errorf("invalid prefs.backend %q: must be sqlite or redis", cfg.Prefs.Backend)
	}
	cfg.Prefs.SQLitePath = v.GetString("prefs.sqlite_path")
	cfg.Prefs.RedisAddr = v.GetString("prefs.redis_addr")
	cfg.Prefs.RedisPassword = v.GetString("prefs.redis_password")
	cfg.Prefs.RedisDB = v.GetInt("prefs.redis_db")
	cfg.Prefs.RedisPrefix = v.GetString("prefs.redis_prefix")

	return cfg, nil
}
