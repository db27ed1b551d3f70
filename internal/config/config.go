package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	TransportStomp    = "stomp"
	TransportSocketIO = "socketio"
)

type API struct {
	BaseURL        string
	RequestTimeout time.Duration
	FetchTimeout   time.Duration
}

type Realtime struct {
	Transport        string
	WSURL            string
	SocketURL        string
	ReconnectDelay   time.Duration
	MaxRetryAttempts int
	DialTimeout      time.Duration
}

type Cache struct {
	Driver          string
	DSN             string
	FeedTTL         time.Duration
	EnrolledTTL     time.Duration
	AllCoursesTTL   time.Duration
	FeedLimit       int
	PollInterval    time.Duration
	SearchDebounce  time.Duration
	TypingIdleAfter time.Duration
}

type Session struct {
	Path       string
	Passphrase string
}

type MinIO struct {
	Enabled    bool
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	UseSSL     bool
	Region     string
	URLExpiry  time.Duration
}

type Callback struct {
	Addr      string
	WebOrigin string
}

type Rollbar struct {
	Token       string
	Environment string
	CodeVersion string
}

type Config struct {
	Debug    bool
	API      API
	Realtime Realtime
	Cache    Cache
	Session  Session
	MinIO    MinIO
	Callback Callback
	Rollbar  Rollbar
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("api_url", "http://localhost:8080/api")
	v.SetDefault("request_timeout", 20*time.Second)
	v.SetDefault("fetch_timeout", 10*time.Second)

	v.SetDefault("transport", TransportStomp)
	v.SetDefault("ws_url", "http://localhost:8080/ws")
	v.SetDefault("socket_url", "http://localhost:8080")
	v.SetDefault("reconnect_delay", time.Second)
	v.SetDefault("max_retry_attempts", 3)
	v.SetDefault("dial_timeout", 20*time.Second)

	v.SetDefault("cache_driver", "sqlite3")
	v.SetDefault("cache_dsn", "file:edusocial-cache.db?_foreign_keys=on")
	v.SetDefault("feed_cache_ttl", 5*time.Minute)
	v.SetDefault("enrolled_cache_ttl", 5*time.Minute)
	v.SetDefault("courses_cache_ttl", 30*time.Minute)
	v.SetDefault("feed_limit", 1000)
	v.SetDefault("friend_poll_interval", 30*time.Second)
	v.SetDefault("search_debounce", 300*time.Millisecond)
	v.SetDefault("typing_idle_after", time.Second)

	v.SetDefault("session_path", ".edusocial-session")
	v.SetDefault("session_passphrase", "edusocial-local-session")

	v.SetDefault("minio_enabled", false)
	v.SetDefault("minio_endpoint", "localhost:9000")
	v.SetDefault("minio_access_key", "minioadmin")
	v.SetDefault("minio_secret_key", "minioadmin")
	v.SetDefault("minio_bucket_name", "chat-media")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("minio_region", "us-east-1")
	v.SetDefault("minio_url_expiry", 7*24*time.Hour)

	v.SetDefault("callback_addr", "127.0.0.1:5173")
	v.SetDefault("callback_web_origin", "http://localhost:3000")

	v.SetDefault("rollbar_token", "")
	v.SetDefault("rollbar_environment", "development")
	v.SetDefault("rollbar_code_version", "dev")
}

// New reads configuration from the environment only; LoadConfig also reads .env.
func New() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.SetEnvPrefix("EDUSOCIAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{
		Debug: v.GetBool("debug"),
		API: API{
			BaseURL:        strings.TrimSuffix(v.GetString("api_url"), "/"),
			RequestTimeout: v.GetDuration("request_timeout"),
			FetchTimeout:   v.GetDuration("fetch_timeout"),
		},
		Realtime: Realtime{
			Transport:        strings.ToLower(v.GetString("transport")),
			WSURL:            v.GetString("ws_url"),
			SocketURL:        v.GetString("socket_url"),
			ReconnectDelay:   v.GetDuration("reconnect_delay"),
			MaxRetryAttempts: v.GetInt("max_retry_attempts"),
			DialTimeout:      v.GetDuration("dial_timeout"),
		},
		Cache: Cache{
			Driver:          v.GetString("cache_driver"),
			DSN:             v.GetString("cache_dsn"),
			FeedTTL:         v.GetDuration("feed_cache_ttl"),
			EnrolledTTL:     v.GetDuration("enrolled_cache_ttl"),
			AllCoursesTTL:   v.GetDuration("courses_cache_ttl"),
			FeedLimit:       v.GetInt("feed_limit"),
			PollInterval:    v.GetDuration("friend_poll_interval"),
			SearchDebounce:  v.GetDuration("search_debounce"),
			TypingIdleAfter: v.GetDuration("typing_idle_after"),
		},
		Session: Session{
			Path:       v.GetString("session_path"),
			Passphrase: v.GetString("session_passphrase"),
		},
		MinIO: MinIO{
			Enabled:    v.GetBool("minio_enabled"),
			Endpoint:   v.GetString("minio_endpoint"),
			AccessKey:  v.GetString("minio_access_key"),
			SecretKey:  v.GetString("minio_secret_key"),
			BucketName: v.GetString("minio_bucket_name"),
			UseSSL:     v.GetBool("minio_use_ssl"),
			Region:     v.GetString("minio_region"),
			URLExpiry:  v.GetDuration("minio_url_expiry"),
		},
		Callback: Callback{
			Addr:      v.GetString("callback_addr"),
			WebOrigin: v.GetString("callback_web_origin"),
		},
		Rollbar: Rollbar{
			Token:       v.GetString("rollbar_token"),
			Environment: v.GetString("rollbar_environment"),
			CodeVersion: v.GetString("rollbar_code_version"),
		},
	}
}

func LoadConfig(envFiles ...string) *Config {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}
	return New()
}

func (c *Config) Validate() error {
	switch c.Realtime.Transport {
	case TransportStomp, TransportSocketIO:
	default:
		return fmt.Errorf("unknown transport %q", c.Realtime.Transport)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api url is empty")
	}
	if c.Cache.FeedLimit <= 0 {
		return fmt.Errorf("feed limit must be positive, got %d", c.Cache.FeedLimit)
	}
	if c.Realtime.MaxRetryAttempts < 0 {
		return fmt.Errorf("max retry attempts must not be negative, got %d", c.Realtime.MaxRetryAttempts)
	}
	for name, d := range map[string]time.Duration{
		"dial timeout":  c.Realtime.DialTimeout,
		"fetch timeout": c.API.FetchTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.Realtime.ReconnectDelay < 0 {
		return fmt.Errorf("reconnect delay must not be negative, got %s", c.Realtime.ReconnectDelay)
	}
	return nil
}
