package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every setting the binaries read from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	AMQP     AMQPConfig
	Storage  StorageConfig
	Identity IdentityConfig
	Chat     ChatConfig
	Log      LogConfig
	Policy   Policy

	// EnvFileLoaded is false when no .env file was found.
	EnvFileLoaded bool
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

// ListenString returns the address passed to http.Server.
func (c ServerConfig) ListenString() string {
	return ":" + c.Port
}

type DatabaseConfig struct {
	URL          string
	User         string
	Password     string
	Host         string
	Port         string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN returns DATABASE_URL when set, otherwise builds one from the parts.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

type AMQPConfig struct {
	URL   string
	Queue string
}

type StorageConfig struct {
	Bucket string
	Region string
	// MaxUploadBytes caps one asset upload request.
	MaxUploadBytes int64
}

type IdentityConfig struct {
	ProjectID string
	Secret    string
	APIURL    string
	// SessionCacheSeconds is how long an authenticated session is reused,
	// capped at the session's expiry. A session revoked at the provider is
	// still accepted for up to this long. Zero disables the cache.
	SessionCacheSeconds int
}

type ChatConfig struct {
	APIURL       string
	SystemPrompt string
}

type LogConfig struct {
	Level string
}

// Load reads .env (if present) and the process environment. The workflow
// policy comes from WORKFLOW_CONFIG when set, otherwise DefaultPolicy.
func Load() (Config, error) {
	loaded := godotenv.Load() == nil

	conf := Config{
		Server: ServerConfig{
			Port:        getenv("PORT", "8080"),
			CORSOrigins: splitList(getenv("CORS_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			User:         os.Getenv("DB_USER"),
			Password:     os.Getenv("DB_PASSWORD"),
			Host:         getenv("DB_HOST", "localhost"),
			Port:         getenv("DB_PORT", "5432"),
			Name:         os.Getenv("DB_NAME"),
			SSLMode:      getenv("DB_SSLMODE", "disable"),
			MaxOpenConns: getenvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getenvInt("DB_MAX_IDLE_CONNS", 5),
		},
		AMQP: AMQPConfig{
			URL:   os.Getenv("AMQP_URL"),
			Queue: getenv("AMQP_QUEUE", "post.published"),
		},
		Storage: StorageConfig{
			Bucket: getenv("AWS_S3_BUCKET_NAME", "clippilot-assets"),
			Region: getenv("AWS_REGION", "us-east-2"),

			MaxUploadBytes: int64(getenvInt("ASSET_MAX_UPLOAD_BYTES", 50<<20)),
		},
		Identity: IdentityConfig{
			ProjectID: os.Getenv("STYTCH_PROJECT_ID"),
			Secret:    os.Getenv("STYTCH_SECRET"),
			APIURL:    getenv("STYTCH_API_URL", "https://test.stytch.com"),

			SessionCacheSeconds: getenvInt("STYTCH_SESSION_CACHE_SECONDS", 30),
		},
		Chat: ChatConfig{
			APIURL:       getenv("CHAT_API_URL", "http://localhost:8000"),
			SystemPrompt: getenv("CHAT_SYSTEM_PROMPT", "You are a helpful AI assistant."),
		},
		Log: LogConfig{
			Level: getenv("LOG_LEVEL", "info"),
		},
		Policy:        DefaultPolicy(),
		EnvFileLoaded: loaded,
	}

	if path := os.Getenv("WORKFLOW_CONFIG"); path != "" {
		policy, err := LoadPolicy(path)
		if err != nil {
			return Config{}, err
		}
		conf.Policy = policy
	}

	return conf, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
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
