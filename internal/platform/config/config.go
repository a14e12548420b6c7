package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string  `env:"APP_ENV" envDefault:"local"`
	PostgresDSN    string  `env:"POSTGRES_DSN,required"`
	BotToken       string  `env:"BOT_TOKEN,required"`
	AdminIDs       []int64 `env:"ADMIN_IDS" envSeparator:","`
	OperatorChatID int64   `env:"OPERATOR_CHAT_ID"`

	// Media pipeline
	ScratchDir          string        `env:"SCRATCH_DIR" envDefault:"/tmp/media-bot"`
	MaxFileSizeMB       int64         `env:"MAX_FILE_SIZE_MB" envDefault:"50"`
	MaxMessageAge       time.Duration `env:"MAX_MESSAGE_AGE" envDefault:"5m"`
	DownloadConcurrency int64         `env:"DOWNLOAD_CONCURRENCY" envDefault:"3"`
	SendConcurrency     int64         `env:"SEND_CONCURRENCY" envDefault:"2"`
	DownloadTimeout     time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"5m"`
	TranscodeTimeout    time.Duration `env:"TRANSCODE_TIMEOUT" envDefault:"3m"`

	// External tools
	YtDLPPath           string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	FFmpegPath          string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	InstagramScriptPath string `env:"INSTAGRAM_SCRIPT_PATH"`

	// Cookies and proxies
	YouTubeCookiesPath   string   `env:"YOUTUBE_COOKIES_PATH"`
	RedditCookiesPath    string   `env:"REDDIT_COOKIES_PATH"`
	InstagramCookiePaths []string `env:"INSTAGRAM_COOKIE_PATHS" envSeparator:","`
	RedditProxy          string   `env:"REDDIT_PROXY"`
	TikTokProxy          string   `env:"TIKTOK_PROXY"`
	SpotifyProxy         string   `env:"SPOTIFY_PROXY" envDefault:"socks5://127.0.0.1:9050"`
	YandexProxy          string   `env:"YANDEX_PROXY"`
	YandexAuthHeader     string   `env:"YANDEX_AUTH_HEADER"`

	// Pinterest scraping API
	PinterestAPIBaseURL string `env:"PINTEREST_API_BASE_URL" envDefault:"https://api.pinterest.com/v5"`
	PinterestAPIToken   string `env:"PINTEREST_API_TOKEN"`

	// LLM / speech
	LLMAPIKey    string `env:"LLM_API_KEY"`
	LLMModel     string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	WhisperModel string `env:"WHISPER_MODEL" envDefault:"whisper-1"`
	RateLimitRPS int    `env:"RATE_LIMIT_RPS" envDefault:"1"`

	// Watchdogs
	CleanupInterval    time.Duration `env:"CLEANUP_INTERVAL" envDefault:"200s"`
	CleanupMaxAge      time.Duration `env:"CLEANUP_MAX_AGE" envDefault:"30m"`
	ProxyCheckInterval time.Duration `env:"PROXY_CHECK_INTERVAL" envDefault:"5m"`
	ProxyCheckTimeout  time.Duration `env:"PROXY_CHECK_TIMEOUT" envDefault:"10s"`

	// Observability
	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`

	// Database pool
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// MaxFileSizeBytes returns the configured upload ceiling in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
