package config

import (
	"os"
	"testing"
)

// Test environment variable keys.
const (
	testEnvPostgresDSN = "POSTGRES_DSN"
	testEnvBotToken    = "BOT_TOKEN"
	testEnvAdminIDs    = "ADMIN_IDS"
)

// Test values.
const (
	testPostgresDSN = "postgres://localhost/test"
	testBotToken    = "123456:ABC-DEF"
	testErrLoad     = "Load() error = %v"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
	t.Setenv(testEnvBotToken, testBotToken)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv(testEnvPostgresDSN)
	os.Unsetenv(testEnvBotToken)

	_, err := Load()
	if err == nil {
		t.Error("expected error for missing required env vars")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.PostgresDSN != testPostgresDSN {
		t.Errorf("PostgresDSN = %q, want %q", cfg.PostgresDSN, testPostgresDSN)
	}

	if cfg.BotToken != testBotToken {
		t.Errorf("BotToken = %q, want %q", cfg.BotToken, testBotToken)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	os.Unsetenv("APP_ENV")
	os.Unsetenv("MAX_FILE_SIZE_MB")
	os.Unsetenv("DOWNLOAD_CONCURRENCY")
	os.Unsetenv("SEND_CONCURRENCY")
	os.Unsetenv("SCRATCH_DIR")
	os.Unsetenv("YTDLP_PATH")
	os.Unsetenv("HEALTH_PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.AppEnv != "local" {
		t.Errorf("AppEnv default = %q, want %q", cfg.AppEnv, "local")
	}

	if cfg.MaxFileSizeMB != 50 {
		t.Errorf("MaxFileSizeMB default = %d, want 50", cfg.MaxFileSizeMB)
	}

	if cfg.DownloadConcurrency != 3 {
		t.Errorf("DownloadConcurrency default = %d, want 3", cfg.DownloadConcurrency)
	}

	if cfg.SendConcurrency != 2 {
		t.Errorf("SendConcurrency default = %d, want 2", cfg.SendConcurrency)
	}

	if cfg.YtDLPPath != "yt-dlp" {
		t.Errorf("YtDLPPath default = %q, want %q", cfg.YtDLPPath, "yt-dlp")
	}
}

func TestLoad_AdminIDs(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvAdminIDs, "100,200,300")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if len(cfg.AdminIDs) != 3 || cfg.AdminIDs[0] != 100 || cfg.AdminIDs[2] != 300 {
		t.Errorf("AdminIDs = %v, want [100 200 300]", cfg.AdminIDs)
	}
}

func TestMaxFileSizeBytes(t *testing.T) {
	cfg := &Config{MaxFileSizeMB: 50}

	if got := cfg.MaxFileSizeBytes(); got != 50*1024*1024 {
		t.Errorf("MaxFileSizeBytes() = %d, want %d", got, 50*1024*1024)
	}
}
