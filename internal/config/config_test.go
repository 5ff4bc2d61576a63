package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load がエラーを返した: %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:3003" {
		t.Errorf("APIBaseURL = %s, want http://localhost:3003", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.NotificationTTL != 5*time.Second {
		t.Errorf("NotificationTTL = %v, want 5s", cfg.NotificationTTL)
	}
	if cfg.StoragePath == "" {
		t.Error("StoragePath は空であってはならない")
	}
	// ループバックURLに対してはSSRF防止クライアントを使わない
	if cfg.SafeClient {
		t.Error("localhost向けのデフォルト設定では SafeClient = false であるべき")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BLOGLIST_API_URL", "https://blog.example.com")
	t.Setenv("BLOGLIST_REQUEST_TIMEOUT", "3s")
	t.Setenv("BLOGLIST_NOTIFICATION_TTL", "2s")
	t.Setenv("BLOGLIST_STORAGE_PATH", "/tmp/bloglist-test.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load がエラーを返した: %v", err)
	}

	if cfg.APIBaseURL != "https://blog.example.com" {
		t.Errorf("APIBaseURL = %s, want https://blog.example.com", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Errorf("RequestTimeout = %v, want 3s", cfg.RequestTimeout)
	}
	if cfg.NotificationTTL != 2*time.Second {
		t.Errorf("NotificationTTL = %v, want 2s", cfg.NotificationTTL)
	}
	if cfg.StoragePath != "/tmp/bloglist-test.db" {
		t.Errorf("StoragePath = %s, want /tmp/bloglist-test.db", cfg.StoragePath)
	}
	// 外部URLに対してはSSRF防止クライアントが自動で有効になる
	if !cfg.SafeClient {
		t.Error("外部URL設定では SafeClient = true であるべき")
	}
}

func TestLoad_SafeClientExplicitOverride(t *testing.T) {
	t.Setenv("BLOGLIST_API_URL", "https://blog.example.com")
	t.Setenv("BLOGLIST_SAFE_CLIENT", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load がエラーを返した: %v", err)
	}
	if cfg.SafeClient {
		t.Error("BLOGLIST_SAFE_CLIENT=false は自動判定を上書きするべき")
	}
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	t.Setenv("BLOGLIST_REQUEST_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load がエラーを返した: %v", err)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("不正な値はデフォルトにフォールバックするべき: %v", cfg.RequestTimeout)
	}
}
