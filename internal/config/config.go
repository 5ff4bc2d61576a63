// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	APIBaseURL     string        // バックエンドAPIのベースURL
	RequestTimeout time.Duration // HTTPリクエストのタイムアウト

	// Rate Limit（クライアント側送信レート）
	RequestsPerSecond float64
	RequestBurst      int

	// Notification
	NotificationTTL time.Duration // 通知の自動クリアまでの時間

	// Storage
	StoragePath string // 永続キーバリューストレージのファイルパス

	// Security
	SafeClient bool // 外部URL向けにSSRF防止クライアントを使用するか
}

// Load は環境変数からConfigを読み込む。
// すべての項目にデフォルト値があるため、未設定でもエラーにならない。
// SafeClientはAPIBaseURLがループバック以外を指す場合に自動で有効になる。
func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL:        getEnvString("BLOGLIST_API_URL", "http://localhost:3003"),
		RequestTimeout:    getEnvDuration("BLOGLIST_REQUEST_TIMEOUT", 10*time.Second),
		RequestsPerSecond: getEnvFloat("BLOGLIST_REQUESTS_PER_SECOND", 10),
		RequestBurst:      getEnvInt("BLOGLIST_REQUEST_BURST", 20),
		NotificationTTL:   getEnvDuration("BLOGLIST_NOTIFICATION_TTL", 5*time.Second),
		StoragePath:       getEnvString("BLOGLIST_STORAGE_PATH", defaultStoragePath()),
	}

	cfg.SafeClient = !isLoopbackURL(cfg.APIBaseURL)
	if v := os.Getenv("BLOGLIST_SAFE_CLIENT"); v != "" {
		cfg.SafeClient = v == "true" || v == "1"
	}

	return cfg, nil
}

// defaultStoragePath はホームディレクトリ配下のデフォルト保存先を返す。
// ホームが解決できない環境ではカレントディレクトリを使用する。
func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "bloglist.db"
	}
	return home + "/.bloglist/state.db"
}

// isLoopbackURL はURLがループバックアドレスを指しているかを簡易判定する。
func isLoopbackURL(raw string) bool {
	return strings.Contains(raw, "localhost") ||
		strings.Contains(raw, "127.0.0.1") ||
		strings.Contains(raw, "[::1]")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
