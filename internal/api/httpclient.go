package api

import (
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

// NewHTTPClient は設定に応じたHTTPクライアントを生成する。
//
// safeがtrueの場合、safeurlによるSSRF防止機能付きクライアントを返す。
// プライベートIP、ループバック、リンクローカル、メタデータIPへの
// リクエストがDialerレベルでブロックされ、DNS再バインディング攻撃にも
// 対応する。外部のAPIサーバーを指す構成で使用する。
//
// safeがfalseの場合は通常のクライアントを返す。ローカル開発と
// テスト（httptestはループバックで待ち受ける）で使用する。
func NewHTTPClient(timeout time.Duration, safe bool) *http.Client {
	if !safe {
		return &http.Client{Timeout: timeout}
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}
