// Package notification は一時的なユーザー向け通知チャネルを提供する。
//
// チャネルは高々1件の通知を保持し、設定から一定時間後に自動クリアする。
// 新しい通知が設定されると古いタイマーは必ず無効化され、
// 古いタイマーの発火が新しい通知を消すことはない（ゾンビ期限切れの防止）。
package notification

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/bloglist/internal/model"
)

// Sanitizer は通知メッセージの表示前サニタイズに必要なインターフェース。
// security.CommentSanitizerServiceの部分集合として定義する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Channel は一時通知の状態機械。
// 状態は {empty, active} の2つで、遷移は set / expire / clear のみ。
// expireは設定時と同一世代の場合にのみ成立する。
type Channel struct {
	mu      sync.Mutex
	current *model.Notification
	timer   *time.Timer
	gen     uint64 // 設定ごとに増える世代番号。タイマー発火時の上書き検出に使う。

	sanitizer Sanitizer
	logger    *slog.Logger
}

// NewChannel はChannelの新しいインスタンスを生成する。
// sanitizerがnilの場合はメッセージを加工せずに保持する。
func NewChannel(sanitizer Sanitizer, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// SetWithTimeout は現在の通知を即座に置き換え、d経過後の自動クリアを予約する。
// 以前の通知のタイマーが残っている場合は停止し、停止が間に合わず発火しても
// 世代番号の不一致により新しい通知には影響しない。
func (c *Channel) SetWithTimeout(message string, d time.Duration, kind model.NotificationKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sanitizer != nil {
		message = c.sanitizer.Sanitize(message)
	}

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	c.gen++
	gen := c.gen
	c.current = &model.Notification{Message: message, Kind: kind}

	c.timer = time.AfterFunc(d, func() {
		c.expire(gen)
	})

	c.logger.Info("notification set",
		slog.String("kind", string(kind)),
		slog.Duration("ttl", d),
	)
}

// expire は自動クリアのタイマーコールバック。
// 設定時の世代と現在の世代が一致する場合にのみ通知を空にする。
// 不一致の場合は新しい通知に上書き済みのため何もしない。
func (c *Channel) expire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	c.current = nil
	c.timer = nil
}

// Clear は通知を即座に空にし、保留中のタイマーを無効化する。
func (c *Channel) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++ // 停止が間に合わなかったタイマーの発火を無効化する
	c.current = nil
}

// Current は現在の通知のスナップショットを返す。
// 通知が空の場合はok=falseを返す。
func (c *Channel) Current() (model.Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return model.Notification{}, false
	}
	return *c.current, true
}
