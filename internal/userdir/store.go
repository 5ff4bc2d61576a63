// Package userdir は全ユーザーの一覧を保持する読み取り専用のストアを提供する。
//
// ユーザー一覧はサーバーからの取得で丸ごと置き換えられ、クライアント側での
// 変更操作は存在しない。ユーザー一覧ビューとユーザー詳細ビューの表示に使う。
package userdir

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/bloglist/internal/model"
)

// APIClient はユーザー一覧の取得に必要なAPIクライアントのインターフェース。
type APIClient interface {
	ListUsers(ctx context.Context) ([]*model.User, error)
}

// Notifier は通知チャネルへの書き込みに必要なインターフェース。
type Notifier interface {
	SetWithTimeout(message string, d time.Duration, kind model.NotificationKind)
}

// Store はユーザーディレクトリのストア。
type Store struct {
	client   APIClient
	notifier Notifier
	logger   *slog.Logger
	ttl      time.Duration

	mu    sync.RWMutex
	users []*model.User
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore(client APIClient, notifier Notifier, logger *slog.Logger, notificationTTL time.Duration) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:   client,
		notifier: notifier,
		logger:   logger,
		ttl:      notificationTTL,
	}
}

// FetchAll はローカルのユーザー一覧をサーバーの現在の一覧で置き換える。
func (s *Store) FetchAll(ctx context.Context) error {
	users, err := s.client.ListUsers(ctx)
	if err != nil {
		s.notifyError(err)
		return err
	}

	s.mu.Lock()
	s.users = users
	s.mu.Unlock()

	s.logger.Info("ユーザー一覧を取得しました",
		slog.Int("count", len(users)),
	)
	return nil
}

// Users はユーザー一覧のスナップショットを返す。
func (s *Store) Users() []*model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]*model.User, len(s.users))
	for i, u := range s.users {
		snapshot[i] = u.Clone()
	}
	return snapshot
}

// Get は指定IDのユーザーのスナップショットを返す。
// 未取得または存在しないIDの場合はok=falseを返す
// （ユーザー詳細の直接参照で一覧が未ロードの場合に相当する）。
func (s *Store) Get(userID string) (*model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == userID {
			return u.Clone(), true
		}
	}
	return nil, false
}

// notifyError はエラーを通知チャネルのメッセージに変換する。
func (s *Store) notifyError(err error) {
	if s.notifier == nil {
		return
	}
	message := err.Error()
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		message = apiErr.Message
	}
	s.notifier.SetWithTimeout(message, s.ttl, model.NotificationError)
}
