// Package session は現在ログイン中のユーザーと資格情報を管理するストアを提供する。
//
// セッションは永続ストレージに保存され、プロセス再起動後もRestoreで復元できる。
// トークンの発行・検証はサーバーの責務であり、クライアントは消費のみ行う。
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/bloglist/internal/model"
)

// StorageKey はセッションを保存する永続ストレージのキー。
// テストセットアップはこのキーを削除して未ログイン状態を作る。
const StorageKey = "loggedBlogUser"

// AuthClient は認証に必要なAPIクライアントのインターフェース。
type AuthClient interface {
	// Login は資格情報を認証エンドポイントに送信する。
	Login(ctx context.Context, username, password string) (*model.Session, error)
	// SetToken は以後の認証済みリクエストに付与するトークンを設定する。
	SetToken(token string)
	// ClearToken はトークンを破棄する。
	ClearToken()
}

// Storage はセッション永続化に必要なキーバリューストレージのインターフェース。
// storage.Storeの部分集合として定義する。
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Notifier は通知チャネルへの書き込みに必要なインターフェース。
type Notifier interface {
	SetWithTimeout(message string, d time.Duration, kind model.NotificationKind)
}

// Store はセッションストア。
// 高々1つのアクティブセッションを保持し、すべての変更はストア経由で行われる。
type Store struct {
	client   AuthClient
	storage  Storage
	notifier Notifier
	logger   *slog.Logger
	ttl      time.Duration // 通知の表示時間

	mu      sync.RWMutex
	current model.Session
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore(
	client AuthClient,
	storage Storage,
	notifier Notifier,
	logger *slog.Logger,
	notificationTTL time.Duration,
) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:   client,
		storage:  storage,
		notifier: notifier,
		logger:   logger,
		ttl:      notificationTTL,
	}
}

// Login は資格情報でログインする。
// 成功時はセッションを保持し、トークンをAPIクライアントに設定し、
// 永続ストレージに保存する。失敗時はセッションを変更せず、
// エラー通知を設定した上で型付きエラーを返す。
func (s *Store) Login(ctx context.Context, username, password string) error {
	session, err := s.client.Login(ctx, username, password)
	if err != nil {
		s.notifyError(err)
		return err
	}

	s.mu.Lock()
	s.current = *session
	s.mu.Unlock()

	s.client.SetToken(session.Token)

	if err := s.persist(ctx, session); err != nil {
		// 永続化失敗はセッション自体を無効にしない。リロード相当で消えるだけ。
		s.logger.Warn("セッションの永続化に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("ログインしました",
		slog.String("username", session.User.Username),
	)
	return nil
}

// Logout はセッションと永続ストレージのエントリを無条件にクリアする。
// 失敗しない。ストレージ削除のエラーはログに残すのみ。
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.current = model.Session{}
	s.mu.Unlock()

	s.client.ClearToken()

	if err := s.storage.Delete(ctx, StorageKey); err != nil {
		s.logger.Warn("セッションエントリの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// Restore はプロセス起動時に永続ストレージからセッションを復元する。
// エントリが存在しない、壊れている、またはトークンの有効期限が切れている場合は
// 空のセッションのままエラーを返さない。
func (s *Store) Restore(ctx context.Context) error {
	raw, ok, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var session model.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil || !session.Active() {
		// 壊れたエントリは取り除き、未ログイン状態として扱う
		s.logger.Warn("保存されたセッションが壊れているため破棄します")
		if err := s.storage.Delete(ctx, StorageKey); err != nil {
			s.logger.Warn("壊れたセッションの削除に失敗しました",
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	if tokenExpired(session.Token) {
		s.logger.Info("保存されたトークンの有効期限が切れているため破棄します",
			slog.String("username", session.User.Username),
		)
		if err := s.storage.Delete(ctx, StorageKey); err != nil {
			s.logger.Warn("期限切れセッションの削除に失敗しました",
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	s.mu.Lock()
	s.current = session
	s.mu.Unlock()

	s.client.SetToken(session.Token)

	s.logger.Info("セッションを復元しました",
		slog.String("username", session.User.Username),
	)
	return nil
}

// Current は現在のセッションのスナップショットを返す。
func (s *Store) Current() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// persist はセッションをシリアライズして永続ストレージに保存する。
func (s *Store) persist(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.storage.Set(ctx, StorageKey, string(data))
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

// tokenExpired はトークンがJWTでexpクレームを持つ場合に期限切れかを判定する。
// JWTとしてパースできない不透明トークンは検証せずに有効として扱う
// （クライアントはトークンを消費するだけで、形式を仮定しない）。
func tokenExpired(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
