// Package blog はブログコレクションのストアを提供する。
//
// ストアはブログ一覧のインメモリ状態を単独で所有し、すべての変更操作を
// バックエンドAPIと同期する。更新は悲観的で、サーバーの確認が取れるまで
// ローカル状態を変更しない。失敗した変更操作は必ず通知チャネルに現れる。
package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/bloglist/internal/metrics"
	"github.com/hitoshi/bloglist/internal/model"
)

// APIClient はブログ操作に必要なAPIクライアントのインターフェース。
// api.Clientの部分集合として定義する。
type APIClient interface {
	ListBlogs(ctx context.Context) ([]*model.Blog, error)
	CreateBlog(ctx context.Context, title, author, url string) (*model.Blog, error)
	UpdateBlog(ctx context.Context, blog *model.Blog) (*model.Blog, error)
	AddComment(ctx context.Context, blogID, text string) (*model.Blog, error)
	DeleteBlog(ctx context.Context, blogID string) error
}

// Notifier は通知チャネルへの書き込みに必要なインターフェース。
type Notifier interface {
	SetWithTimeout(message string, d time.Duration, kind model.NotificationKind)
}

// Sanitizer はコメントテキストの表示前サニタイズに必要なインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Store はブログコレクションのストア。
// コレクションの変更はすべてストアのメソッド経由で行われ、
// ビュー層はスナップショットの読み取りとインテントの発行のみ行う。
type Store struct {
	client    APIClient
	notifier  Notifier
	sanitizer Sanitizer
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	ttl       time.Duration

	mu    sync.RWMutex
	blogs []*model.Blog
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore(
	client APIClient,
	notifier Notifier,
	sanitizer Sanitizer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	notificationTTL time.Duration,
) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.Noop{}
	}
	return &Store{
		client:    client,
		notifier:  notifier,
		sanitizer: sanitizer,
		metrics:   collector,
		logger:    logger,
		ttl:       notificationTTL,
	}
}

// FetchAll はローカルコレクション全体をサーバーの現在の一覧で置き換える。
// 並び順はサーバーが返した順序をそのまま保持する。
// 介在する変更がなければ2回連続で呼んでも結果は同一（冪等）。
func (s *Store) FetchAll(ctx context.Context) error {
	blogs, err := s.client.ListBlogs(ctx)
	if err != nil {
		s.notifyError(err)
		return err
	}

	s.mu.Lock()
	s.blogs = blogs
	s.mu.Unlock()

	s.logger.Info("ブログ一覧を取得しました",
		slog.Int("count", len(blogs)),
	)
	return nil
}

// Create は新しいブログを作成する。
// 必須フィールドが空の場合はネットワーク呼び出しを行わずに検証エラーを返す。
// 成功時はサーバー採番のIDを持つブログをコレクション末尾に追加し、
// 成功通知を設定する。失敗時はコレクションを変更しない
// （楽観的挿入は行わない。未保存データを保存済みのように見せないため）。
func (s *Store) Create(ctx context.Context, title, author, url string) (*model.Blog, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"title", title},
		{"author", author},
		{"url", url},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			err := model.NewValidationError(f.name)
			s.metrics.RecordMutationFailure("create", err.Category)
			s.notifyError(err)
			return nil, err
		}
	}

	created, err := s.client.CreateBlog(ctx, title, author, url)
	if err != nil {
		s.recordFailure("create", err)
		s.notifyError(err)
		return nil, err
	}

	s.mu.Lock()
	s.blogs = append(s.blogs, created)
	s.mu.Unlock()

	s.metrics.RecordMutationSuccess("create")
	s.notifyInfo(fmt.Sprintf("a new blog %s by %s added", created.Title, created.Author))

	s.logger.Info("ブログを作成しました",
		slog.String("blog_id", created.ID),
		slog.String("title", created.Title),
	)
	return created.Clone(), nil
}

// Like は指定ブログのいいねを1つ増やす。
// 現在のローカル値+1を送信するlast-write-wins方式のため、複数クライアントの
// 同時いいねは片方が失われうる。これは設計上許容された競合であり、
// 順序番号による調停は行わない。
// 成功時はサーバーが返したlikes値でローカル値を置き換える。
func (s *Store) Like(ctx context.Context, blogID string) error {
	s.mu.RLock()
	current := s.findLocked(blogID)
	var payload *model.Blog
	if current != nil {
		payload = current.Clone()
		payload.Likes = current.Likes + 1
	}
	s.mu.RUnlock()

	if payload == nil {
		err := model.NewBlogNotFoundError(blogID)
		s.recordFailure("like", err)
		s.notifyError(err)
		return err
	}

	updated, err := s.client.UpdateBlog(ctx, payload)
	if err != nil {
		s.recordFailure("like", err)
		s.notifyError(err)
		return err
	}

	s.mu.Lock()
	if b := s.findLocked(blogID); b != nil {
		b.Likes = updated.Likes
	}
	s.mu.Unlock()

	s.metrics.RecordMutationSuccess("like")
	return nil
}

// Comment は指定ブログにコメントを追記する。
// 空のテキストは検証エラーとして拒否する（呼び出し側は入力値を保持して
// 再試行できる）。コメントはサーバーの確認後にのみローカルに反映され、
// 表示前にサニタイズされる。
func (s *Store) Comment(ctx context.Context, blogID, text string) error {
	if strings.TrimSpace(text) == "" {
		err := model.NewValidationError("comment")
		s.recordFailure("comment", err)
		s.notifyError(err)
		return err
	}

	s.mu.RLock()
	exists := s.findLocked(blogID) != nil
	s.mu.RUnlock()

	if !exists {
		err := model.NewBlogNotFoundError(blogID)
		s.recordFailure("comment", err)
		s.notifyError(err)
		return err
	}

	updated, err := s.client.AddComment(ctx, blogID, text)
	if err != nil {
		s.recordFailure("comment", err)
		s.notifyError(err)
		return err
	}

	comments := make([]string, len(updated.Comments))
	for i, c := range updated.Comments {
		if s.sanitizer != nil {
			c = s.sanitizer.Sanitize(c)
		}
		comments[i] = c
	}

	s.mu.Lock()
	if b := s.findLocked(blogID); b != nil {
		b.Comments = comments
	}
	s.mu.Unlock()

	s.metrics.RecordMutationSuccess("comment")
	return nil
}

// RequestDelete は削除確認の第1段階として確認リクエストを生成する。
// ネットワーク呼び出しは行わない。呼び出し側はユーザーの明示的な確認を
// 得てからConfirmDeleteを呼ぶ。確認しなければブログはコレクションに残る。
func (s *Store) RequestDelete(blogID string) (*model.DeleteRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := s.findLocked(blogID)
	if b == nil {
		return nil, model.NewBlogNotFoundError(blogID)
	}

	return &model.DeleteRequest{
		BlogID: blogID,
		Prompt: fmt.Sprintf("delete blog %s by %s?", b.Title, b.Author),
	}, nil
}

// ConfirmDelete は削除確認の第2段階として削除リクエストを送信する。
// 成功時はブログをコレクションから取り除き、成功通知を設定する。
// 所有者以外による削除はサーバーが403で拒否し、その判定を最終とする
// （クライアント側の表示制御は補助にすぎない）。失敗時はブログを残す。
func (s *Store) ConfirmDelete(ctx context.Context, blogID string) error {
	s.mu.RLock()
	target := s.findLocked(blogID)
	var title, author string
	if target != nil {
		title, author = target.Title, target.Author
	}
	s.mu.RUnlock()

	if target == nil {
		err := model.NewBlogNotFoundError(blogID)
		s.recordFailure("delete", err)
		s.notifyError(err)
		return err
	}

	if err := s.client.DeleteBlog(ctx, blogID); err != nil {
		s.recordFailure("delete", err)
		s.notifyError(err)
		return err
	}

	s.mu.Lock()
	for i, b := range s.blogs {
		if b.ID == blogID {
			s.blogs = append(s.blogs[:i], s.blogs[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.metrics.RecordMutationSuccess("delete")
	s.notifyInfo(fmt.Sprintf("blog %s by %s removed", title, author))

	s.logger.Info("ブログを削除しました",
		slog.String("blog_id", blogID),
	)
	return nil
}

// Blogs はコレクション全体のスナップショットを返す。
// 返されるブログは独立したコピーで、変更してもストア状態に影響しない。
func (s *Store) Blogs() []*model.Blog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]*model.Blog, len(s.blogs))
	for i, b := range s.blogs {
		snapshot[i] = b.Clone()
	}
	return snapshot
}

// Get は指定IDのブログのスナップショットを返す。
// 見つからない場合はok=falseを返す。
func (s *Store) Get(blogID string) (*model.Blog, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := s.findLocked(blogID)
	if b == nil {
		return nil, false
	}
	return b.Clone(), true
}

// ByOwner は指定ユーザーが所有するブログのスナップショットを返す。
// ユーザー詳細ビューの表示に使用する。
func (s *Store) ByOwner(userID string) []*model.Blog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []*model.Blog
	for _, b := range s.blogs {
		if b.OwnedBy(userID) {
			owned = append(owned, b.Clone())
		}
	}
	return owned
}

// findLocked は指定IDのブログを返す。呼び出し側がロックを保持していること。
func (s *Store) findLocked(blogID string) *model.Blog {
	for _, b := range s.blogs {
		if b.ID == blogID {
			return b
		}
	}
	return nil
}

// recordFailure は失敗した変更操作をエラーカテゴリ付きでメトリクスに記録する。
func (s *Store) recordFailure(operation string, err error) {
	category := "unknown"
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		category = apiErr.Category
	}
	s.metrics.RecordMutationFailure(operation, category)
}

// notifyError はエラーを通知チャネルのエラーメッセージに変換する。
// 失敗した変更操作が通知なしに握りつぶされることはない。
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
	s.metrics.RecordNotificationSet(string(model.NotificationError))
}

// notifyInfo は成功通知を設定する。
func (s *Store) notifyInfo(message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.SetWithTimeout(message, s.ttl, model.NotificationInfo)
	s.metrics.RecordNotificationSet(string(model.NotificationInfo))
}
