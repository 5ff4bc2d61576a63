package userdir

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/bloglist/internal/model"
)

type mockAPIClient struct {
	listUsersFn func(ctx context.Context) ([]*model.User, error)
}

func (m *mockAPIClient) ListUsers(ctx context.Context) ([]*model.User, error) {
	return m.listUsersFn(ctx)
}

type mockNotifier struct {
	message string
	kind    model.NotificationKind
	count   int
}

func (m *mockNotifier) SetWithTimeout(message string, d time.Duration, kind model.NotificationKind) {
	m.message = message
	m.kind = kind
	m.count++
}

func testUsers() []*model.User {
	return []*model.User{
		{ID: "u1", Username: "siva", Name: "sivakumar", Blogs: []string{"b1", "b2"}},
		{ID: "u2", Username: "root", Name: "admin", Blogs: []string{}},
	}
}

func TestStore_FetchAll_ReplacesDirectory(t *testing.T) {
	client := &mockAPIClient{
		listUsersFn: func(ctx context.Context) ([]*model.User, error) {
			return testUsers(), nil
		},
	}
	s := NewStore(client, &mockNotifier{}, nil, 5*time.Second)

	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll がエラーを返した: %v", err)
	}

	users := s.Users()
	if len(users) != 2 {
		t.Fatalf("ユーザー数 = %d, want 2", len(users))
	}
	if users[0].Username != "siva" || len(users[0].Blogs) != 2 {
		t.Errorf("users[0] = %+v", users[0])
	}
}

func TestStore_FetchAll_FailureSetsNotification(t *testing.T) {
	client := &mockAPIClient{
		listUsersFn: func(ctx context.Context) ([]*model.User, error) {
			return nil, model.NewNetworkError("connection refused")
		},
	}
	notifier := &mockNotifier{}
	s := NewStore(client, notifier, nil, 5*time.Second)

	if err := s.FetchAll(context.Background()); err == nil {
		t.Fatal("取得失敗でエラーが返されるべき")
	}
	if notifier.count != 1 || notifier.kind != model.NotificationError {
		t.Errorf("エラー通知が設定されるべき: count=%d kind=%v", notifier.count, notifier.kind)
	}
	if len(s.Users()) != 0 {
		t.Error("取得失敗時に一覧が変更された")
	}
}

func TestStore_Get(t *testing.T) {
	client := &mockAPIClient{
		listUsersFn: func(ctx context.Context) ([]*model.User, error) {
			return testUsers(), nil
		},
	}
	s := NewStore(client, &mockNotifier{}, nil, 5*time.Second)
	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll がエラーを返した: %v", err)
	}

	u, ok := s.Get("u2")
	if !ok || u.Username != "root" {
		t.Errorf("Get(u2) = %+v, %v", u, ok)
	}

	if _, ok := s.Get("missing"); ok {
		t.Error("存在しないIDでok=trueが返された")
	}
}

func TestStore_Get_BeforeFetchIsAbsent(t *testing.T) {
	// 一覧未ロードの状態でのユーザー詳細参照は「未発見」として扱う
	s := NewStore(&mockAPIClient{}, &mockNotifier{}, nil, 5*time.Second)

	if _, ok := s.Get("u1"); ok {
		t.Error("未ロード状態でok=trueが返された")
	}
}

func TestStore_Users_ReturnsIndependentCopies(t *testing.T) {
	client := &mockAPIClient{
		listUsersFn: func(ctx context.Context) ([]*model.User, error) {
			return testUsers(), nil
		},
	}
	s := NewStore(client, &mockNotifier{}, nil, 5*time.Second)
	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll がエラーを返した: %v", err)
	}

	snapshot := s.Users()
	snapshot[0].Name = "mutated"
	snapshot[0].Blogs[0] = "mutated"

	u, _ := s.Get("u1")
	if u.Name != "sivakumar" || u.Blogs[0] != "b1" {
		t.Error("スナップショットの変更がストア状態に影響した")
	}
}
