package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open がエラーを返した: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SetAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "loggedBlogUser", `{"token":"abc"}`); err != nil {
		t.Fatalf("Set がエラーを返した: %v", err)
	}

	value, ok, err := s.Get(ctx, "loggedBlogUser")
	if err != nil {
		t.Fatalf("Get がエラーを返した: %v", err)
	}
	if !ok {
		t.Fatal("保存したキーが見つからない")
	}
	if value != `{"token":"abc"}` {
		t.Errorf("value = %s, want {\"token\":\"abc\"}", value)
	}
}

func TestStore_GetMissingKey(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("存在しないキーはエラーにならないべき: %v", err)
	}
	if ok {
		t.Error("存在しないキーで ok = true が返された")
	}
}

func TestStore_SetOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", "old"); err != nil {
		t.Fatalf("Set がエラーを返した: %v", err)
	}
	if err := s.Set(ctx, "k", "new"); err != nil {
		t.Fatalf("上書きSet がエラーを返した: %v", err)
	}

	value, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get が失敗した: ok=%v err=%v", ok, err)
	}
	if value != "new" {
		t.Errorf("value = %s, want new", value)
	}
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set がエラーを返した: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete がエラーを返した: %v", err)
	}

	_, ok, _ := s.Get(ctx, "k")
	if ok {
		t.Error("削除済みキーが残っている")
	}

	// 存在しないキーの削除はエラーにしない
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("存在しないキーの削除でエラー: %v", err)
	}
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := s.Set(ctx, key, "v"); err != nil {
			t.Fatalf("Set がエラーを返した: %v", err)
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear がエラーを返した: %v", err)
	}

	for _, key := range []string{"a", "b", "c"} {
		if _, ok, _ := s.Get(ctx, key); ok {
			t.Errorf("Clear 後にキー %s が残っている", key)
		}
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open がエラーを返した: %v", err)
	}
	if err := s1.Set(ctx, "loggedBlogUser", "persisted"); err != nil {
		t.Fatalf("Set がエラーを返した: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close がエラーを返した: %v", err)
	}

	// 再オープンしてもデータが残っている（ページリロード相当）
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("再Open がエラーを返した: %v", err)
	}
	defer s2.Close()

	value, ok, err := s2.Get(ctx, "loggedBlogUser")
	if err != nil || !ok {
		t.Fatalf("再オープン後のGet が失敗した: ok=%v err=%v", ok, err)
	}
	if value != "persisted" {
		t.Errorf("value = %s, want persisted", value)
	}
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("親ディレクトリが自動作成されるべき: %v", err)
	}
	s.Close()
}
