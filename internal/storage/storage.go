// Package storage はクライアント側の永続キーバリューストレージを提供する。
//
// ブラウザのlocalStorageに相当する役割を持ち、セッショントークンなどの
// 小さなシリアライズ済みデータをアプリケーション定義のキーで保存する。
// 組み込みSQLite（modernc.org/sqlite、CGO不要）をバックエンドに使用し、
// プロセス再起動後もデータが残る。
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store は永続キーバリューストレージ。
// 単一プロセスからの利用を想定し、接続数を1に制限する。
type Store struct {
	db *sql.DB
}

// Open は指定パスのストレージを開く。ファイルが存在しない場合は作成する。
// 親ディレクトリも必要に応じて作成する。":memory:" を渡すとテスト用の
// インメモリストレージになる。
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("ストレージディレクトリの作成に失敗しました: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ストレージのオープンに失敗しました: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS kv(
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("ストレージの初期化に失敗しました: %w", err)
	}

	return &Store{db: db}, nil
}

// Close はストレージを閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// Get は指定キーの値を取得する。
// キーが存在しない場合はok=falseを返し、エラーにはしない。
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("キー %q の読み取りに失敗しました: %w", key, err)
	}
	return value, true, nil
}

// Set は指定キーに値を保存する。既存の値は上書きされる。
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("キー %q の保存に失敗しました: %w", key, err)
	}
	return nil
}

// Delete は指定キーを削除する。キーが存在しなくてもエラーにしない。
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("キー %q の削除に失敗しました: %w", key, err)
	}
	return nil
}

// Clear は全キーを削除する。テストセットアップでの初期化に使用する。
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv`)
	if err != nil {
		return fmt.Errorf("ストレージのクリアに失敗しました: %w", err)
	}
	return nil
}
