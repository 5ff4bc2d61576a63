// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 通知チャネルに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ（通知チャネルにそのまま表示される）
	Category string // カテゴリ: auth, validation, network, authorization, blog
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeWrongCredentials = "WRONG_CREDENTIALS"
	ErrCodeTokenMissing     = "TOKEN_MISSING"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeNetwork          = "NETWORK_FAILED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeBlogNotFound     = "BLOG_NOT_FOUND"
	ErrCodeServerError      = "SERVER_ERROR"
)

// NewWrongCredentialsError はログイン失敗エラーを生成する。
// Messageはテストスイートが検証する文言のため変更してはならない。
func NewWrongCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeWrongCredentials,
		Message:  "wrong username or password",
		Category: "auth",
		Action:   "check your username and password and try again",
	}
}

// NewTokenMissingError は未認証のまま変更操作を試みた場合のエラーを生成する。
func NewTokenMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenMissing,
		Message:  "token missing or invalid",
		Category: "auth",
		Action:   "log in before creating, liking, commenting or deleting blogs",
	}
}

// NewValidationError は必須フィールド欠落エラーを生成する。
func NewValidationError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("%s is required", field),
		Category: "validation",
		Action:   "fill in the missing field and submit again",
	}
}

// NewNetworkError はリクエストが完了しなかった場合のエラーを生成する。
func NewNetworkError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeNetwork,
		Message:  fmt.Sprintf("request failed: %s", reason),
		Category: "network",
		Action:   "check the server address and your connection, then retry",
	}
}

// NewForbiddenError は権限のない操作（他人のブログ削除など）のエラーを生成する。
// サーバー側の403応答を正とし、クライアント側の表示制御はあくまで補助とする。
func NewForbiddenError(action string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("not allowed to %s", action),
		Category: "authorization",
		Action:   "only the owner of a blog can perform this operation",
	}
}

// NewBlogNotFoundError はブログ未検出エラーを生成する。
// サーバー側で既に削除されている場合にも返される。
// blogIDが不明な場合（404応答からの変換など）は空文字列を渡してよい。
func NewBlogNotFoundError(blogID string) *APIError {
	message := "blog not found"
	if blogID != "" {
		message = fmt.Sprintf("blog not found: %s", blogID)
	}
	return &APIError{
		Code:     ErrCodeBlogNotFound,
		Message:  message,
		Category: "blog",
		Action:   "refresh the blog list and try again",
	}
}

// NewServerError はサーバー側の5xx応答エラーを生成する。
func NewServerError(status int) *APIError {
	return &APIError{
		Code:     ErrCodeServerError,
		Message:  fmt.Sprintf("server returned status %d", status),
		Category: "network",
		Action:   "wait a moment and retry the operation",
	}
}
