// Package security はアプリケーションのセキュリティ機能を提供する。
//
// CommentSanitizerService はコメントや通知など、他ユーザー由来の
// テキストを表示前にサニタイズする。コメントはプレーンテキストとして
// 扱う仕様のため、bluemondayの厳格ポリシーで全HTMLタグを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// CommentSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
// コメント追記のサーバー応答受領時と通知メッセージ表示時に使用される。
type CommentSanitizerService interface {
	// Sanitize は入力テキストからHTMLタグをすべて除去し、
	// 前後の空白を取り除いたプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// commentSanitizer はCommentSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type commentSanitizer struct {
	policy *bluemonday.Policy
}

// NewCommentSanitizer はCommentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはタグを一切許可しないため、script等の危険な要素は
// すべて除去される。
func NewCommentSanitizer() *commentSanitizer {
	return &commentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストをサニタイズしてプレーンテキストを返す。
func (s *commentSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
