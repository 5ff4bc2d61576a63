// Package model はドメインモデルを定義する。
package model

// NotificationKind は通知の種別を表す。
type NotificationKind string

const (
	// NotificationInfo は成功・情報通知。
	NotificationInfo NotificationKind = "info"
	// NotificationError はエラー通知。
	NotificationError NotificationKind = "error"
)

// Notification はユーザー向けの一時的なステータスメッセージを表す。
// 寿命は有限で、新しい通知に上書きされない限り一定時間後に自動クリアされる。
type Notification struct {
	Message string
	Kind    NotificationKind
}
