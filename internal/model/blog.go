// Package model はドメインモデルを定義する。
package model

// Blog はブログ記事を表す。
// サーバーが採番する不透明なIDを持ち、コメントは文字列の順序付きリストとして保持する。
type Blog struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	URL      string   `json:"url"`
	Likes    int      `json:"likes"`
	Comments []string `json:"comments"`
	User     BlogUser `json:"user"`
}

// BlogUser はブログの所有者情報を表す。
// 表示用にusernameとnameが非正規化されてブログに埋め込まれる。
type BlogUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// OwnedBy はブログが指定ユーザーの所有かどうかを返す。
// 削除コントロールの表示制御に使用する。権限の最終判定はサーバー側で行われる。
func (b *Blog) OwnedBy(userID string) bool {
	return b.User.ID == userID
}

// Clone はブログの独立したコピーを返す。
// ストアのスナップショット読み取りで内部状態の共有を防ぐために使用する。
func (b *Blog) Clone() *Blog {
	c := *b
	if b.Comments != nil {
		c.Comments = make([]string, len(b.Comments))
		copy(c.Comments, b.Comments)
	}
	return &c
}

// DeleteRequest は削除確認の2段階インテントを表す。
// RequestDeleteが生成し、呼び出し側が確認を得てからConfirmDeleteを呼ぶ。
type DeleteRequest struct {
	BlogID string
	Prompt string // 確認ダイアログに表示する文言。必ず "delete" を含む。
}
