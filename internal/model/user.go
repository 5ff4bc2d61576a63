// Package model はドメインモデルを定義する。
package model

// User はサービス利用ユーザーを表す。
// サインアップ時にサーバー側で作成され、クライアントは読み取りのみ行う。
// Blogsは所有ブログIDの順序付きリスト。
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Blogs    []string `json:"blogs"`
}

// Clone はUserの独立したコピーを返す。Blogsスライスも複製する。
func (u *User) Clone() *User {
	c := *u
	c.Blogs = make([]string, len(u.Blogs))
	copy(c.Blogs, u.Blogs)
	return &c
}

// Session は現在ログイン中のユーザーと資格情報を表す。
// クライアントプロセスごとに高々1つ存在する。
// 不変条件: Tokenが存在する ⇔ Userが存在する。
type Session struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// Active はセッションが認証済みかどうかを返す。
func (s *Session) Active() bool {
	return s != nil && s.User != nil && s.Token != ""
}
