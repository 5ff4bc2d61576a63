package app

// Command はCLIのサブコマンドを表す。
type Command string

const (
	// CommandBlogs はブログ一覧を取得して表示することを示す。
	CommandBlogs Command = "blogs"
	// CommandLogin は資格情報でログインすることを示す。
	CommandLogin Command = "login"
	// CommandLogout はセッションを破棄することを示す。
	CommandLogout Command = "logout"
	// CommandCreate は新しいブログを作成することを示す。
	CommandCreate Command = "create"
	// CommandLike はブログにいいねを付けることを示す。
	CommandLike Command = "like"
	// CommandComment はブログにコメントを追記することを示す。
	CommandComment Command = "comment"
	// CommandRemove はブログを確認付きで削除することを示す。
	CommandRemove Command = "remove"
	// CommandUsers は全ユーザーの一覧を表示することを示す。
	CommandUsers Command = "users"
	// CommandUser は1ユーザーの詳細（所有ブログ）を表示することを示す。
	CommandUser Command = "user"
	// CommandWhoami は現在のセッションのユーザーを表示することを示す。
	CommandWhoami Command = "whoami"
)

// ParseCommand はコマンドライン引数からサブコマンドと残りの引数を解析する。
// 引数が空またはサポート外のコマンドの場合はCommandBlogsを返す。
func ParseCommand(args []string) (Command, []string) {
	if len(args) == 0 {
		return CommandBlogs, nil
	}

	switch args[0] {
	case "blogs":
		return CommandBlogs, args[1:]
	case "login":
		return CommandLogin, args[1:]
	case "logout":
		return CommandLogout, args[1:]
	case "create":
		return CommandCreate, args[1:]
	case "like":
		return CommandLike, args[1:]
	case "comment":
		return CommandComment, args[1:]
	case "remove":
		return CommandRemove, args[1:]
	case "users":
		return CommandUsers, args[1:]
	case "user":
		return CommandUser, args[1:]
	case "whoami":
		return CommandWhoami, args[1:]
	default:
		return CommandBlogs, nil
	}
}
