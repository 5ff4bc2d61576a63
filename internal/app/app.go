// Package app はCLIアプリケーションの組み立てとコマンド実行を提供する。
//
// ビュー層（標準出力への表示）はここに閉じており、状態の変更はすべて
// ストアへのインテント発行として行う。表示はコマンド実行後のストアの
// スナップショットから導出する。
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/bloglist/internal/api"
	"github.com/hitoshi/bloglist/internal/blog"
	"github.com/hitoshi/bloglist/internal/config"
	"github.com/hitoshi/bloglist/internal/logger"
	"github.com/hitoshi/bloglist/internal/metrics"
	"github.com/hitoshi/bloglist/internal/model"
	"github.com/hitoshi/bloglist/internal/notification"
	"github.com/hitoshi/bloglist/internal/security"
	"github.com/hitoshi/bloglist/internal/session"
	"github.com/hitoshi/bloglist/internal/storage"
	"github.com/hitoshi/bloglist/internal/userdir"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// App は全ストアを束ねたアプリケーション本体。
type App struct {
	cfg      *config.Config
	storage  *storage.Store
	client   *api.Client
	notifier *notification.Channel
	session  *session.Store
	blogs    *blog.Store
	users    *userdir.Store

	out io.Writer // ビュー表示先（標準出力）
	in  io.Reader // 削除確認などの対話入力元
}

// NewApp は全依存関係をワイヤリングしてAppを組み立てる。
func NewApp(cfg *config.Config, out io.Writer, in io.Reader) (*App, error) {
	// 1. 永続ストレージ
	store, err := storage.Open(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	// 2. メトリクスとセキュリティサービス
	collector := metrics.NewCollector(prometheus.NewRegistry())
	sanitizer := security.NewCommentSanitizer()

	// 3. 通知チャネル
	notifier := notification.NewChannel(sanitizer, slog.Default())

	// 4. APIクライアント
	httpClient := api.NewHTTPClient(cfg.RequestTimeout, cfg.SafeClient)
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestBurst)
	client := api.NewClient(httpClient, cfg.APIBaseURL, slog.Default(), limiter, collector)

	// 5. ストアの初期化
	sessionStore := session.NewStore(client, store, notifier, slog.Default(), cfg.NotificationTTL)
	blogStore := blog.NewStore(client, notifier, sanitizer, collector, slog.Default(), cfg.NotificationTTL)
	userStore := userdir.NewStore(client, notifier, slog.Default(), cfg.NotificationTTL)

	return &App{
		cfg:      cfg,
		storage:  store,
		client:   client,
		notifier: notifier,
		session:  sessionStore,
		blogs:    blogStore,
		users:    userStore,
		out:      out,
		in:       in,
	}, nil
}

// Close はAppが保持するリソースを解放する。
func (a *App) Close() error {
	return a.storage.Close()
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応する操作を実行する。
// argsにはos.Args[1:]を渡す。ビュー出力はwに書き込まれる。
func Run(w io.Writer, args []string) error {
	cmd, rest := ParseCommand(args)

	cfg, err := Init(nil)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	app, err := NewApp(cfg, w, os.Stdin)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Execute(context.Background(), cmd, rest)
}

// Execute はサブコマンドを1つ実行する。
// 起動のたびに永続ストレージからセッションを復元し、リロード後も
// ログイン状態が維持される挙動を再現する。実行後は通知チャネルの
// 現在のメッセージを表示する。
func (a *App) Execute(ctx context.Context, cmd Command, args []string) error {
	if err := a.session.Restore(ctx); err != nil {
		return fmt.Errorf("session restore failed: %w", err)
	}

	err := a.dispatch(ctx, cmd, args)

	// 失敗した操作も通知として表示する。通知の表示自体はエラーにしない。
	a.printNotification()

	return err
}

func (a *App) dispatch(ctx context.Context, cmd Command, args []string) error {
	switch cmd {
	case CommandLogin:
		return a.runLogin(ctx, args)
	case CommandLogout:
		a.session.Logout(ctx)
		fmt.Fprintln(a.out, "logged out")
		return nil
	case CommandBlogs:
		return a.runBlogs(ctx)
	case CommandCreate:
		return a.runCreate(ctx, args)
	case CommandLike:
		return a.runLike(ctx, args)
	case CommandComment:
		return a.runComment(ctx, args)
	case CommandRemove:
		return a.runRemove(ctx, args)
	case CommandUsers:
		return a.runUsers(ctx)
	case CommandUser:
		return a.runUser(ctx, args)
	case CommandWhoami:
		return a.runWhoami()
	default:
		return a.runBlogs(ctx)
	}
}

func (a *App) runLogin(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: login <username> <password>")
	}
	if err := a.session.Login(ctx, args[0], args[1]); err != nil {
		return err
	}

	current := a.session.Current()
	fmt.Fprintf(a.out, "%s logged in\n", current.User.Name)
	return nil
}

func (a *App) runBlogs(ctx context.Context) error {
	if err := a.blogs.FetchAll(ctx); err != nil {
		return err
	}

	current := a.session.Current()
	for _, b := range a.blogs.Blogs() {
		fmt.Fprintf(a.out, "%s  %s %s  %s  likes %d\n", b.ID, b.Title, b.Author, b.URL, b.Likes)
		// Deleteコントロールは所有者にのみ見せる。権限の最終判定はサーバー。
		if current.Active() && b.OwnedBy(current.User.ID) {
			fmt.Fprintf(a.out, "  (remove available)\n")
		}
	}
	return nil
}

func (a *App) runCreate(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: create <title> <author> <url>")
	}
	created, err := a.blogs.Create(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "created %s\n", created.ID)
	return nil
}

func (a *App) runLike(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: like <blog-id>")
	}
	if err := a.blogs.FetchAll(ctx); err != nil {
		return err
	}
	if err := a.blogs.Like(ctx, args[0]); err != nil {
		return err
	}

	b, ok := a.blogs.Get(args[0])
	if !ok {
		return model.NewBlogNotFoundError(args[0])
	}
	fmt.Fprintf(a.out, "likes %d\n", b.Likes)
	return nil
}

func (a *App) runComment(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: comment <blog-id> <text>")
	}
	if err := a.blogs.FetchAll(ctx); err != nil {
		return err
	}
	text := strings.Join(args[1:], " ")
	if err := a.blogs.Comment(ctx, args[0], text); err != nil {
		return err
	}

	b, ok := a.blogs.Get(args[0])
	if !ok {
		return model.NewBlogNotFoundError(args[0])
	}
	for _, c := range b.Comments {
		fmt.Fprintf(a.out, "- %s\n", c)
	}
	return nil
}

// runRemove は2段階の削除を実行する。
// 確認プロンプトを表示し、入力が "y" の場合のみ削除リクエストを送信する。
// 確認しなければブログはコレクションに残る。
func (a *App) runRemove(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: remove <blog-id>")
	}
	if err := a.blogs.FetchAll(ctx); err != nil {
		return err
	}

	req, err := a.blogs.RequestDelete(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s [y/N]: ", req.Prompt)
	if !a.confirm() {
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}

	return a.blogs.ConfirmDelete(ctx, req.BlogID)
}

func (a *App) runUsers(ctx context.Context) error {
	if err := a.users.FetchAll(ctx); err != nil {
		return err
	}

	for _, u := range a.users.Users() {
		fmt.Fprintf(a.out, "%s  %s  blogs created %d\n", u.ID, u.Name, len(u.Blogs))
	}
	return nil
}

// runUser はユーザー詳細（名前と所有ブログの一覧）を表示する。
// 一覧未取得のIDは「見つからない」として扱い、エラーにはしない。
func (a *App) runUser(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: user <user-id>")
	}
	if err := a.users.FetchAll(ctx); err != nil {
		return err
	}
	if err := a.blogs.FetchAll(ctx); err != nil {
		return err
	}

	u, ok := a.users.Get(args[0])
	if !ok {
		fmt.Fprintln(a.out, "user not found")
		return nil
	}

	fmt.Fprintln(a.out, u.Name)
	fmt.Fprintln(a.out, "added blogs")
	for _, b := range a.blogs.ByOwner(u.ID) {
		fmt.Fprintf(a.out, "- %s\n", b.Title)
	}
	return nil
}

func (a *App) runWhoami() error {
	current := a.session.Current()
	if !current.Active() {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s)\n", current.User.Name, current.User.Username)
	return nil
}

// confirm は対話入力から削除確認を読み取る。
func (a *App) confirm() bool {
	if a.in == nil {
		return false
	}
	scanner := bufio.NewScanner(a.in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

// printNotification は通知チャネルの現在のメッセージを表示する。
// 通知が存在しない場合は何も表示しない。
func (a *App) printNotification() {
	n, ok := a.notifier.Current()
	if !ok {
		return
	}
	if n.Kind == model.NotificationError {
		fmt.Fprintf(a.out, "error: %s\n", n.Message)
		return
	}
	fmt.Fprintln(a.out, n.Message)
}
