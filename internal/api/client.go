// Package api はバックエンドのブログAPIを呼び出すHTTPクライアントを提供する。
//
// サーバーの実装には関与せず、文書化されたHTTPコントラクトのみに依存する。
// すべての呼び出しはcontextを受け取り、非2xx応答はmodel.APIErrorに変換して返す。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/bloglist/internal/metrics"
	"github.com/hitoshi/bloglist/internal/model"
)

// Client はブログAPIのクライアント。
// トークンが設定されている間、すべてのリクエストにBearerトークンを付与する。
// トークン未設定のリクエストは未認証のまま送信され、変更操作はサーバーに拒否される。
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	limiter    *rate.Limiter
	metrics    metrics.MetricsCollector

	mu    sync.RWMutex
	token string
}

// NewClient はClientの新しいインスタンスを生成する。
// limiterがnilの場合は送信レート制限を行わない。
// collectorがnilの場合はメトリクスを記録しない。
func NewClient(
	httpClient *http.Client,
	baseURL string,
	logger *slog.Logger,
	limiter *rate.Limiter,
	collector metrics.MetricsCollector,
) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.Noop{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
		limiter:    limiter,
		metrics:    collector,
	}
}

// SetToken は以後のリクエストに付与するトークンを設定する。
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearToken はトークンを破棄する。以後のリクエストは未認証で送信される。
func (c *Client) ClearToken() {
	c.SetToken("")
}

// currentToken は設定済みトークンを返す。未設定の場合は空文字列。
func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// loginRequest はPOST /api/loginのリクエストボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse はPOST /api/loginのレスポンスボディ。
type loginResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Token    string `json:"token"`
}

// Login は認証エンドポイントに資格情報を送信し、成功時にセッションを返す。
// 401応答はWRONG_CREDENTIALSエラーに変換される。
// 成功してもクライアントのトークンは変更しない（セッションストアが管理する）。
func (c *Client) Login(ctx context.Context, username, password string) (*model.Session, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/api/login", loginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, model.NewWrongCredentialsError()
	}
	if status < 200 || status >= 300 {
		return nil, c.statusError(status, body)
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, model.NewNetworkError(fmt.Sprintf("invalid login response: %v", err))
	}

	return &model.Session{
		User: &model.User{
			ID:       resp.ID,
			Username: resp.Username,
			Name:     resp.Name,
		},
		Token: resp.Token,
	}, nil
}

// ListBlogs はGET /api/blogsでブログ一覧を取得する。
// 並び順はサーバーが返した順序をそのまま保持する。
func (c *Client) ListBlogs(ctx context.Context) ([]*model.Blog, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/api/blogs", nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, c.statusError(status, body)
	}

	var blogs []*model.Blog
	if err := json.Unmarshal(body, &blogs); err != nil {
		return nil, model.NewNetworkError(fmt.Sprintf("invalid blog list response: %v", err))
	}
	return blogs, nil
}

// createBlogRequest はPOST /api/blogsのリクエストボディ。
type createBlogRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

// CreateBlog はPOST /api/blogsでブログを作成し、サーバー採番のIDを含む
// 作成済みブログを返す。認証トークンが必要。
func (c *Client) CreateBlog(ctx context.Context, title, author, url string) (*model.Blog, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/api/blogs", createBlogRequest{
		Title:  title,
		Author: author,
		URL:    url,
	})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, c.statusError(status, body)
	}

	var blog model.Blog
	if err := json.Unmarshal(body, &blog); err != nil {
		return nil, model.NewNetworkError(fmt.Sprintf("invalid create response: %v", err))
	}
	return &blog, nil
}

// updateBlogRequest はPUT /api/blogs/{id}のリクエストボディ。
// サーバーはアトミックな加算を行わないため、likesは送信値で上書きされる
// （last-write-wins）。
type updateBlogRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  int    `json:"likes"`
	User   string `json:"user"`
}

// UpdateBlog はPUT /api/blogs/{id}でブログ全体を更新し、更新後のブログを返す。
// いいね操作で使用され、送信するlikes値は呼び出し側が計算する。
func (c *Client) UpdateBlog(ctx context.Context, blog *model.Blog) (*model.Blog, error) {
	body, status, err := c.do(ctx, http.MethodPut, "/api/blogs/"+blog.ID, updateBlogRequest{
		Title:  blog.Title,
		Author: blog.Author,
		URL:    blog.URL,
		Likes:  blog.Likes,
		User:   blog.User.ID,
	})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, c.statusError(status, body)
	}

	var updated model.Blog
	if err := json.Unmarshal(body, &updated); err != nil {
		return nil, model.NewNetworkError(fmt.Sprintf("invalid update response: %v", err))
	}
	return &updated, nil
}

// addCommentRequest はPOST /api/blogs/{id}/commentsのリクエストボディ。
type addCommentRequest struct {
	Comment string `json:"comment"`
}

// AddComment はPOST /api/blogs/{id}/commentsでコメントを追記し、
// コメント反映後のブログを返す。
func (c *Client) AddComment(ctx context.Context, blogID, text string) (*model.Blog, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/api/blogs/"+blogID+"/comments", addCommentRequest{
		Comment: text,
	})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, c.statusError(status, body)
	}

	var updated model.Blog
	if err := json.Unmarshal(body, &updated); err != nil {
		return nil, model.NewNetworkError(fmt.Sprintf("invalid comment response: %v", err))
	}
	return &updated, nil
}

// DeleteBlog はDELETE /api/blogs/{id}でブログを削除する。
// 所有者以外のリクエストはサーバーが403で拒否し、FORBIDDENエラーになる。
func (c *Client) DeleteBlog(ctx context.Context, blogID string) error {
	body, status, err := c.do(ctx, http.MethodDelete, "/api/blogs/"+blogID, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return c.statusError(status, body)
	}
	return nil
}

// ListUsers はGET /api/usersでユーザー一覧を取得する。
func (c *Client) ListUsers(ctx context.Context) ([]*model.User, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/api/users", nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, c.statusError(status, body)
	}

	var users []*model.User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, model.NewNetworkError(fmt.Sprintf("invalid user list response: %v", err))
	}
	return users, nil
}

// do はHTTPリクエストを1回実行し、レスポンスボディとステータスコードを返す。
// トランスポートレベルの失敗のみerrorで返し、非2xxステータスの解釈は
// 呼び出し側に委ねる（ログインの401など呼び出しごとに意味が異なるため）。
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, model.NewNetworkError(err.Error())
		}
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, model.NewNetworkError(fmt.Sprintf("encode request: %v", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, model.NewNetworkError(fmt.Sprintf("build request: %v", err))
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("APIリクエストの送信に失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return nil, 0, model.NewNetworkError(err.Error())
	}
	defer resp.Body.Close()

	c.metrics.RecordHTTPStatus(resp.StatusCode)
	c.metrics.RecordRequestLatency(time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, model.NewNetworkError(fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("APIがエラーステータスを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.Int("http_status", resp.StatusCode),
		)
	}

	return body, resp.StatusCode, nil
}

// errorBody はエラー応答の標準ボディ。
type errorBody struct {
	Error string `json:"error"`
}

// statusError は非2xxステータスをmodel.APIErrorに変換する。
// ボディにエラーメッセージが含まれる場合はそれを優先して表示する。
func (c *Client) statusError(status int, body []byte) error {
	serverMsg := ""
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		serverMsg = eb.Error
	}

	var apiErr *model.APIError
	switch {
	case status == http.StatusUnauthorized:
		apiErr = model.NewTokenMissingError()
	case status == http.StatusForbidden:
		apiErr = model.NewForbiddenError("modify this blog")
	case status == http.StatusNotFound:
		apiErr = model.NewBlogNotFoundError("")
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		apiErr = model.NewValidationError("a required field")
	case status >= 500:
		apiErr = model.NewServerError(status)
	default:
		apiErr = model.NewServerError(status)
	}

	if serverMsg != "" {
		apiErr.Message = serverMsg
	}
	return apiErr
}
