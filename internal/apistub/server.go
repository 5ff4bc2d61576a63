// Package apistub はバックエンドAPIのインプロセス版テストダブルを提供する。
//
// 結合テストで本物のバックエンドの代わりに使う。文書化されたHTTPコントラクト
// （パス、ステータスコード、エラーボディ）を忠実に再現するが、永続化は行わず
// 状態はすべてメモリに保持する。
package apistub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/bloglist/internal/model"
)

// Server はブログAPIのテストダブル。
type Server struct {
	mu        sync.Mutex
	users     []*model.User
	passwords map[string]string // username -> password
	blogs     []*model.Blog
	secret    []byte
}

// NewServer はServerの新しいインスタンスを生成する。
func NewServer() *Server {
	return &Server{
		passwords: map[string]string{},
		secret:    []byte("stub-" + uuid.NewString()),
	}
}

// SeedUser はユーザーを登録し、登録されたユーザーを返す。
// サインアップエンドポイントの代わりにテストセットアップから呼ぶ。
func (s *Server) SeedUser(username, name, password string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &model.User{
		ID:       uuid.NewString(),
		Username: username,
		Name:     name,
		Blogs:    []string{},
	}
	s.users = append(s.users, u)
	s.passwords[username] = password
	return u
}

// SeedBlog は指定ユーザー所有のブログを直接登録する。
func (s *Server) SeedBlog(owner *model.User, title, author, url string, likes int) *model.Blog {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &model.Blog{
		ID:       uuid.NewString(),
		Title:    title,
		Author:   author,
		URL:      url,
		Likes:    likes,
		Comments: []string{},
		User: model.BlogUser{
			ID:       owner.ID,
			Username: owner.Username,
			Name:     owner.Name,
		},
	}
	s.blogs = append(s.blogs, b)
	for _, u := range s.users {
		if u.ID == owner.ID {
			u.Blogs = append(u.Blogs, b.ID)
		}
	}
	return b
}

// Router はAPIコントラクト全体を提供するHTTPルーターを返す。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/login", s.handleLogin)
	r.Get("/api/blogs", s.handleListBlogs)
	r.Post("/api/blogs", s.requireAuth(s.handleCreateBlog))
	r.Put("/api/blogs/{blogID}", s.requireAuth(s.handleUpdateBlog))
	r.Delete("/api/blogs/{blogID}", s.requireAuth(s.handleDeleteBlog))
	r.Post("/api/blogs/{blogID}/comments", s.handleAddComment)
	r.Get("/api/users", s.handleListUsers)

	return r
}

// TokenFor は指定ユーザーの有効なトークンを直接発行する。
// ログインを経由せずに認証済み状態を作るテストセットアップ用。
func (s *Server) TokenFor(u *model.User) string {
	token, err := s.issueToken(u)
	if err != nil {
		panic(fmt.Sprintf("apistub: トークン発行に失敗: %v", err))
	}
	return token
}

func (s *Server) issueToken(u *model.User) (string, error) {
	claims := jwt.MapClaims{
		"id":       u.ID,
		"username": u.Username,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// authenticate はAuthorizationヘッダーのBearerトークンを検証し、
// 発行先のユーザーIDを返す。
func (s *Server) authenticate(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", false
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	id, _ := claims["id"].(string)
	return id, id != ""
}

// requireAuth は有効なトークンのないリクエストを401で拒否する。
func (s *Server) requireAuth(next func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.authenticate(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "token missing or invalid")
			return
		}
		next(w, r, userID)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.mu.Lock()
	var user *model.User
	for _, u := range s.users {
		if u.Username == req.Username {
			user = u
			break
		}
	}
	password, hasPassword := s.passwords[req.Username]
	s.mu.Unlock()

	if user == nil || !hasPassword || password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":       user.ID,
		"username": user.Username,
		"name":     user.Name,
		"token":    token,
	})
}

func (s *Server) handleListBlogs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	blogs := make([]*model.Blog, len(s.blogs))
	for i, b := range s.blogs {
		blogs[i] = b.Clone()
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, blogs)
}

type createBlogRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

func (s *Server) handleCreateBlog(w http.ResponseWriter, r *http.Request, userID string) {
	var req createBlogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "title or url missing")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner := s.findUserLocked(userID)
	if owner == nil {
		writeError(w, http.StatusUnauthorized, "token missing or invalid")
		return
	}

	b := &model.Blog{
		ID:       uuid.NewString(),
		Title:    req.Title,
		Author:   req.Author,
		URL:      req.URL,
		Likes:    0,
		Comments: []string{},
		User: model.BlogUser{
			ID:       owner.ID,
			Username: owner.Username,
			Name:     owner.Name,
		},
	}
	s.blogs = append(s.blogs, b)
	owner.Blogs = append(owner.Blogs, b.ID)

	writeJSON(w, http.StatusCreated, b)
}

type updateBlogRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  int    `json:"likes"`
}

func (s *Server) handleUpdateBlog(w http.ResponseWriter, r *http.Request, userID string) {
	var req updateBlogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.findBlogLocked(chi.URLParam(r, "blogID"))
	if b == nil {
		writeError(w, http.StatusNotFound, "blog not found")
		return
	}

	// likesは送信値で上書きする。アトミックな加算は行わない。
	b.Title = req.Title
	b.Author = req.Author
	b.URL = req.URL
	b.Likes = req.Likes

	writeJSON(w, http.StatusOK, b)
}

type addCommentRequest struct {
	Comment string `json:"comment"`
}

// handleAddComment はコメントを追記する。コメントは匿名で、認証を要求しない。
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(req.Comment) == "" {
		writeError(w, http.StatusBadRequest, "comment missing")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.findBlogLocked(chi.URLParam(r, "blogID"))
	if b == nil {
		writeError(w, http.StatusNotFound, "blog not found")
		return
	}

	b.Comments = append(b.Comments, req.Comment)
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBlog(w http.ResponseWriter, r *http.Request, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blogID := chi.URLParam(r, "blogID")
	b := s.findBlogLocked(blogID)
	if b == nil {
		writeError(w, http.StatusNotFound, "blog not found")
		return
	}

	// 権限判定はサーバー側が最終とする
	if b.User.ID != userID {
		writeError(w, http.StatusForbidden, "only the creator can delete a blog")
		return
	}

	for i, blog := range s.blogs {
		if blog.ID == blogID {
			s.blogs = append(s.blogs[:i], s.blogs[i+1:]...)
			break
		}
	}
	if owner := s.findUserLocked(userID); owner != nil {
		for i, id := range owner.Blogs {
			if id == blogID {
				owner.Blogs = append(owner.Blogs[:i], owner.Blogs[i+1:]...)
				break
			}
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := make([]*model.User, len(s.users))
	for i, u := range s.users {
		users[i] = u.Clone()
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, users)
}

func (s *Server) findUserLocked(userID string) *model.User {
	for _, u := range s.users {
		if u.ID == userID {
			return u
		}
	}
	return nil
}

func (s *Server) findBlogLocked(blogID string) *model.Blog {
	for _, b := range s.blogs {
		if b.ID == blogID {
			return b
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
