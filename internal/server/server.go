package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bookshelf/internal/app"
	"bookshelf/internal/ratelimit"
	"bookshelf/internal/util"
	"bookshelf/pkg/domain"
)

const maxBodyBytes = 1 << 20

const (
	loginAuthPath = "/login/auth"
	shelfPath     = "/books/shelf"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                     *app.App
	CookieName              string
	CookieSecure            bool
	SessionTTL              time.Duration
	RedisAddr               string
	RedisPassword           string
	LoginRateLimitPerMinute int
	TrustedProxies          *util.TrustedProxies
}

// Server exposes the shelf and login endpoints behind the access gate.
type Server struct {
	app          *app.App
	mux          *http.ServeMux
	cookieName   string
	cookieSecure bool
	sessionTTL   time.Duration
	loginLimiter *ratelimit.FixedWindowLimiter
	trusted      *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		cookieName = "shelf_session"
	}
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 10
	}
	var (
		loginLimiter *ratelimit.FixedWindowLimiter
		err          error
	)
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "shelf:ratelimit:login", loginLimit, time.Minute)
	} else {
		loginLimiter, err = ratelimit.NewMemoryFixedWindowLimiter(loginLimit, time.Minute)
	}
	if err != nil {
		return nil, fmt.Errorf("init login limiter: %w", err)
	}
	s := &Server{
		app:          cfg.App,
		mux:          http.NewServeMux(),
		cookieName:   cookieName,
		cookieSecure: cfg.CookieSecure,
		sessionTTL:   cfg.SessionTTL,
		loginLimiter: loginLimiter,
		trusted:      cfg.TrustedProxies,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("shelf", util.WithSecurityHeaders(s.gate(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc(loginPathPrefix, s.handleLoginPage)
	s.mux.HandleFunc(loginAuthPath, s.handleLoginAuth)

	s.mux.HandleFunc(shelfPath, s.handleShelf)
	s.mux.HandleFunc("/books/save", s.handleSaveBook)
	s.mux.HandleFunc("/books/remove", s.handleRemoveBook)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, loginPageResponse{
		Action: loginAuthPath,
		Failed: r.URL.Query().Has("error"),
	})
}

func (s *Server) handleLoginAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "login", "rate_limited")
		return
	}
	var req loginRequest
	if err := decodeInput(w, r, &req); err != nil {
		s.audit(r, "login", "rejected", "reason", "invalid_body")
		http.Redirect(w, r, loginPathPrefix+"?error", http.StatusFound)
		return
	}
	token, err := s.app.Login(req.Username, req.Password)
	if err != nil {
		attrs := []any{"reason", "invalid_credentials"}
		if errors.Is(err, app.ErrCredentialsRequired) {
			attrs = []any{"reason", "missing_credentials"}
		} else if !errors.Is(err, app.ErrInvalidCredentials) {
			slog.Error("login failed", "err", err)
			attrs = []any{"reason", "internal"}
		}
		s.audit(r, "login", "failure", attrs...)
		http.Redirect(w, r, loginPathPrefix+"?error", http.StatusFound)
		return
	}
	s.setSessionCookie(w, token)
	s.audit(r, "login", "success")
	http.Redirect(w, r, shelfPath, http.StatusFound)
}

func (s *Server) handleShelf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	books, err := s.app.ListBooks()
	if err != nil {
		writeShelfError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": books,
		"count": len(books),
	})
}

func (s *Server) handleSaveBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req bookRequest
	if err := decodeInput(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	book, err := s.app.AddBook(domain.Book{Author: req.Author, Title: req.Title, Size: req.Size})
	if err != nil {
		writeShelfError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleRemoveBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req removeRequest
	if err := decodeInput(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	removed, err := s.app.RemoveBook(req.ID)
	if err != nil {
		writeShelfError(w, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	cookie := &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.sessionTTL > 0 {
		cookie.MaxAge = int(s.sessionTTL / time.Second)
	}
	http.SetCookie(w, cookie)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

type loginPageResponse struct {
	Action string `json:"action"`
	Failed bool   `json:"failed"`
}

// formDecoder is implemented by request types that also accept url-encoded forms.
type formDecoder interface {
	decodeForm(url.Values) error
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (l *loginRequest) decodeForm(v url.Values) error {
	l.Username = v.Get("username")
	l.Password = v.Get("password")
	return nil
}

type bookRequest struct {
	Author string `json:"author"`
	Title  string `json:"title"`
	Size   int    `json:"size"`
}

func (b *bookRequest) decodeForm(v url.Values) error {
	b.Author = v.Get("author")
	b.Title = v.Get("title")
	if raw := strings.TrimSpace(v.Get("size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return errors.New("size must be an integer")
		}
		b.Size = size
	}
	return nil
}

type removeRequest struct {
	ID string `json:"id"`
}

func (rr *removeRequest) decodeForm(v url.Values) error {
	rr.ID = v.Get("id")
	return nil
}

// decodeInput reads a JSON body when the request says so and a url-encoded form otherwise.
func decodeInput(w http.ResponseWriter, r *http.Request, dst formDecoder) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return errors.New("invalid request body")
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return errors.New("invalid form body")
	}
	return dst.decodeForm(r.PostForm)
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trusted),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(limiter.Window()/time.Second)))
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func writeShelfError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrBookFieldsRequired),
		errors.Is(err, app.ErrInvalidSize),
		errors.Is(err, app.ErrBookIDRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("shelf operation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
