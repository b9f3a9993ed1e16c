// Package web is the HTTP front end: routing, the session gate and form
// handling for the task list and login/register pages.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/nhle/todo-web/internal/logging"
	"github.com/nhle/todo-web/internal/model"
	appsync "github.com/nhle/todo-web/internal/sync"
)

// Authenticator registers users and logs them in.
type Authenticator interface {
	Register(ctx context.Context, username, password string) (model.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

// Sessions resolves and destroys session tokens.
type Sessions interface {
	Require(ctx context.Context, token string) (string, error)
	Destroy(ctx context.Context, token string) error
	TTL() time.Duration
}

// TaskService performs task operations for an owner.
type TaskService interface {
	Add(ctx context.Context, owner, text string) (model.Task, error)
	Delete(ctx context.Context, owner string, id int64) error
	DeleteByText(ctx context.Context, owner, text string) error
	Toggle(ctx context.Context, owner string, id int64) error
	Search(ctx context.Context, owner, substring string) ([]model.Task, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PurgeReporter reports the outcome of the background session purge.
type PurgeReporter interface {
	Status() appsync.PurgeStatus
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Auth     Authenticator
	Sessions Sessions
	Tasks    TaskService
	Store    Pinger
	// Purger is optional; it is only set when sessions expire.
	Purger PurgeReporter
	Cookie CookieConfig
	Logger *log.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	auth     Authenticator
	sessions Sessions
	tasks    TaskService
	store    Pinger
	purger   PurgeReporter
	cookie   CookieConfig
	logger   *log.Logger
	pages    *renderer
}

// NewServer returns a Server. It parses the embedded templates.
func NewServer(deps Deps) (*Server, error) {
	if deps.Auth == nil || deps.Sessions == nil || deps.Tasks == nil {
		return nil, fmt.Errorf("web server requires auth, sessions and tasks")
	}
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}
	if deps.Cookie.Name == "" {
		deps.Cookie.Name = "todo_session"
	}
	return &Server{
		auth:     deps.Auth,
		sessions: deps.Sessions,
		tasks:    deps.Tasks,
		store:    deps.Store,
		purger:   deps.Purger,
		cookie:   deps.Cookie,
		logger:   logging.OrDiscard(deps.Logger),
		pages:    pages,
	}, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/", s.requireSession(s.handleIndex)).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/login_register", s.handleLoginRegister).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/by_netanel_bukris", s.handleAbout).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.renderError(w, http.StatusNotFound, "page not found")
	})
	return r
}

// setSessionCookie delivers token to the client.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	c := &http.Cookie{
		Name:     s.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl := s.sessions.TTL(); ttl > 0 {
		c.MaxAge = int(ttl / time.Second)
	}
	http.SetCookie(w, c)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// sessionToken returns the session cookie value, or "".
func (s *Server) sessionToken(r *http.Request) string {
	c, err := r.Cookie(s.cookie.Name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	if err := s.pages.render(w, status, page, data); err != nil {
		s.logger.Error("rendering page", "page", page, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	s.render(w, status, "error.html", errorView{Status: status, Message: message})
}

// serverError logs err and renders a generic 500 page.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	s.renderError(w, http.StatusInternalServerError, "something went wrong, please try again")
}
