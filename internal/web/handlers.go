package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/todo-web/internal/auth"
	appsync "github.com/nhle/todo-web/internal/sync"
	"github.com/nhle/todo-web/internal/tasks"
)

// handleIndex applies the posted action, if any, then renders the owner's
// tasks filtered by the search field.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := usernameFrom(ctx)
	status := http.StatusOK
	view := indexView{Username: owner}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			s.renderError(w, http.StatusBadRequest, "malformed form")
			return
		}

		var err error
		switch r.PostFormValue("action") {
		case "add":
			_, err = s.tasks.Add(ctx, owner, r.PostFormValue("task"))
		case "del":
			// A posted task text takes precedence over task_id.
			if text := r.PostFormValue("task"); text != "" {
				err = s.tasks.DeleteByText(ctx, owner, text)
			} else if raw := r.PostFormValue("task_id"); raw != "" {
				var id int64
				if id, err = parseTaskID(raw); err == nil {
					err = s.tasks.Delete(ctx, owner, id)
				}
			}
		case "toggle":
			if raw := r.PostFormValue("task_id"); raw != "" {
				var id int64
				if id, err = parseTaskID(raw); err == nil {
					err = s.tasks.Toggle(ctx, owner, id)
				}
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, tasks.ErrEmptyTask), errors.Is(err, errBadTaskID):
			status = http.StatusBadRequest
			view.Error = err.Error()
		default:
			s.serverError(w, r, err)
			return
		}
	}

	view.Query = r.FormValue("search")
	list, err := s.tasks.Search(ctx, owner, view.Query)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	view.Tasks = list

	s.render(w, status, "index.html", view)
}

var errBadTaskID = errors.New("task_id must be an integer")

func parseTaskID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errBadTaskID
	}
	return id, nil
}

// handleLoginRegister shows the login and registration forms and processes
// their submissions.
func (s *Server) handleLoginRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, http.StatusOK, "login_register.html", loginView{
			Registered: r.URL.Query().Get("registered") == "1",
		})
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, "malformed form")
		return
	}

	ctx := r.Context()
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	view := loginView{Username: strings.TrimSpace(username)}

	switch r.PostFormValue("action") {
	case "login":
		token, err := s.auth.Login(ctx, username, password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			view.Error = err.Error()
			s.render(w, http.StatusUnauthorized, "login_register.html", view)
			return
		}
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.setSessionCookie(w, token)
		http.Redirect(w, r, "/", http.StatusSeeOther)

	case "register":
		_, err := s.auth.Register(ctx, username, password)
		switch {
		case err == nil:
			http.Redirect(w, r, "/login_register?registered=1", http.StatusSeeOther)
		case errors.Is(err, auth.ErrDuplicateUsername):
			view.Error = err.Error()
			s.render(w, http.StatusConflict, "login_register.html", view)
		case errors.Is(err, auth.ErrMissingCredentials), errors.Is(err, auth.ErrPasswordTooLong):
			view.Error = err.Error()
			s.render(w, http.StatusBadRequest, "login_register.html", view)
		default:
			s.serverError(w, r, err)
		}

	default:
		view.Error = "unknown action"
		s.render(w, http.StatusBadRequest, "login_register.html", view)
	}
}

// handleLogout destroys the session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(r.Context(), s.sessionToken(r)); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login_register", http.StatusSeeOther)
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "about.html", nil)
}

// handleHealth reports "ok" when the store answers a ping and the last
// session purge, if any, succeeded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Error("health check failed", "err", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	body := "ok"
	if s.purger != nil {
		st := s.purger.Status()
		if st.State == appsync.PurgeError {
			s.logger.Error("health check failed", "err", st.Error)
			http.Error(w, "session purge failing", http.StatusServiceUnavailable)
			return
		}
		if !st.LastPurge.IsZero() {
			body += fmt.Sprintf("\npurge: last=%s removed=%d", st.LastPurge.UTC().Format(time.RFC3339), st.Removed)
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(body))
}
