// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"net/http"
	"strings"

	"invoicegen/internal/domain"
)

type loginForm struct {
	Email     string
	Next      string
	GoogleURL string
}

func (s *Server) loginPage(r *http.Request, form loginForm, errMsg string) page {
	form.GoogleURL = s.opts.GoogleLoginURL
	p := page{Title: "Sign in", Error: errMsg, Data: form}
	if r.URL.Query().Get("expired") == "1" {
		p.Notice = "Your session has expired. Please sign in again."
	}
	return p
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	form := loginForm{Next: safeNext(r.URL.Query().Get("next"))}
	s.render(w, r, http.StatusOK, "login", s.loginPage(r, form, ""))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "invalid request")
		return
	}
	form := loginForm{
		Email: strings.TrimSpace(r.PostForm.Get("email")),
		Next:  safeNext(r.PostForm.Get("next")),
	}
	clientID := clientIDFrom(r.Context())

	err := s.sessions.Authenticate(r.Context(), clientID, form.Email, r.PostForm.Get("password"))
	if err != nil {
		s.log.Info().Err(err).Msg("login failed")
		s.render(w, r, http.StatusUnauthorized, "login", s.loginPage(r, form, domain.Detail(err, "Login failed")))
		return
	}
	redirectAfterPost(w, r, form.Next)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register", page{Title: "Register", Data: domain.NewUser{}})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "invalid request")
		return
	}
	u := domain.NewUser{
		Email:       strings.TrimSpace(r.PostForm.Get("email")),
		Password:    r.PostForm.Get("password"),
		FullName:    strings.TrimSpace(r.PostForm.Get("full_name")),
		CompanyName: strings.TrimSpace(r.PostForm.Get("company_name")),
	}
	clientID := clientIDFrom(r.Context())

	if err := s.sessions.Register(r.Context(), clientID, u); err != nil {
		s.log.Info().Err(err).Msg("registration failed")
		u.Password = ""
		s.render(w, r, http.StatusBadRequest, "register", page{
			Title: "Register",
			Error: domain.Detail(err, "Registration failed"),
			Data:  u,
		})
		return
	}
	redirectAfterPost(w, r, "/")
}

// handleAuthCallback finishes the backend's SSO flow, which redirects here
// with the issued access token.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err := s.sessions.Login(r.Context(), clientIDFrom(r.Context()), token); err != nil {
		s.log.Warn().Err(err).Msg("sso callback login")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(r.Context(), clientIDFrom(r.Context())); err != nil {
		s.log.Error().Err(err).Msg("logout")
	}
	redirectAfterPost(w, r, "/login")
}
