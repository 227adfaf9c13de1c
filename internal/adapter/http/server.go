package adapthttp

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"invoicegen/internal/app"
)

// Options toggles optional web behaviour.
type Options struct {
	// GoogleLoginURL is the backend SSO entry point; empty hides the link.
	GoogleLoginURL string
	// SecureCookies marks cookies Secure.
	SecureCookies bool
}

// Server is the driving HTTP adapter that renders pages from the
// application services.
type Server struct {
	sessions *app.SessionService
	invoices *app.InvoiceService
	opts     Options
	views    *views
	log      zerolog.Logger
	now      func() time.Time
}

// New creates a Server wired to the given application services.
func New(sessions *app.SessionService, invoices *app.InvoiceService, opts Options, log zerolog.Logger) (*Server, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	return &Server{
		sessions: sessions,
		invoices: invoices,
		opts:     opts,
		views:    v,
		log:      log,
		now:      time.Now,
	}, nil
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}).Methods(http.MethodGet)

	r.HandleFunc("/login", s.handleLoginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/register", s.handleRegisterPage).Methods(http.MethodGet)
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/callback", s.handleAuthCallback).Methods(http.MethodGet)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	r.Handle("/", s.guarded(s.handleDashboard)).Methods(http.MethodGet)
	r.Handle("/invoices", s.guarded(s.handleInvoices)).Methods(http.MethodGet)
	r.Handle("/invoices/new", s.guarded(s.handleEditor)).Methods(http.MethodGet)
	r.Handle("/invoices/new", s.guarded(s.handleEditorSubmit)).Methods(http.MethodPost)
	r.Handle("/invoices/{id}/edit", s.guarded(s.handleEditor)).Methods(http.MethodGet)
	r.Handle("/invoices/{id}/edit", s.guarded(s.handleEditorSubmit)).Methods(http.MethodPost)
	r.Handle("/invoices/{id}/delete", s.guarded(s.handleDeleteConfirm)).Methods(http.MethodGet)
	r.Handle("/invoices/{id}/delete", s.guarded(s.handleDelete)).Methods(http.MethodPost)
	r.Handle("/invoices/{id}/pdf", s.guarded(s.handlePDF)).Methods(http.MethodGet)

	var h http.Handler = r
	h = s.clientMiddleware(h)
	h = withNoCache(h)
	h = s.recoveryMiddleware(h)
	h = s.loggingMiddleware(h)
	h = requestIDMiddleware(h)
	return h
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "Page not found")
}
