package adapthttp

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"invoicegen/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	brandName       = "InvoiceGen"
	fallbackCompany = "My Company"
)

var pageNames = []string{
	"login", "register", "loading", "dashboard", "invoices",
	"confirm_delete", "editor", "error",
}

type views struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"money": func(v any) string {
		switch n := v.(type) {
		case decimal.Decimal:
			return "$" + n.StringFixed(2)
		case float64:
			return "$" + decimal.NewFromFloat(n).StringFixed(2)
		}
		return fmt.Sprint(v)
	},
	"date": domain.DateOnly,
	"num": func(f float64) string {
		return strconv.FormatFloat(f, 'f', -1, 64)
	},
	"amount": func(it domain.LineItem) string {
		return "$" + it.Amount().StringFixed(2)
	},
	"title": title,
}

// title upper-cases the first rune of s.
func title(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func loadViews() (*views, error) {
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	v := &views{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

type navItem struct {
	Label  string
	Href   string
	Active bool
}

func navActive(path, href string) bool {
	return path == href || (href != "/" && strings.HasPrefix(path, href))
}

func navItems(path string) []navItem {
	items := []navItem{
		{Label: "Dashboard", Href: "/"},
		{Label: "Invoices", Href: "/invoices"},
	}
	for i := range items {
		items[i].Active = navActive(path, items[i].Href)
	}
	return items
}

// page is the data every template receives. Shell renders the signed-in
// sidebar and footer around the content.
type page struct {
	Title   string
	Brand   string
	Shell   bool
	Nav     []navItem
	User    *domain.User
	Company string
	Error   string
	Notice  string
	Data    any
}

func (s *Server) shell(r *http.Request, title string, data any) page {
	sess := sessionFrom(r.Context())
	p := page{
		Title:   title,
		Shell:   true,
		Nav:     navItems(r.URL.Path),
		User:    sess.User,
		Company: fallbackCompany,
		Data:    data,
	}
	if sess.User != nil && sess.User.CompanyName != "" {
		p.Company = sess.User.CompanyName
	}
	return p
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	t, ok := s.views.pages[name]
	if !ok {
		s.log.Error().Str("template", name).Msg("unknown template")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	p.Brand = brandName

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		s.log.Error().Err(err).Str("template", name).Str("request_id", requestIDFrom(r.Context())).Msg("render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	p := page{Title: http.StatusText(status), Error: msg}
	if sess := sessionFrom(r.Context()); sess.Authenticated() {
		p = s.shell(r, http.StatusText(status), nil)
		p.Error = msg
	}
	s.render(w, r, status, "error", p)
}
