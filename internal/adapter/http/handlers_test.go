package adapthttp_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"invoicegen/internal/adapter/backend"
	adapthttp "invoicegen/internal/adapter/http"
	"invoicegen/internal/adapter/memory"
	"invoicegen/internal/app"
	"invoicegen/internal/domain"
)

// ---------------------------------------------------------------------------
// Fake invoicing backend
// ---------------------------------------------------------------------------

const validToken = "valid-token"

type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	auth     []string
	invoices map[string]domain.Invoice
	created  []map[string]any
	// listStatus overrides the GET /invoices/ response status when set.
	listStatus int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{invoices: make(map[string]domain.Invoice)}
}

func (f *fakeBackend) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
}

func (f *fakeBackend) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeBackend) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.auth = nil
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+validToken {
		reply(w, http.StatusUnauthorized, map[string]any{"detail": "Could not validate credentials"})
		return false
	}
	return true
}

func (f *fakeBackend) handler() http.Handler {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.record(r)
			next.ServeHTTP(w, r)
		})
	})

	r.HandleFunc("/auth/access-token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("password") != "secret" {
			reply(w, http.StatusBadRequest, map[string]any{"detail": "Incorrect email or password"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"access_token": validToken, "token_type": "bearer"})
	}).Methods(http.MethodPost)

	r.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		var u map[string]any
		_ = json.NewDecoder(r.Body).Decode(&u)
		if u["email"] == "taken@example.com" {
			reply(w, http.StatusBadRequest, map[string]any{"detail": "The user with this email already exists in the system."})
			return
		}
		reply(w, http.StatusOK, map[string]any{"id": "u2", "email": u["email"], "full_name": u["full_name"]})
	}).Methods(http.MethodPost)

	r.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		reply(w, http.StatusOK, map[string]any{
			"id": "u1", "email": "ada@example.com", "full_name": "Ada", "company_name": "Acme Ltd",
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/invoices/", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		f.mu.Lock()
		status := f.listStatus
		items := make([]domain.Invoice, 0, len(f.invoices))
		for _, inv := range f.invoices {
			items = append(items, inv)
		}
		f.mu.Unlock()
		if status != 0 {
			reply(w, status, map[string]any{"detail": "boom"})
			return
		}
		reply(w, http.StatusOK, items)
	}).Methods(http.MethodGet)

	r.HandleFunc("/invoices/", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.created = append(f.created, body)
		f.mu.Unlock()
		body["id"] = "new-1"
		reply(w, http.StatusOK, body)
	}).Methods(http.MethodPost)

	r.HandleFunc("/invoices/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		id := mux.Vars(r)["id"]
		f.mu.Lock()
		inv, ok := f.invoices[id]
		if ok && r.Method == http.MethodDelete {
			delete(f.invoices, id)
		}
		f.mu.Unlock()
		if !ok {
			reply(w, http.StatusNotFound, map[string]any{"detail": "Invoice not found"})
			return
		}
		reply(w, http.StatusOK, inv)
	}).Methods(http.MethodGet, http.MethodDelete)

	r.HandleFunc("/invoices/{id}/pdf", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.4 fake")
	}).Methods(http.MethodGet)

	return r
}

// ---------------------------------------------------------------------------
// Test-server helper
// ---------------------------------------------------------------------------

type testEnv struct {
	backend *fakeBackend
	web     *httptest.Server
	client  *http.Client
}

func newTestServer(t *testing.T, fb *fakeBackend) *testEnv {
	t.Helper()
	if fb == nil {
		fb = newFakeBackend()
	}
	api := httptest.NewServer(fb.handler())
	t.Cleanup(api.Close)

	log := zerolog.Nop()
	store := memory.New()
	gw := backend.New(backend.Config{BaseURL: api.URL}, store, log)
	sessions := app.NewSessionService(gw, store, time.Hour, log)
	invoices := app.NewInvoiceService(gw, memory.NewCache(), log)
	sessions.Subscribe(invoices.OnSession)

	srv, err := adapthttp.New(sessions, invoices, adapthttp.Options{GoogleLoginURL: gw.GoogleLoginURL()}, log)
	if err != nil {
		t.Fatalf("adapthttp.New: %v", err)
	}
	web := httptest.NewServer(srv.Handler())
	t.Cleanup(web.Close)

	jar, _ := cookiejar.New(nil)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{backend: fb, web: web, client: client}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.web.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.web.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

// signIn completes the SSO callback with a token the fake backend accepts.
func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	resp, _ := e.get(t, "/auth/callback?token="+validToken)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("sign in: got %d -> %s", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func expectRedirect(t *testing.T, resp *http.Response, status int, location string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("expected %d, got %d", status, resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	env := newTestServer(t, nil)

	resp, body := env.get(t, "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, `"ok":true`) {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestGuardRedirectsToLogin(t *testing.T) {
	env := newTestServer(t, nil)

	for _, path := range []string{"/", "/invoices", "/invoices/new", "/invoices/i1/edit", "/invoices/i1/pdf"} {
		resp, _ := env.get(t, path)
		want := "/login"
		if path != "/" {
			want = "/login?next=" + url.QueryEscape(path)
		}
		expectRedirect(t, resp, http.StatusFound, want)
	}
	if n := len(env.backend.calls); n != 0 {
		t.Errorf("expected no backend calls without a token, got %v", env.backend.calls)
	}
}

func TestClientCookie(t *testing.T) {
	env := newTestServer(t, nil)

	resp, _ := env.get(t, "/login")
	var found *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "client" {
			found = c
		}
	}
	if found == nil || !found.HttpOnly || found.Value == "" {
		t.Fatalf("expected HttpOnly client cookie, got %+v", found)
	}

	// An established client keeps its id.
	resp, _ = env.get(t, "/login")
	for _, c := range resp.Cookies() {
		if c.Name == "client" {
			t.Errorf("expected no new client cookie, got %q", c.Value)
		}
	}
}

func TestAuthCallback(t *testing.T) {
	t.Run("with token", func(t *testing.T) {
		env := newTestServer(t, nil)
		env.signIn(t)

		if n := env.backend.count("GET /users/me"); n != 1 {
			t.Fatalf("expected exactly one user fetch, got %d", n)
		}

		resp, body := env.get(t, "/")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(body, "Welcome back, Ada!") {
			t.Errorf("expected greeting, got %s", body)
		}
		if !strings.Contains(body, "Acme Ltd") || !strings.Contains(body, "ada@example.com") {
			t.Errorf("expected company and email in footer")
		}
	})

	t.Run("without token", func(t *testing.T) {
		env := newTestServer(t, nil)
		resp, _ := env.get(t, "/auth/callback")
		expectRedirect(t, resp, http.StatusFound, "/login")
		if n := len(env.backend.calls); n != 0 {
			t.Errorf("expected no login, got calls %v", env.backend.calls)
		}
	})
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		next       string
		wantStatus int
		wantLoc    string
		wantBody   string
	}{
		{"bad credentials", "wrong", "", http.StatusUnauthorized, "", "Incorrect email or password"},
		{"success", "secret", "", http.StatusSeeOther, "/", ""},
		{"back to original page", "secret", "/invoices", http.StatusSeeOther, "/invoices", ""},
		{"foreign next ignored", "secret", "//evil.example", http.StatusSeeOther, "/", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestServer(t, nil)
			resp, body := env.post(t, "/login", url.Values{
				"email":    {"ada@example.com"},
				"password": {tc.password},
				"next":     {tc.next},
			})
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, resp.StatusCode)
			}
			if tc.wantLoc != "" && resp.Header.Get("Location") != tc.wantLoc {
				t.Errorf("expected redirect to %q, got %q", tc.wantLoc, resp.Header.Get("Location"))
			}
			if tc.wantBody != "" && !strings.Contains(body, tc.wantBody) {
				t.Errorf("expected %q in body", tc.wantBody)
			}
		})
	}
}

func TestLoginPage(t *testing.T) {
	env := newTestServer(t, nil)

	_, body := env.get(t, "/login?next=%2Finvoices&expired=1")
	if !strings.Contains(body, `name="next" value="/invoices"`) {
		t.Errorf("expected next carried in form: %s", body)
	}
	if !strings.Contains(body, "session has expired") {
		t.Errorf("expected expiry notice")
	}
	if !strings.Contains(body, "Sign in with Google") || !strings.Contains(body, "/auth/google/login") {
		t.Errorf("expected SSO link")
	}
}

func TestRegister(t *testing.T) {
	env := newTestServer(t, nil)

	resp, body := env.post(t, "/register", url.Values{
		"email": {"taken@example.com"}, "password": {"secret"}, "full_name": {"Ada"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "The user with this email already exists in the system.") {
		t.Errorf("expected server detail, got %s", body)
	}

	resp, _ = env.post(t, "/register", url.Values{
		"email": {"new@example.com"}, "password": {"secret"}, "full_name": {"Ada"}, "company_name": {"Acme"},
	})
	expectRedirect(t, resp, http.StatusSeeOther, "/")
	if env.backend.count("POST /auth/access-token") != 1 {
		t.Errorf("expected login after registration, got %v", env.backend.calls)
	}
}

func TestLogout(t *testing.T) {
	env := newTestServer(t, nil)
	env.signIn(t)

	resp, _ := env.post(t, "/logout", nil)
	expectRedirect(t, resp, http.StatusSeeOther, "/login")

	resp, _ = env.get(t, "/invoices")
	expectRedirect(t, resp, http.StatusFound, "/login?next=%2Finvoices")
}

func TestInvoicesList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		env := newTestServer(t, nil)
		env.signIn(t)
		_, body := env.get(t, "/invoices")
		if !strings.Contains(body, "No invoices found. Create one to get started.") {
			t.Errorf("expected empty message, got %s", body)
		}
	})

	t.Run("rows", func(t *testing.T) {
		fb := newFakeBackend()
		fb.invoices["i1"] = domain.Invoice{
			ID: "i1", InvoiceNumber: "INV-0001", ClientName: "Acme", Date: "2026-02-08T00:00:00",
			Status: domain.StatusSent, TotalAmount: 30,
		}
		env := newTestServer(t, fb)
		env.signIn(t)

		resp, body := env.get(t, "/invoices")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		for _, want := range []string{"INV-0001", "Acme", "2026-02-08", "$30.00", `href="/invoices/i1/pdf" target="_blank"`, `href="/invoices/i1/edit"`} {
			if !strings.Contains(body, want) {
				t.Errorf("expected %q in body", want)
			}
		}
		if strings.Contains(body, "T00:00:00") {
			t.Error("expected date-only rendering")
		}

		env.get(t, "/invoices")
		if n := env.backend.count("GET /invoices/"); n != 1 {
			t.Errorf("expected cached list, got %d fetches", n)
		}
	})

	t.Run("failure", func(t *testing.T) {
		fb := newFakeBackend()
		fb.listStatus = http.StatusInternalServerError
		env := newTestServer(t, fb)
		env.signIn(t)
		resp, body := env.get(t, "/invoices")
		if resp.StatusCode != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", resp.StatusCode)
		}
		if !strings.Contains(body, "Error loading invoices") {
			t.Errorf("expected error message, got %s", body)
		}
	})
}

func TestExpiredTokenForcesLogout(t *testing.T) {
	env := newTestServer(t, nil)
	// A token the backend rejects on data calls.
	resp, _ := env.get(t, "/auth/callback?token=stale")
	expectRedirect(t, resp, http.StatusFound, "/")

	resp, _ = env.get(t, "/invoices")
	expectRedirect(t, resp, http.StatusSeeOther, "/login?expired=1&next=%2Finvoices")

	env.backend.reset()
	resp, _ = env.get(t, "/invoices")
	expectRedirect(t, resp, http.StatusFound, "/login?next=%2Finvoices")
	if len(env.backend.calls) != 0 {
		t.Errorf("expected token cleared, got calls %v", env.backend.calls)
	}
}

func TestEditorCreate(t *testing.T) {
	env := newTestServer(t, nil)
	env.signIn(t)

	_, body := env.get(t, "/invoices/new")
	for _, want := range []string{"New Invoice", `value="INV-`, `value="Item 1"`, "Save invoice to verify PDF preview", "$0.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in new editor", want)
		}
	}

	resp, _ := env.post(t, "/invoices/new", url.Values{
		"action":           {"save"},
		"invoice_number":   {"INV-1234"},
		"client_name":      {"Acme"},
		"client_email":     {""},
		"date":             {"2026-02-08"},
		"due_date":         {""},
		"status":           {"draft"},
		"item_description": {"Widget"},
		"item_quantity":    {"3"},
		"item_unit_price":  {"10"},
	})
	expectRedirect(t, resp, http.StatusSeeOther, "/invoices")

	if len(env.backend.created) != 1 {
		t.Fatalf("expected one create, got %d", len(env.backend.created))
	}
	got := env.backend.created[0]
	if got["invoice_number"] != "INV-1234" || got["client_name"] != "Acme" {
		t.Errorf("unexpected payload %v", got)
	}
	if got["total_amount"] != 30.0 {
		t.Errorf("expected total_amount 30, got %v", got["total_amount"])
	}
	if got["due_date"] != nil {
		t.Errorf("expected null due_date, got %v", got["due_date"])
	}
	content, _ := got["content"].(map[string]any)
	items, _ := content["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one item, got %v", got["content"])
	}
	item, _ := items[0].(map[string]any)
	if item["description"] != "Widget" || item["quantity"] != 3.0 || item["unit_price"] != 10.0 {
		t.Errorf("unexpected item %v", item)
	}
}

func TestEditorLocalActions(t *testing.T) {
	env := newTestServer(t, nil)
	env.signIn(t)
	env.backend.reset()

	form := url.Values{
		"invoice_number":   {"INV-1234"},
		"client_name":      {"Acme"},
		"item_description": {"Widget", "Gadget"},
		"item_quantity":    {"3", "1"},
		"item_unit_price":  {"10", "5"},
	}

	form.Set("action", "add_item")
	resp, body := env.post(t, "/invoices/new", form)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if n := strings.Count(body, `name="item_description"`); n != 3 {
		t.Errorf("expected 3 items after add, got %d", n)
	}
	if !strings.Contains(body, "$35.00") {
		t.Errorf("expected recomputed total")
	}

	form.Set("action", "remove_item:0")
	_, body = env.post(t, "/invoices/new", form)
	if n := strings.Count(body, `name="item_description"`); n != 1 {
		t.Errorf("expected 1 item after remove, got %d", n)
	}
	if strings.Contains(body, `value="Widget"`) || !strings.Contains(body, "$5.00") {
		t.Errorf("expected first item removed")
	}

	if len(env.backend.calls) != 0 {
		t.Errorf("local actions must not reach the backend, got %v", env.backend.calls)
	}
}

func TestEditorEditMode(t *testing.T) {
	fb := newFakeBackend()
	fb.invoices["i1"] = domain.Invoice{
		ID: "i1", InvoiceNumber: "INV-0042", ClientName: "Acme", Date: "2026-02-08T00:00:00",
		Status: domain.StatusDraft,
		Content: domain.InvoiceContent{Items: []domain.LineItem{{Description: "Widget", Quantity: 3, UnitPrice: 10}}},
	}
	env := newTestServer(t, fb)
	env.signIn(t)

	resp, body := env.get(t, "/invoices/i1/edit")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, want := range []string{
		"Edit Invoice",
		`name="due_date" type="date" value=""`,
		`name="date" type="date" value="2026-02-08"`,
		`<iframe src="/invoices/i1/pdf"`,
		"$30.00",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in edit page", want)
		}
	}

	resp, _ = env.get(t, "/invoices/missing/edit")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown invoice, got %d", resp.StatusCode)
	}
}

func TestDeleteFlow(t *testing.T) {
	tests := []struct {
		name        string
		answer      string
		wantDeletes int
		wantLists   int
	}{
		{"confirmed", "yes", 1, 1},
		{"declined", "no", 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fb := newFakeBackend()
			fb.invoices["i1"] = domain.Invoice{ID: "i1", InvoiceNumber: "INV-0001", Status: domain.StatusDraft}
			env := newTestServer(t, fb)
			env.signIn(t)
			env.get(t, "/invoices")

			resp, body := env.get(t, "/invoices/i1/delete")
			if resp.StatusCode != http.StatusOK || !strings.Contains(body, "INV-0001") {
				t.Fatalf("expected confirmation page, got %d", resp.StatusCode)
			}

			env.backend.reset()
			resp, _ = env.post(t, "/invoices/i1/delete", url.Values{"confirm": {tc.answer}})
			expectRedirect(t, resp, http.StatusSeeOther, "/invoices")

			if n := env.backend.count("DELETE /invoices/i1"); n != tc.wantDeletes {
				t.Errorf("expected %d deletes, got %d", tc.wantDeletes, n)
			}
			if n := env.backend.count("GET /invoices/"); n != tc.wantLists {
				t.Errorf("expected %d list fetches, got %d", tc.wantLists, n)
			}
		})
	}
}

func TestPDFProxy(t *testing.T) {
	env := newTestServer(t, nil)
	env.signIn(t)
	env.backend.reset()

	resp, body := env.get(t, "/invoices/i1/pdf")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", ct)
	}
	if body != "%PDF-1.4 fake" {
		t.Errorf("unexpected body %q", body)
	}
	if len(env.backend.auth) != 1 || env.backend.auth[0] != "Bearer "+validToken {
		t.Errorf("expected bearer token on backend call, got %v", env.backend.auth)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestServer(t, nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/login"},
		{http.MethodPut, "/register"},
		{http.MethodPost, "/healthz"},
		{http.MethodGet, "/logout"},
		{http.MethodPost, "/auth/callback"},
		{http.MethodPut, "/invoices/i1/edit"},
		{http.MethodPost, "/invoices/i1/pdf"},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req, _ := http.NewRequest(tc.method, env.web.URL+tc.path, nil)
			resp, err := env.client.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close() //nolint:errcheck
			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Fatalf("expected 405, got %d", resp.StatusCode)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	env := newTestServer(t, nil)
	resp, body := env.get(t, "/nope")
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(body, "Page not found") {
		t.Fatalf("expected 404 page, got %d", resp.StatusCode)
	}
}

func TestEditorDefaultSubmitSaves(t *testing.T) {
	fb := newFakeBackend()
	fb.invoices["i1"] = domain.Invoice{
		ID: "i1", InvoiceNumber: "INV-0001", ClientName: "Acme",
		Content: domain.InvoiceContent{Items: []domain.LineItem{{Description: "Widget", Quantity: 1, UnitPrice: 5}}},
	}
	env := newTestServer(t, fb)
	env.signIn(t)

	for _, path := range []string{"/invoices/new", "/invoices/i1/edit"} {
		_, body := env.get(t, path)
		start := strings.Index(body, `<form class="card"`)
		if start < 0 {
			t.Fatalf("%s: no form rendered", path)
		}
		form := body[start:]
		if end := strings.Index(form, "</form>"); end >= 0 {
			form = form[:end]
		}
		i := strings.Index(form, `<button type="submit"`)
		if i < 0 {
			t.Fatalf("%s: no submit button in form", path)
		}
		first := form[i:]
		first = first[:strings.Index(first, ">")+1]
		if !strings.Contains(first, `value="save"`) {
			t.Errorf("%s: Enter would submit %s", path, first)
		}
	}
}

func TestDeleteFailureWithListError(t *testing.T) {
	fb := newFakeBackend()
	fb.listStatus = http.StatusInternalServerError
	env := newTestServer(t, fb)
	env.signIn(t)

	resp, body := env.post(t, "/invoices/gone/delete", url.Values{"confirm": {"yes"}})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Invoice not found") {
		t.Errorf("expected delete failure detail, got %s", body)
	}
	if !strings.Contains(body, "Error loading invoices") {
		t.Errorf("expected list failure message, got %s", body)
	}
	if strings.Contains(body, "No invoices found") {
		t.Errorf("failed refetch rendered as an empty list")
	}
}
