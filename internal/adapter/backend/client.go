// Package backend implements the REST client for the invoicing backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"invoicegen/internal/domain"
)

const maxErrorBody = 64 << 10

// Config holds the backend connection settings.
type Config struct {
	BaseURL string
	// Timeout bounds a single call; zero means no client-side timeout.
	Timeout time.Duration
}

// Client talks to the invoicing backend. Calls made through ForClient carry
// that client's stored bearer token.
type Client struct {
	baseURL string
	http    *http.Client
	oauth   *oauth2.Config
	tokens  domain.TokenStore
	log     zerolog.Logger
}

var _ domain.Gateway = (*Client)(nil)
var _ domain.API = (*Conn)(nil)

// New creates a Client for cfg. Tokens are looked up in store on every
// authenticated request.
func New(cfg Config, store domain.TokenStore, log zerolog.Logger) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		oauth: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  base + "/auth/access-token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		tokens: store,
		log:    log,
	}
}

// BaseURL returns the normalised backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for an access token using the password grant.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	start := time.Now()
	tok, err := c.oauth.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var re *oauth2.RetrieveError
		var ue *url.Error
		switch {
		case errors.As(err, &re) && re.Response != nil:
			c.logCall(http.MethodPost, "/auth/access-token", re.Response.StatusCode, start)
			apiErr := domain.NewAPIError(re.Response.StatusCode, detailFrom(re.Body))
			if re.Response.StatusCode == http.StatusBadRequest {
				// The backend answers bad credentials with 400.
				apiErr.Kind = domain.ErrUnauthorized
			}
			return "", fmt.Errorf("login: %w", apiErr)
		case errors.As(err, &ue):
			return "", fmt.Errorf("login: %w: %v", domain.ErrTransport, err)
		default:
			return "", fmt.Errorf("login: %w: %v", domain.ErrMalformedResponse, err)
		}
	}
	c.logCall(http.MethodPost, "/auth/access-token", http.StatusOK, start)
	return tok.AccessToken, nil
}

type registerRequest struct {
	domain.NewUser
	// HashedPassword mirrors Password; the backend's user model binds this
	// field and hashes it server-side.
	HashedPassword string `json:"hashed_password"`
}

// Register creates a user account.
func (c *Client) Register(ctx context.Context, u domain.NewUser) (*domain.User, error) {
	var out domain.User
	body := registerRequest{NewUser: u, HashedPassword: u.Password}
	if err := c.send(ctx, c.http, http.MethodPost, "/users/", body, &out); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if err := checkUser(&out); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &out, nil
}

// GoogleLoginURL is the backend's SSO entry point. The backend finishes the
// handshake and redirects to /auth/callback?token=.
func (c *Client) GoogleLoginURL() string {
	return c.baseURL + "/auth/google/login"
}

// PDFURL builds the backend URL of an invoice's rendered PDF.
func (c *Client) PDFURL(id string) string {
	return c.baseURL + "/invoices/" + url.PathEscape(id) + "/pdf"
}

// ForClient returns a connection that authenticates as clientID.
func (c *Client) ForClient(clientID string) domain.API {
	return &Conn{
		client: c,
		http: &http.Client{
			Timeout: c.http.Timeout,
			Transport: &oauth2.Transport{
				Source: storeSource{tokens: c.tokens, clientID: clientID},
				Base:   c.http.Transport,
			},
		},
	}
}

// send performs one request/response round trip. out may be nil, in which
// case the body is discarded.
func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.roundTrip(hc, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	c.logCall(method, path, resp.StatusCode, start)

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) roundTrip(hc *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := hc.Do(req)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, errNoToken) {
		return nil, domain.ErrUnauthorized
	}
	if ctxErr := req.Context().Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
}

func (c *Client) logCall(method, path string, status int, start time.Time) {
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Msg("backend call")
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return domain.NewAPIError(resp.StatusCode, detailFrom(b))
}

// detailFrom extracts the first message from a FastAPI-style error body,
// where detail is either a string or a list of {msg} objects.
func detailFrom(b []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(b, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &list); err == nil && len(list) > 0 {
		return list[0].Msg
	}
	return ""
}

func checkUser(u *domain.User) error {
	if u.ID == "" || u.Email == "" {
		return fmt.Errorf("%w: user without id or email", domain.ErrMalformedResponse)
	}
	return nil
}

func checkInvoice(inv *domain.Invoice) error {
	if inv.ID == "" || inv.InvoiceNumber == "" {
		return fmt.Errorf("%w: invoice without id or number", domain.ErrMalformedResponse)
	}
	return nil
}
