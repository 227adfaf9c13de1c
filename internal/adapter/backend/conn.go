package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"invoicegen/internal/domain"
)

const tokenLookupTimeout = 5 * time.Second

var errNoToken = errors.New("no stored token")

// storeSource reads the client's token from the store on every request.
type storeSource struct {
	tokens   domain.TokenStore
	clientID string
}

func (s storeSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), tokenLookupTimeout)
	defer cancel()

	tok, err := s.tokens.Get(ctx, s.clientID)
	if err != nil {
		return nil, fmt.Errorf("read stored token: %w", err)
	}
	if tok == "" {
		return nil, errNoToken
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// Conn is a backend connection bound to one client's stored token.
type Conn struct {
	client *Client
	http   *http.Client
}

// CurrentUser fetches the authenticated user.
func (c *Conn) CurrentUser(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.client.send(ctx, c.http, http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	if err := checkUser(&u); err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return &u, nil
}

// ListInvoices fetches all invoices of the authenticated user.
func (c *Conn) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	var items []domain.Invoice
	if err := c.client.send(ctx, c.http, http.MethodGet, "/invoices/", nil, &items); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	for i := range items {
		if err := checkInvoice(&items[i]); err != nil {
			return nil, fmt.Errorf("list invoices: item %d: %w", i, err)
		}
	}
	if items == nil {
		items = []domain.Invoice{}
	}
	return items, nil
}

// GetInvoice fetches one invoice.
func (c *Conn) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := c.client.send(ctx, c.http, http.MethodGet, invoicePath(id), nil, &inv); err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	if err := checkInvoice(&inv); err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return &inv, nil
}

// CreateInvoice stores a new invoice.
func (c *Conn) CreateInvoice(ctx context.Context, p domain.InvoicePayload) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := c.client.send(ctx, c.http, http.MethodPost, "/invoices/", p, &inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	if err := checkInvoice(&inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return &inv, nil
}

// UpdateInvoice replaces an invoice's fields.
func (c *Conn) UpdateInvoice(ctx context.Context, id string, p domain.InvoicePayload) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := c.client.send(ctx, c.http, http.MethodPut, invoicePath(id), p, &inv); err != nil {
		return nil, fmt.Errorf("update invoice %s: %w", id, err)
	}
	if err := checkInvoice(&inv); err != nil {
		return nil, fmt.Errorf("update invoice %s: %w", id, err)
	}
	return &inv, nil
}

// DeleteInvoice removes an invoice. The acknowledgment body is ignored.
func (c *Conn) DeleteInvoice(ctx context.Context, id string) error {
	if err := c.client.send(ctx, c.http, http.MethodDelete, invoicePath(id), nil, nil); err != nil {
		return fmt.Errorf("delete invoice %s: %w", id, err)
	}
	return nil
}

// FetchPDF streams the rendered PDF. The caller closes the body.
func (c *Conn) FetchPDF(ctx context.Context, id string) (*domain.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PDFURL(id), nil)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.client.roundTrip(c.http, req)
	if err != nil {
		return nil, fmt.Errorf("fetch pdf %s: %w", id, err)
	}
	c.client.logCall(http.MethodGet, invoicePath(id)+"/pdf", resp.StatusCode, start)
	if err := checkStatus(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch pdf %s: %w", id, err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/pdf"
	}
	return &domain.Document{Body: resp.Body, ContentType: ct}, nil
}

// PDFURL builds the backend URL of an invoice's rendered PDF.
func (c *Conn) PDFURL(id string) string {
	return c.client.PDFURL(id)
}

func invoicePath(id string) string {
	return "/invoices/" + url.PathEscape(id)
}
