// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"time"
)

// User is the account snapshot returned by the backend's /users/me.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	CompanyName string `json:"company_name"`
}

// NewUser is the registration payload.
type NewUser struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	CompanyName string `json:"company_name"`
}

// Session is one browser client's authentication state.
type Session struct {
	Token   string
	User    *User
	Loading bool
	// Expired is set when the last restore or request found the stored token
	// rejected or past its expiry.
	Expired bool
}

// Authenticated reports whether the session holds a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// StoredToken is a persisted bearer token for one client.
type StoredToken struct {
	ClientID  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenStore is the port for the durable per-client token storage.
// Get returns ("", nil) when nothing is stored.
type TokenStore interface {
	Get(ctx context.Context, clientID string) (string, error)
	Set(ctx context.Context, clientID, token string, expiresAt time.Time) error
	Delete(ctx context.Context, clientID string) error
	DeleteExpired(ctx context.Context) error
}

// Gateway is the port to the invoicing backend for calls that are not bound
// to a stored token.
type Gateway interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, u NewUser) (*User, error)
	GoogleLoginURL() string
	ForClient(clientID string) API
}

// API is the backend surface as seen by one client; every call carries that
// client's stored bearer token.
type API interface {
	CurrentUser(ctx context.Context) (*User, error)
	ListInvoices(ctx context.Context) ([]Invoice, error)
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	CreateInvoice(ctx context.Context, p InvoicePayload) (*Invoice, error)
	UpdateInvoice(ctx context.Context, id string, p InvoicePayload) (*Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
	FetchPDF(ctx context.Context, id string) (*Document, error)
	PDFURL(id string) string
}
