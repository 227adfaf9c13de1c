package app

import (
	"context"
	"time"

	"invoicegen/internal/domain"
)

type mockGateway struct {
	loginFn    func(ctx context.Context, email, password string) (string, error)
	registerFn func(ctx context.Context, u domain.NewUser) (*domain.User, error)
	api        *mockAPI
	clients    []string
}

func (m *mockGateway) Login(ctx context.Context, email, password string) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return "token", nil
}

func (m *mockGateway) Register(ctx context.Context, u domain.NewUser) (*domain.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, u)
	}
	return &domain.User{ID: "u1", Email: u.Email}, nil
}

func (m *mockGateway) GoogleLoginURL() string {
	return "http://backend/auth/google/login"
}

func (m *mockGateway) ForClient(clientID string) domain.API {
	m.clients = append(m.clients, clientID)
	if m.api == nil {
		m.api = &mockAPI{}
	}
	return m.api
}

type mockAPI struct {
	currentUserFn func(ctx context.Context) (*domain.User, error)
	listFn        func(ctx context.Context) ([]domain.Invoice, error)
	getFn         func(ctx context.Context, id string) (*domain.Invoice, error)
	createFn      func(ctx context.Context, p domain.InvoicePayload) (*domain.Invoice, error)
	updateFn      func(ctx context.Context, id string, p domain.InvoicePayload) (*domain.Invoice, error)
	deleteFn      func(ctx context.Context, id string) error
	pdfFn         func(ctx context.Context, id string) (*domain.Document, error)

	currentUserCalls int
	listCalls        int
	getCalls         int
	deleteCalls      int
}

func (m *mockAPI) CurrentUser(ctx context.Context) (*domain.User, error) {
	m.currentUserCalls++
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx)
	}
	return &domain.User{ID: "u1", Email: "ada@example.com", FullName: "Ada"}, nil
}

func (m *mockAPI) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	m.listCalls++
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []domain.Invoice{}, nil
}

func (m *mockAPI) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	m.getCalls++
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockAPI) CreateInvoice(ctx context.Context, p domain.InvoicePayload) (*domain.Invoice, error) {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return &domain.Invoice{ID: "new", InvoiceNumber: p.InvoiceNumber}, nil
}

func (m *mockAPI) UpdateInvoice(ctx context.Context, id string, p domain.InvoicePayload) (*domain.Invoice, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, p)
	}
	return &domain.Invoice{ID: id, InvoiceNumber: p.InvoiceNumber}, nil
}

func (m *mockAPI) DeleteInvoice(ctx context.Context, id string) error {
	m.deleteCalls++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockAPI) FetchPDF(ctx context.Context, id string) (*domain.Document, error) {
	if m.pdfFn != nil {
		return m.pdfFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockAPI) PDFURL(id string) string {
	return "http://backend/invoices/" + id + "/pdf"
}

type mockTokenStore struct {
	getFn    func(ctx context.Context, clientID string) (string, error)
	setFn    func(ctx context.Context, clientID, token string, expiresAt time.Time) error
	deleteFn func(ctx context.Context, clientID string) error
}

func (m *mockTokenStore) Get(ctx context.Context, clientID string) (string, error) {
	if m.getFn != nil {
		return m.getFn(ctx, clientID)
	}
	return "", nil
}

func (m *mockTokenStore) Set(ctx context.Context, clientID, token string, expiresAt time.Time) error {
	if m.setFn != nil {
		return m.setFn(ctx, clientID, token, expiresAt)
	}
	return nil
}

func (m *mockTokenStore) Delete(ctx context.Context, clientID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, clientID)
	}
	return nil
}

func (m *mockTokenStore) DeleteExpired(ctx context.Context) error {
	return nil
}
