package app

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoicegen/internal/domain"
)

// ErrNotConfirmed is returned by Delete when the user declined the prompt.
var ErrNotConfirmed = errors.New("delete not confirmed")

// InvoiceService reads and writes invoices through the backend, caching reads
// per client until a mutation invalidates them.
type InvoiceService struct {
	gw    domain.Gateway
	cache domain.InvoiceCache
	log   zerolog.Logger
}

// NewInvoiceService creates a new invoice service.
func NewInvoiceService(gw domain.Gateway, cache domain.InvoiceCache, log zerolog.Logger) *InvoiceService {
	return &InvoiceService{gw: gw, cache: cache, log: log}
}

// OnSession drops the client's cache whenever its session carries no user,
// which covers logout, forced expiry and the start of a new login.
func (s *InvoiceService) OnSession(clientID string, sess domain.Session) {
	if sess.User == nil {
		s.cache.Drop(clientID)
	}
}

// List returns the client's invoices.
func (s *InvoiceService) List(ctx context.Context, clientID string) ([]domain.Invoice, error) {
	if items, ok := s.cache.List(clientID); ok {
		return items, nil
	}
	return s.fetchList(ctx, clientID)
}

func (s *InvoiceService) fetchList(ctx context.Context, clientID string) ([]domain.Invoice, error) {
	items, err := s.gw.ForClient(clientID).ListInvoices(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.PutList(clientID, items)
	return items, nil
}

// Get returns one invoice.
func (s *InvoiceService) Get(ctx context.Context, clientID, id string) (*domain.Invoice, error) {
	if inv, ok := s.cache.Invoice(clientID, id); ok {
		return inv, nil
	}
	inv, err := s.gw.ForClient(clientID).GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.PutInvoice(clientID, inv)
	return inv, nil
}

// Save creates or updates the invoice described by f.
func (s *InvoiceService) Save(ctx context.Context, clientID string, f InvoiceForm) (*domain.Invoice, error) {
	api := s.gw.ForClient(clientID)
	p := f.Payload()

	var inv *domain.Invoice
	var err error
	if f.IsNew() {
		inv, err = api.CreateInvoice(ctx, p)
	} else {
		inv, err = api.UpdateInvoice(ctx, f.ID, p)
	}
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateList(clientID)
	if !f.IsNew() {
		s.cache.InvalidateInvoice(clientID, f.ID)
	}
	s.log.Info().Str("invoice", inv.ID).Bool("created", f.IsNew()).Msg("invoice saved")
	return inv, nil
}

// Delete removes an invoice once confirmed, then refetches the list. Without
// confirmation no backend call is made.
func (s *InvoiceService) Delete(ctx context.Context, clientID, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := s.gw.ForClient(clientID).DeleteInvoice(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateList(clientID)
	s.cache.InvalidateInvoice(clientID, id)
	s.log.Info().Str("invoice", id).Msg("invoice deleted")

	if _, err := s.fetchList(ctx, clientID); err != nil {
		s.log.Warn().Err(err).Msg("refetch invoices after delete")
	}
	return nil
}

// PDF streams the rendered invoice. The caller closes the body.
func (s *InvoiceService) PDF(ctx context.Context, clientID, id string) (*domain.Document, error) {
	return s.gw.ForClient(clientID).FetchPDF(ctx, id)
}

// StatusCount is the number of invoices in one status.
type StatusCount struct {
	Status string
	Count  int
}

// Summary aggregates a client's invoices for the dashboard.
type Summary struct {
	Count       int
	ByStatus    []StatusCount
	Outstanding decimal.Decimal
}

var statusOrder = map[string]int{domain.StatusDraft: 0, domain.StatusSent: 1, domain.StatusPaid: 2}

// Summarize counts invoices per status and sums the totals not yet paid.
func Summarize(items []domain.Invoice) Summary {
	sum := Summary{Count: len(items), Outstanding: decimal.Zero}
	counts := make(map[string]int)
	for _, inv := range items {
		counts[inv.Status]++
		if inv.Status != domain.StatusPaid {
			sum.Outstanding = sum.Outstanding.Add(decimal.NewFromFloat(inv.TotalAmount))
		}
	}
	for status, n := range counts {
		sum.ByStatus = append(sum.ByStatus, StatusCount{Status: status, Count: n})
	}
	sort.Slice(sum.ByStatus, func(i, j int) bool {
		a, b := sum.ByStatus[i].Status, sum.ByStatus[j].Status
		ra, oka := statusOrder[a]
		rb, okb := statusOrder[b]
		switch {
		case oka && okb:
			return ra < rb
		case oka != okb:
			return oka
		default:
			return a < b
		}
	})
	return sum
}

// Summary summarizes the client's invoice list.
func (s *InvoiceService) Summary(ctx context.Context, clientID string) (Summary, error) {
	items, err := s.List(ctx, clientID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(items), nil
}
