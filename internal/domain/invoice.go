package domain

import (
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// Invoice statuses known to the backend. The set is open; unknown values are
// passed through untouched.
const (
	StatusDraft = "draft"
	StatusSent  = "sent"
	StatusPaid  = "paid"
)

// LineItem is one billable row of an invoice.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Amount returns quantity × unit price.
func (it LineItem) Amount() decimal.Decimal {
	return decimal.NewFromInt(int64(it.Quantity)).Mul(decimal.NewFromFloat(it.UnitPrice))
}

// InvoiceContent is the free-form content document stored with an invoice.
type InvoiceContent struct {
	Items []LineItem `json:"items"`
}

// Invoice is the backend's invoice representation. Date fields are kept as
// the raw strings the backend sends.
type Invoice struct {
	ID            string         `json:"id"`
	InvoiceNumber string         `json:"invoice_number"`
	ClientName    string         `json:"client_name"`
	ClientEmail   string         `json:"client_email"`
	Date          string         `json:"date"`
	DueDate       string         `json:"due_date"`
	Status        string         `json:"status"`
	TotalAmount   float64        `json:"total_amount"`
	Content       InvoiceContent `json:"content"`
}

// InvoicePayload is the body sent on create and update.
type InvoicePayload struct {
	InvoiceNumber string         `json:"invoice_number"`
	ClientName    string         `json:"client_name"`
	ClientEmail   *string        `json:"client_email"`
	Date          string         `json:"date"`
	DueDate       *string        `json:"due_date"`
	Status        string         `json:"status"`
	TotalAmount   float64        `json:"total_amount"`
	Content       InvoiceContent `json:"content"`
}

// Document is a binary document streamed from the backend.
type Document struct {
	Body        io.ReadCloser
	ContentType string
}

// Total sums quantity × unit price over items.
func Total(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Amount())
	}
	return sum
}

// DateOnly cuts a backend datetime down to its YYYY-MM-DD part.
func DateOnly(s string) string {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// InvoiceCache is the port for a client's cached backend reads. Entries live
// until invalidated.
type InvoiceCache interface {
	List(clientID string) ([]Invoice, bool)
	PutList(clientID string, items []Invoice)
	Invoice(clientID, id string) (*Invoice, bool)
	PutInvoice(clientID string, inv *Invoice)
	InvalidateList(clientID string)
	InvalidateInvoice(clientID, id string)
	Drop(clientID string)
}
