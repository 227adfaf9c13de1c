package app

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicegen/internal/domain"
)

// Editor form actions.
const (
	ActionSave       = "save"
	ActionAddItem    = "add_item"
	ActionRemoveItem = "remove_item:"
)

// InvoiceForm is the editor's working copy of an invoice. ID is empty in
// create mode.
type InvoiceForm struct {
	ID            string
	InvoiceNumber string
	ClientName    string
	ClientEmail   string
	Date          string
	DueDate       string
	Status        string
	Items         []domain.LineItem
}

// NewInvoiceForm returns the create-mode defaults for now.
func NewInvoiceForm(now time.Time) InvoiceForm {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 4 {
		ms = ms[len(ms)-4:]
	}
	return InvoiceForm{
		InvoiceNumber: "INV-" + ms,
		Date:          now.UTC().Format(time.DateOnly),
		Status:        domain.StatusDraft,
		Items:         []domain.LineItem{{Description: "Item 1", Quantity: 1, UnitPrice: 0}},
	}
}

// FormFromInvoice hydrates the editor from a fetched invoice.
func FormFromInvoice(inv *domain.Invoice) InvoiceForm {
	items := make([]domain.LineItem, len(inv.Content.Items))
	copy(items, inv.Content.Items)
	return InvoiceForm{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientName:    inv.ClientName,
		ClientEmail:   inv.ClientEmail,
		Date:          domain.DateOnly(inv.Date),
		DueDate:       domain.DateOnly(inv.DueDate),
		Status:        inv.Status,
		Items:         items,
	}
}

// ParseInvoiceForm reads a submitted editor form. Item fields are parallel
// lists; a missing quantity or price reads as zero.
func ParseInvoiceForm(id string, v url.Values) InvoiceForm {
	f := InvoiceForm{
		ID:            id,
		InvoiceNumber: strings.TrimSpace(v.Get("invoice_number")),
		ClientName:    strings.TrimSpace(v.Get("client_name")),
		ClientEmail:   strings.TrimSpace(v.Get("client_email")),
		Date:          v.Get("date"),
		DueDate:       v.Get("due_date"),
		Status:        v.Get("status"),
	}
	if f.Status == "" {
		f.Status = domain.StatusDraft
	}

	descs := v["item_description"]
	qtys := v["item_quantity"]
	prices := v["item_unit_price"]
	n := max(len(descs), len(qtys), len(prices))
	f.Items = make([]domain.LineItem, 0, n)
	for i := 0; i < n; i++ {
		f.Items = append(f.Items, domain.LineItem{
			Description: at(descs, i),
			Quantity:    parseQuantity(at(qtys, i)),
			UnitPrice:   parsePrice(at(prices, i)),
		})
	}
	return f
}

func at(vals []string, i int) string {
	if i < len(vals) {
		return vals[i]
	}
	return ""
}

func parseQuantity(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f <= 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

func parsePrice(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// AddItem appends an empty line item.
func (f *InvoiceForm) AddItem() {
	f.Items = append(f.Items, domain.LineItem{Quantity: 1})
}

// RemoveItem drops the item at index i. Out-of-range indexes are ignored.
func (f *InvoiceForm) RemoveItem(i int) {
	if i < 0 || i >= len(f.Items) {
		return
	}
	f.Items = append(f.Items[:i:i], f.Items[i+1:]...)
}

// Apply performs a non-save editor action and reports whether it was one.
func (f *InvoiceForm) Apply(action string) bool {
	switch {
	case action == ActionAddItem:
		f.AddItem()
		return true
	case strings.HasPrefix(action, ActionRemoveItem):
		i, err := strconv.Atoi(strings.TrimPrefix(action, ActionRemoveItem))
		if err == nil {
			f.RemoveItem(i)
		}
		return true
	}
	return false
}

// IsNew reports whether the form creates an invoice.
func (f InvoiceForm) IsNew() bool {
	return f.ID == ""
}

// Total sums the form's line items.
func (f InvoiceForm) Total() decimal.Decimal {
	return domain.Total(f.Items)
}

// Payload builds the create/update body with the total recomputed from the
// items. Empty optional fields are sent as null.
func (f InvoiceForm) Payload() domain.InvoicePayload {
	items := make([]domain.LineItem, len(f.Items))
	copy(items, f.Items)
	return domain.InvoicePayload{
		InvoiceNumber: f.InvoiceNumber,
		ClientName:    f.ClientName,
		ClientEmail:   optional(f.ClientEmail),
		Date:          f.Date,
		DueDate:       optional(f.DueDate),
		Status:        f.Status,
		TotalAmount:   f.Total().InexactFloat64(),
		Content:       domain.InvoiceContent{Items: items},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
