package memory

import (
	"sync"

	"invoicegen/internal/domain"
)

// Cache holds each client's cached backend reads until they are invalidated.
type Cache struct {
	mu      sync.Mutex
	clients map[string]*clientCache
}

type clientCache struct {
	list     []domain.Invoice
	hasList  bool
	invoices map[string]domain.Invoice
}

var _ domain.InvoiceCache = (*Cache)(nil)

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{clients: make(map[string]*clientCache)}
}

func (c *Cache) client(clientID string) *clientCache {
	cc, ok := c.clients[clientID]
	if !ok {
		cc = &clientCache{invoices: make(map[string]domain.Invoice)}
		c.clients[clientID] = cc
	}
	return cc
}

// List returns a copy of the cached list.
func (c *Cache) List(clientID string) ([]domain.Invoice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cc, ok := c.clients[clientID]
	if !ok || !cc.hasList {
		return nil, false
	}
	out := make([]domain.Invoice, len(cc.list))
	copy(out, cc.list)
	return out, true
}

// PutList caches the invoice list.
func (c *Cache) PutList(clientID string, items []domain.Invoice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cc := c.client(clientID)
	cc.list = make([]domain.Invoice, len(items))
	copy(cc.list, items)
	cc.hasList = true
}

// Invoice returns a copy of a cached invoice.
func (c *Cache) Invoice(clientID, id string) (*domain.Invoice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cc, ok := c.clients[clientID]
	if !ok {
		return nil, false
	}
	inv, ok := cc.invoices[id]
	if !ok {
		return nil, false
	}
	return &inv, true
}

// PutInvoice caches one invoice under its id.
func (c *Cache) PutInvoice(clientID string, inv *domain.Invoice) {
	if inv == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client(clientID).invoices[inv.ID] = *inv
}

// InvalidateList drops the cached list.
func (c *Cache) InvalidateList(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cc, ok := c.clients[clientID]; ok {
		cc.list = nil
		cc.hasList = false
	}
}

// InvalidateInvoice drops one cached invoice.
func (c *Cache) InvalidateInvoice(clientID, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cc, ok := c.clients[clientID]; ok {
		delete(cc.invoices, id)
	}
}

// Drop forgets everything cached for a client.
func (c *Cache) Drop(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.clients, clientID)
}
