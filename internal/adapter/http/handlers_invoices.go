package adapthttp

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"invoicegen/internal/app"
	"invoicegen/internal/domain"
)

type dashboardData struct {
	Summary *app.Summary
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var data dashboardData
	sum, err := s.invoices.Summary(r.Context(), clientIDFrom(r.Context()))
	switch {
	case err == nil:
		data.Summary = &sum
	case s.unauthorized(w, r, err):
		return
	default:
		s.log.Warn().Err(err).Msg("dashboard summary")
	}
	s.render(w, r, http.StatusOK, "dashboard", s.shell(r, "Dashboard", data))
}

type invoicesData struct {
	Invoices []domain.Invoice
	Failed   bool
}

func (s *Server) handleInvoices(w http.ResponseWriter, r *http.Request) {
	items, err := s.invoices.List(r.Context(), clientIDFrom(r.Context()))
	if err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		s.log.Warn().Err(err).Msg("list invoices")
		s.render(w, r, http.StatusBadGateway, "invoices", s.shell(r, "Invoices", invoicesData{Failed: true}))
		return
	}
	s.render(w, r, http.StatusOK, "invoices", s.shell(r, "Invoices", invoicesData{Invoices: items}))
}

// loadFailed answers a failed fetch of one invoice.
func (s *Server) loadFailed(w http.ResponseWriter, r *http.Request, err error) {
	if s.unauthorized(w, r, err) {
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound, "Invoice not found")
		return
	}
	s.log.Warn().Err(err).Msg("load invoice")
	s.renderError(w, r, http.StatusBadGateway, "Error loading invoice")
}

type confirmData struct {
	ID    string
	Label string
}

func (s *Server) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	inv, err := s.invoices.Get(r.Context(), clientIDFrom(r.Context()), id)
	if err != nil {
		s.loadFailed(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "confirm_delete", s.shell(r, "Delete invoice", confirmData{ID: inv.ID, Label: inv.InvoiceNumber}))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	clientID := clientIDFrom(r.Context())
	confirmed := r.PostFormValue("confirm") == "yes"

	err := s.invoices.Delete(r.Context(), clientID, id, confirmed)
	switch {
	case err == nil, errors.Is(err, app.ErrNotConfirmed):
		redirectAfterPost(w, r, "/invoices")
	case s.unauthorized(w, r, err):
	default:
		s.log.Warn().Err(err).Str("invoice", id).Msg("delete invoice")
		items, listErr := s.invoices.List(r.Context(), clientID)
		if listErr != nil {
			s.log.Warn().Err(listErr).Msg("list invoices after failed delete")
		}
		p := s.shell(r, "Invoices", invoicesData{Invoices: items, Failed: listErr != nil})
		p.Error = domain.Detail(err, "Error deleting invoice")
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.render(w, r, status, "invoices", p)
	}
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	doc, err := s.invoices.PDF(r.Context(), clientIDFrom(r.Context()), id)
	if err != nil {
		s.loadFailed(w, r, err)
		return
	}
	defer doc.Body.Close() //nolint:errcheck

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": "invoice-" + id + ".pdf"}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, doc.Body); err != nil {
		s.log.Warn().Err(err).Str("invoice", id).Msg("stream pdf")
	}
}

type editorData struct {
	Form       app.InvoiceForm
	Action     string
	Total      decimal.Decimal
	Statuses   []string
	PreviewURL string
}

var statuses = []string{domain.StatusDraft, domain.StatusSent, domain.StatusPaid}

func (s *Server) editorPage(r *http.Request, f app.InvoiceForm, errMsg string) page {
	data := editorData{
		Form:     f,
		Action:   "/invoices/new",
		Total:    f.Total(),
		Statuses: statuses,
	}
	if !f.IsNew() {
		data.Action = "/invoices/" + f.ID + "/edit"
		data.PreviewURL = "/invoices/" + f.ID + "/pdf"
	}
	known := false
	for _, st := range statuses {
		known = known || st == f.Status
	}
	if !known && f.Status != "" {
		data.Statuses = append(append([]string{}, statuses...), f.Status)
	}

	title := "New Invoice"
	if !f.IsNew() {
		title = "Edit Invoice"
	}
	p := s.shell(r, title, data)
	p.Error = errMsg
	return p
}

// handleEditor serves both modes; the {id} route variable selects edit.
func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	id, edit := mux.Vars(r)["id"]
	if !edit {
		s.render(w, r, http.StatusOK, "editor", s.editorPage(r, app.NewInvoiceForm(s.now()), ""))
		return
	}

	inv, err := s.invoices.Get(r.Context(), clientIDFrom(r.Context()), id)
	if err != nil {
		s.loadFailed(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "editor", s.editorPage(r, app.FormFromInvoice(inv), ""))
}

func (s *Server) handleEditorSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "invalid request")
		return
	}
	form := app.ParseInvoiceForm(mux.Vars(r)["id"], r.PostForm)

	if form.Apply(r.PostForm.Get("action")) {
		s.render(w, r, http.StatusOK, "editor", s.editorPage(r, form, ""))
		return
	}

	if _, err := s.invoices.Save(r.Context(), clientIDFrom(r.Context()), form); err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		s.log.Warn().Err(err).Str("invoice", form.ID).Msg("save invoice")
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, domain.ErrValidation):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, domain.ErrNotFound):
			status = http.StatusNotFound
		}
		s.render(w, r, status, "editor", s.editorPage(r, form, domain.Detail(err, "Error saving invoice")))
		return
	}
	redirectAfterPost(w, r, "/invoices")
}
