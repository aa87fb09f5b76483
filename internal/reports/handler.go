package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-retail/atlas-ledger/internal/platform/httpx"
)

// Handler exposes ledger reconstruction over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes attaches report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ledger/{accountID}", h.accountLedger)
	r.Get("/cash-book/{outletID}", h.cashBook)
}

type ledgerResponse struct {
	AccountID int64           `json:"accountId"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Opening   float64         `json:"opening"`
	Closing   float64         `json:"closing"`
	Rows      []LedgerRowView `json:"rows"`
}

func (h *Handler) accountLedger(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil || accountID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "account id must be numeric")
		return
	}
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	ledger, err := h.service.GetAccountLedger(r.Context(), accountID, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := ledgerResponse{
		AccountID: ledger.AccountID,
		From:      ledger.From.Format("2006-01-02"),
		To:        ledger.To.Format("2006-01-02"),
		Opening:   ledger.Opening,
		Closing:   ledger.Closing,
		Rows:      make([]LedgerRowView, 0, len(ledger.Rows)),
	}
	for _, row := range ledger.Rows {
		resp.Rows = append(resp.Rows, NewLedgerRowView(row))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type cashBookResponse struct {
	OutletID int64           `json:"outletId"`
	Scope    string          `json:"scope"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Opening  float64         `json:"opening"`
	Closing  float64         `json:"closing"`
	Rows     []LedgerRowView `json:"rows"`
}

func (h *Handler) cashBook(w http.ResponseWriter, r *http.Request) {
	outletID, err := strconv.ParseInt(chi.URLParam(r, "outletID"), 10, 64)
	if err != nil || outletID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "outlet id must be numeric")
		return
	}
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	scope := CashScope(r.URL.Query().Get("scope"))
	includeVoided := r.URL.Query().Get("includeVoided") == "true"
	book, err := h.service.GetCashBook(r.Context(), outletID, from, to, includeVoided, scope)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := cashBookResponse{
		OutletID: book.OutletID,
		Scope:    string(book.Scope),
		From:     book.From.Format("2006-01-02"),
		To:       book.To.Format("2006-01-02"),
		Opening:  book.Opening,
		Closing:  book.Closing,
		Rows:     make([]LedgerRowView, 0, len(book.Rows)),
	}
	for _, row := range book.Rows {
		resp.Rows = append(resp.Rows, NewLedgerRowView(row))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// dateRange parses from/to query dates; to is exclusive and defaults
// to tomorrow so "today" is always visible.
func dateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	const layout = "2006-01-02"
	q := r.URL.Query()
	from, err := time.Parse(layout, q.Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "from must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	if raw := q.Get("to"); raw != "" {
		to, err = time.Parse(layout, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "to must be YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
	}
	return from, to, true
}
